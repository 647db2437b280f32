package projection

import (
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// ClassStat is the dashboard row for one visible class.
type ClassStat struct {
	Name       string  `json:"name"`
	Enrolled   int     `json:"enrolled"`
	Waitlisted int     `json:"waitlisted"`
	Capacity   int     `json:"capacity"`
	FTE        float64 `json:"fte"`
}

// Dashboard is the aggregated view of the whole roster on one
// projection date. Totals cover visible non-terminal classes only, and
// waitlisted students are excluded from enrollment and FTE sums.
type Dashboard struct {
	Classes       []ClassStat `json:"classes"`
	TotalEnrolled int         `json:"totalEnrolled"`
	TotalFTE      float64     `json:"totalFte"`
	TotalCapacity int         `json:"totalCapacity"`
	Vacancies     int         `json:"vacancies"`
}

// Aggregate computes per-class and total statistics for the roster on
// the projection date.
func (e *Engine) Aggregate(students []roster.Student, projection dateutil.Date) Dashboard {
	resolved := make(map[string]string, len(students))
	for i := range students {
		resolved[students[i].ID] = e.Resolve(&students[i], projection)
	}

	terminal := e.cat.TerminalName()
	var dash Dashboard
	for _, cls := range e.cat.Visible() {
		stat := ClassStat{Name: cls.Name, Capacity: cls.Capacity}
		for i := range students {
			st := &students[i]
			if resolved[st.ID] != cls.Name || resolved[st.ID] == terminal {
				continue
			}
			if e.IsWaitlisted(st, cls.Name, projection) {
				stat.Waitlisted++
				continue
			}
			stat.Enrolled++
			stat.FTE += st.FTE
		}
		dash.TotalEnrolled += stat.Enrolled
		dash.TotalFTE += stat.FTE
		dash.TotalCapacity += stat.Capacity
		dash.Classes = append(dash.Classes, stat)
	}
	dash.Vacancies = dash.TotalCapacity - dash.TotalEnrolled
	return dash
}
