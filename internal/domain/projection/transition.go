package projection

import (
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/catalog"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// NextTransitionDate returns the date the student is expected to leave
// currentClass for its successor. The zero Date means no scheduled
// transition. A manual transition date always wins; otherwise the rule
// depends on the class: the four youngest bands transition at DOB plus
// the band's max age, the preschool-tier classes transition at an
// academic cutoff, and terminal-tier classes never transition.
func (e *Engine) NextTransitionDate(st *roster.Student, currentClass string) dateutil.Date {
	if manual, ok := e.manualDates[st.ID]; ok && !manual.IsZero() {
		return manual
	}
	if currentClass == e.cat.TerminalName() {
		return dateutil.Date{}
	}

	cls, found := e.cat.Find(currentClass)
	if !found {
		return dateutil.Date{}
	}

	// The four earliest bands in display order age out by months.
	sorted := e.cat.Promotable()
	for i := 0; i < len(sorted) && i < 4; i++ {
		if sorted[i].Name == currentClass && sorted[i].MaxAge != nil {
			return st.DOB.AddMonths(*sorted[i].MaxAge)
		}
	}

	switch cls.Role {
	case catalog.RoleEarlyPreschool, catalog.RolePathways:
		return e.academicTransitionDate(st.DOB, 3)
	case catalog.RolePreschool:
		return e.academicTransitionDate(st.DOB, 4)
	case catalog.RolePreK:
		return e.academicTransitionDate(st.DOB, 5)
	default:
		return dateutil.Date{}
	}
}

// academicTransitionDate returns the academic cutoff at which the child
// turns targetAge: the cutoff of the year they have that birthday, or
// the following year's cutoff when the birthday falls after it.
func (e *Engine) academicTransitionDate(dob dateutil.Date, targetAge int) dateutil.Date {
	targetYear := dob.Year + targetAge
	cutoff := dateutil.CutoffDate(targetYear, e.cat.CutoffMonth, e.cat.CutoffDay)
	birthday := dateutil.New(targetYear, dob.Month, dob.Day)
	if !birthday.After(cutoff) {
		return cutoff
	}
	return dateutil.CutoffDate(targetYear+1, e.cat.CutoffMonth, e.cat.CutoffDay)
}

// EffectiveDeparture returns the date a student actually leaves their
// current class, for per-class roster ordering: the natural transition
// date, overridden by an earlier withdrawal, or by an earlier future
// enrollment for waitlisted students. special marks rows whose
// effective date is not the natural transition.
func (e *Engine) EffectiveDeparture(st *roster.Student, currentClass string, projection dateutil.Date) (date dateutil.Date, special bool) {
	date = e.NextTransitionDate(st, currentClass)

	if !st.WithdrawalDate.IsZero() && (date.IsZero() || st.WithdrawalDate.Before(date)) {
		date, special = st.WithdrawalDate, true
	}
	if st.IsFutureEnrollee(projection) && (date.IsZero() || st.EnrollmentDate.Before(date)) {
		date, special = st.EnrollmentDate, true
	}
	return date, special
}
