package query

import (
	"context"
	"sort"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/projection"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CLASS ROSTERS QUERY
// Per-class cards: enrolled students (split into sub-groups when the
// class has them), plus the class's waitlist. Lists are ordered by
// effective departure date, students without one last.
// ══════════════════════════════════════════════════════════════════════════════

// ClassRosterEntry is one student on a class card.
type ClassRosterEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// EffectiveDate is the date the student leaves this list ("" when
	// none). SpecialDate marks dates that come from a withdrawal or a
	// future enrollment rather than the natural transition.
	EffectiveDate string `json:"effectiveDate"`
	SpecialDate   bool   `json:"specialDate"`

	Ready        bool `json:"ready"`
	IsStaffChild bool `json:"isStaffChild"`
	HasLinks     bool `json:"hasLinks"`
}

// SubdivisionRoster is one sub-group of a class.
type SubdivisionRoster struct {
	Index    int                `json:"index"`
	Name     string             `json:"name"`
	Capacity int                `json:"capacity"`
	Students []ClassRosterEntry `json:"students"`
}

// ClassRoster is one class card.
type ClassRoster struct {
	ClassName    string              `json:"className"`
	ShowDates    bool                `json:"showDates"`
	Enrolled     []ClassRosterEntry  `json:"enrolled"`
	Subdivisions []SubdivisionRoster `json:"subdivisions,omitempty"`
	Waitlisted   []ClassRosterEntry  `json:"waitlisted"`
}

// GetClassRostersQuery requests the per-class cards.
type GetClassRostersQuery struct {
	// ProjectionDate overrides the shared projection date (optional).
	ProjectionDate string
}

// GetClassRostersResult carries one card per visible class, terminal
// included, in display order.
type GetClassRostersResult struct {
	ProjectionDate string        `json:"projectionDate"`
	Classes        []ClassRoster `json:"classes"`
}

// GetClassRostersHandler handles the GetClassRostersQuery.
type GetClassRostersHandler struct {
	state *application.State
}

// NewGetClassRostersHandler creates a new GetClassRostersHandler.
func NewGetClassRostersHandler(state *application.State) *GetClassRostersHandler {
	return &GetClassRostersHandler{state: state}
}

// Handle executes the query.
func (h *GetClassRostersHandler) Handle(ctx context.Context, q GetClassRostersQuery) (*GetClassRostersResult, error) {
	projDate, err := resolveProjectionDate(h.state, q.ProjectionDate)
	if err != nil {
		return nil, err
	}

	result := &GetClassRostersResult{ProjectionDate: projDate.String()}
	h.state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		e := projection.NewEngine(snap)
		cat := e.Catalog()

		classes := make([]snapshotClass, 0, len(cat.Classes))
		for _, cls := range cat.Classes {
			if !cls.Hidden {
				classes = append(classes, snapshotClass{cls.Name, cls.SubdivisionCount(), cls.SubdivisionNames, cls.SubdivisionCaps, cls.Order})
			}
		}
		sort.SliceStable(classes, func(i, j int) bool { return classes[i].order < classes[j].order })

		for _, cls := range classes {
			card := ClassRoster{
				ClassName: cls.name,
				ShowDates: snap.DateVisibility[cls.name],
			}

			var inClass []int
			for i := range snap.Roster {
				if e.Resolve(&snap.Roster[i], projDate) == cls.name {
					inClass = append(inClass, i)
				}
			}

			var enrolled, waitlisted []int
			for _, i := range inClass {
				if e.IsWaitlisted(&snap.Roster[i], cls.name, projDate) {
					waitlisted = append(waitlisted, i)
				} else {
					enrolled = append(enrolled, i)
				}
			}

			entry := func(i int) ClassRosterEntry {
				st := &snap.Roster[i]
				date, special := e.EffectiveDeparture(st, cls.name, projDate)
				r, hasReady := snap.Readiness[st.ID]
				return ClassRosterEntry{
					ID:            st.ID,
					Name:          st.Name,
					EffectiveDate: date.String(),
					SpecialDate:   special,
					Ready:         hasReady && r.FromClass == cls.name,
					IsStaffChild:  st.IsStaffChild,
					HasLinks:      len(snap.Relationships[st.ID]) > 0,
				}
			}
			buildList := func(indices []int) []ClassRosterEntry {
				entries := make([]ClassRosterEntry, 0, len(indices))
				for _, i := range indices {
					entries = append(entries, entry(i))
				}
				sortByEffectiveDate(entries)
				return entries
			}

			if cls.subdivisions > 1 {
				var main []int
				for _, i := range enrolled {
					if e.SubdivisionIndex(snap.Roster[i].ID, cls.name) < 0 {
						main = append(main, i)
					}
				}
				card.Enrolled = buildList(main)
				for idx := 0; idx < cls.subdivisions; idx++ {
					var members []int
					for _, i := range enrolled {
						if e.SubdivisionIndex(snap.Roster[i].ID, cls.name) == idx {
							members = append(members, i)
						}
					}
					card.Subdivisions = append(card.Subdivisions, SubdivisionRoster{
						Index:    idx,
						Name:     cls.subNames[idx],
						Capacity: cls.subCaps[idx],
						Students: buildList(members),
					})
				}
			} else {
				card.Enrolled = buildList(enrolled)
			}
			card.Waitlisted = buildList(waitlisted)
			result.Classes = append(result.Classes, card)
		}
	})
	return result, nil
}

type snapshotClass struct {
	name         string
	subdivisions int
	subNames     map[int]string
	subCaps      map[int]int
	order        int
}

// sortByEffectiveDate orders entries by date ascending; entries without
// a date sort last. The sort is stable so ties keep roster order.
func sortByEffectiveDate(entries []ClassRosterEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].EffectiveDate, entries[j].EffectiveDate
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})
}
