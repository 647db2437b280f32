package query

import (
	"context"
	"sort"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/projection"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ROSTER QUERY
// The three flat roster tables: main (active, enrolled first), waitlist
// and graduated. Each row carries the resolved class and the projected
// transition date.
// ══════════════════════════════════════════════════════════════════════════════

// StudentRow is one row of a roster table.
type StudentRow struct {
	roster.Student

	// CurrentClass is the resolved class on the projection date.
	CurrentClass string `json:"currentClass"`

	// NextTransition is the projected transition date ("" when none).
	NextTransition string `json:"nextTransition"`

	// Waitlisted marks students occupying a waitlist slot for their
	// resolved class.
	Waitlisted bool `json:"waitlisted"`

	// ManuallyAssigned marks students with a manual class override.
	ManuallyAssigned bool `json:"manuallyAssigned"`

	// Ready marks students flagged ready to move up.
	Ready bool `json:"ready"`

	// Links are the student's relationship edges.
	Links []roster.Link `json:"links,omitempty"`
}

// GetRosterQuery requests the flat roster tables.
type GetRosterQuery struct {
	// ProjectionDate overrides the shared projection date (optional).
	ProjectionDate string
}

// GetRosterResult carries the three tables plus their column layouts.
type GetRosterResult struct {
	ProjectionDate string               `json:"projectionDate"`
	Main           []StudentRow         `json:"main"`
	Waitlist       []StudentRow         `json:"waitlist"`
	Graduated      []StudentRow         `json:"graduated"`
	ColumnOrder    snapshot.ColumnOrder `json:"columnOrder"`
}

// GetRosterHandler handles the GetRosterQuery.
type GetRosterHandler struct {
	state *application.State
}

// NewGetRosterHandler creates a new GetRosterHandler.
func NewGetRosterHandler(state *application.State) *GetRosterHandler {
	return &GetRosterHandler{state: state}
}

// Handle executes the query.
func (h *GetRosterHandler) Handle(ctx context.Context, q GetRosterQuery) (*GetRosterResult, error) {
	projDate, err := resolveProjectionDate(h.state, q.ProjectionDate)
	if err != nil {
		return nil, err
	}

	result := &GetRosterResult{ProjectionDate: projDate.String()}
	h.state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		e := projection.NewEngine(snap)
		cat := e.Catalog()
		terminal := cat.TerminalName()

		var enrolled, waitlisted []StudentRow
		for i := range snap.Roster {
			st := &snap.Roster[i]
			row := buildRow(snap, e, st, projDate)
			switch {
			case row.CurrentClass == terminal:
				result.Graduated = append(result.Graduated, row)
			case row.Waitlisted:
				waitlisted = append(waitlisted, row)
			default:
				enrolled = append(enrolled, row)
			}
		}

		// Main table: enrolled by date of birth, then waitlisted by
		// date of birth.
		byDOB := func(rows []StudentRow) {
			sort.SliceStable(rows, func(i, j int) bool { return rows[i].DOB.Before(rows[j].DOB) })
		}
		byDOB(enrolled)
		byDOB(waitlisted)
		result.Main = append(enrolled, waitlisted...)
		result.Waitlist = waitlisted

		result.ColumnOrder = make(snapshot.ColumnOrder, len(snap.ColumnOrder))
		for k, v := range snap.ColumnOrder {
			result.ColumnOrder[k] = append([]string(nil), v...)
		}
	})
	return result, nil
}

// buildRow assembles one roster row.
func buildRow(snap *snapshot.Snapshot, e *projection.Engine, st *roster.Student, projDate dateutil.Date) StudentRow {
	current := e.Resolve(st, projDate)
	ready := false
	if r, ok := snap.Readiness[st.ID]; ok && r.FromClass == current {
		ready = true
	}
	_, manual := snap.Assignments[st.ID]
	return StudentRow{
		Student:          *st.Clone(),
		CurrentClass:     current,
		NextTransition:   e.NextTransitionDate(st, current).String(),
		Waitlisted:       e.IsWaitlisted(st, current, projDate),
		ManuallyAssigned: manual,
		Ready:            ready,
		Links:            append([]roster.Link(nil), snap.Relationships[st.ID]...),
	}
}
