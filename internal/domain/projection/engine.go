// Package projection implements the enrollment projection engine: given
// the roster, the class catalog and the override maps, it resolves each
// student's class as of an arbitrary projection date and aggregates the
// result into dashboard statistics.
//
// Resolution is pure: the same snapshot and projection date always
// produce the same answer, and every student resolves to some class.
package projection

import (
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/catalog"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// Engine resolves student classes against one snapshot. It keeps
// references into the snapshot, so build a fresh Engine after mutating
// state.
type Engine struct {
	cat          catalog.Catalog
	assignments  map[string]string
	waitlisted   map[string]string
	manualDates  map[string]dateutil.Date
	subdivisions map[string]snapshot.SubdivisionSlot
}

// NewEngine builds an engine over the given snapshot.
func NewEngine(snap *snapshot.Snapshot) *Engine {
	return &Engine{
		cat:          snap.Catalog(),
		assignments:  snap.Assignments,
		waitlisted:   snap.Waitlisted,
		manualDates:  snap.ManualTransitions,
		subdivisions: snap.Subdivisions,
	}
}

// Catalog returns the normalized catalog the engine resolves against.
func (e *Engine) Catalog() catalog.Catalog {
	return e.cat
}

// AutomaticClass returns the class a student belongs to purely by age,
// ignoring all overrides. Age-banded classes are scanned in display
// order first; students older than every band fall through to the
// academic-year rules.
func (e *Engine) AutomaticClass(st *roster.Student, projection dateutil.Date) string {
	ageInMonths := dateutil.MonthsBetween(st.DOB, projection)
	ageAtCutoff := dateutil.AgeAtCutoff(st.DOB, projection, e.cat.CutoffMonth, e.cat.CutoffDay)

	for _, cls := range e.cat.Promotable() {
		if cls.ContainsAgeMonths(ageInMonths) {
			return cls.Name
		}
	}

	switch {
	case ageAtCutoff >= 5:
		return e.cat.TerminalName()
	case ageAtCutoff >= 4:
		return e.roleName(catalog.RolePreK)
	case ageAtCutoff >= 3:
		return e.roleName(catalog.RolePreschool)
	case ageInMonths >= 24:
		return e.roleName(catalog.RoleEarlyPreschool)
	case ageInMonths >= 18:
		return e.roleName(catalog.RoleOlderToddler)
	case ageInMonths >= 12:
		return e.roleName(catalog.RoleYoungerToddler)
	case ageInMonths >= 8:
		return e.roleName(catalog.RoleOlderInfant)
	default:
		return e.roleName(catalog.RoleYoungInfant)
	}
}

// roleName keeps resolution total: a catalog missing a referenced role
// resolves to the terminal class instead of failing.
func (e *Engine) roleName(role catalog.Role) string {
	if cls, ok := e.cat.ByRole(role); ok {
		return cls.Name
	}
	return e.cat.TerminalName()
}

// Resolve returns the student's class on the projection date. The
// precedence is: past-or-current withdrawal, manual assignment to a
// visible class, manual transition date, automatic placement.
func (e *Engine) Resolve(st *roster.Student, projection dateutil.Date) string {
	if st.IsWithdrawnAt(projection) {
		return e.cat.TerminalName()
	}

	if assigned, ok := e.assignments[st.ID]; ok {
		if cls, found := e.cat.Find(assigned); found && !cls.Hidden {
			return assigned
		}
	}

	if manual, ok := e.manualDates[st.ID]; ok && !manual.IsZero() && !projection.Before(manual) {
		// The student moves to the successor of whatever class they
		// occupied the day before their manual transition.
		before := e.AutomaticClass(st, manual.AddDays(-1))
		return e.cat.NextClass(before)
	}

	return e.AutomaticClass(st, projection)
}

// IsActive reports whether the student resolves to a non-terminal class.
func (e *Engine) IsActive(st *roster.Student, projection dateutil.Date) bool {
	return e.Resolve(st, projection) != e.cat.TerminalName()
}

// IsWaitlisted reports whether the student occupies a waitlist slot for
// className: either an explicit waitlist marker, or a future enrollment
// date while resolving into that class.
func (e *Engine) IsWaitlisted(st *roster.Student, className string, projection dateutil.Date) bool {
	if e.waitlisted[st.ID] == className {
		return true
	}
	if st.IsFutureEnrollee(projection) {
		return e.Resolve(st, projection) == className
	}
	return false
}

// SubdivisionIndex returns the sub-group the student is pinned to
// within className, or -1 for the class's main group. Pins to other
// classes are ignored.
func (e *Engine) SubdivisionIndex(studentID, className string) int {
	if slot, ok := e.subdivisions[studentID]; ok && slot.ClassName == className {
		return slot.Index
	}
	return -1
}
