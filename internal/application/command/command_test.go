package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

func newState(t *testing.T) *application.State {
	t.Helper()
	return application.NewState(snapshot.New(), dateutil.MustParse("2025-06-01"), nil, nil, nil)
}

func addOne(t *testing.T, state *application.State, name, dob string) string {
	t.Helper()
	res, err := NewAddStudentsHandler(state).Handle(context.Background(), AddStudentsCommand{
		Entries: []NewStudentEntry{{Name: name, DOB: dob}},
	})
	require.NoError(t, err)
	require.Len(t, res.Added, 1)
	return res.Added[0].ID
}

func TestAddStudents(t *testing.T) {
	state := newState(t)
	res, err := NewAddStudentsHandler(state).Handle(context.Background(), AddStudentsCommand{
		Entries: []NewStudentEntry{
			{Name: "Ada Chen", DOB: "2022-03-05"},
			{Name: "Ben Ortiz", DOB: "2021-11-28", FTE: 0.5, IsStaffChild: true},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Added, 2)
	assert.Equal(t, 1.0, res.Added[0].FTE, "fte defaults to 1")
	assert.Equal(t, 0.5, res.Added[1].FTE)

	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Len(t, snap.Roster, 2)
	})
	assert.Equal(t, uint64(1), state.Revision())
}

func TestAddStudentsBulkText(t *testing.T) {
	state := newState(t)
	res, err := NewAddStudentsHandler(state).Handle(context.Background(), AddStudentsCommand{
		BulkText: "Ada Chen 3/5/2022, Ben Ortiz 11/28/2021",
	})
	require.NoError(t, err)
	require.Len(t, res.Added, 2)
	assert.Equal(t, dateutil.MustParse("2022-03-05"), res.Added[0].DOB)
}

func TestAddStudentsDuplicateNeedsConfirmation(t *testing.T) {
	state := newState(t)
	addOne(t, state, "Ada Chen", "2022-03-05")

	cmd := AddStudentsCommand{Entries: []NewStudentEntry{{Name: "ada chen", DOB: "2022-03-05"}}}
	res, err := NewAddStudentsHandler(state).Handle(context.Background(), cmd)

	require.ErrorIs(t, err, shared.ErrAlreadyExists)
	require.NotNil(t, res)
	assert.True(t, res.NeedsConfirmation)
	assert.Len(t, res.Duplicates, 1)
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Len(t, snap.Roster, 1, "nothing committed without confirmation")
	})

	cmd.ConfirmDuplicates = true
	res, err = NewAddStudentsHandler(state).Handle(context.Background(), cmd)
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Len(t, snap.Roster, 2)
	})
}

func TestAddStudentsValidation(t *testing.T) {
	state := newState(t)
	h := NewAddStudentsHandler(state)

	_, err := h.Handle(context.Background(), AddStudentsCommand{})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)

	_, err = h.Handle(context.Background(), AddStudentsCommand{
		Entries: []NewStudentEntry{{Name: "Bad", DOB: "05/03/2022"}},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)

	_, err = h.Handle(context.Background(), AddStudentsCommand{
		Entries: []NewStudentEntry{{Name: "Bad", DOB: "2022-03-05", FTE: 2}},
	})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
	assert.Equal(t, uint64(0), state.Revision(), "no mutation on validation failure")
}

func TestEditStudent(t *testing.T) {
	state := newState(t)
	id := addOne(t, state, "Ada Chen", "2022-03-05")

	name := "Ada C."
	fte := 0.0
	withdraw := "2025-07-01"
	err := NewEditStudentHandler(state).Handle(context.Background(), EditStudentCommand{
		ID: id, Name: &name, FTE: &fte, WithdrawalDate: &withdraw,
	})
	require.NoError(t, err)

	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		st, ok := snap.FindStudent(id)
		require.True(t, ok)
		assert.Equal(t, "Ada C.", st.Name)
		assert.Equal(t, 0.0, st.FTE)
		assert.Equal(t, dateutil.MustParse("2025-07-01"), st.WithdrawalDate)
	})

	// Clearing the withdrawal date with an empty string.
	clear := ""
	require.NoError(t, NewEditStudentHandler(state).Handle(context.Background(), EditStudentCommand{ID: id, WithdrawalDate: &clear}))
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		st, _ := snap.FindStudent(id)
		assert.True(t, st.WithdrawalDate.IsZero())
	})
}

func TestEditStudentUnknownIDIsNoOp(t *testing.T) {
	state := newState(t)
	name := "X"
	err := NewEditStudentHandler(state).Handle(context.Background(), EditStudentCommand{ID: "missing", Name: &name})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, uint64(0), state.Revision())
}

func TestDeleteStudentsCascades(t *testing.T) {
	state := newState(t)
	a := addOne(t, state, "Ada", "2022-03-05")
	b := addOne(t, state, "Ben", "2022-04-05")
	require.NoError(t, NewLinkRelationshipHandler(state).Handle(context.Background(), LinkRelationshipCommand{
		StudentID: a, PeerIDs: []string{b}, Type: "S",
	}))

	res, err := NewDeleteStudentsHandler(state).Handle(context.Background(), DeleteStudentsCommand{IDs: []string{a}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Len(t, snap.Roster, 1)
		assert.Empty(t, snap.Relationships, "peer's dangling link removed")
	})
}

func TestDeleteAllKeepsSettings(t *testing.T) {
	state := newState(t)
	addOne(t, state, "Ada", "2022-03-05")
	require.NoError(t, NewSetDateVisibilityHandler(state).Handle(context.Background(), SetDateVisibilityCommand{
		ClassName: "PreK (4y+)", Visible: true,
	}))

	res, err := NewDeleteStudentsHandler(state).Handle(context.Background(), DeleteStudentsCommand{All: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Empty(t, snap.Roster)
		assert.True(t, snap.DateVisibility["PreK (4y+)"])
	})
}

func TestReassignToNonAutomaticClassSetsManualOverride(t *testing.T) {
	state := newState(t)
	id := addOne(t, state, "Ada", "2022-03-05") // automatic: Preschool tier by age

	err := NewReassignStudentHandler(state).Handle(context.Background(), ReassignStudentCommand{
		StudentIDs: []string{id}, TargetClass: "Afterschool", Section: SectionEnrolled,
	})
	require.NoError(t, err)

	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Equal(t, "Afterschool", snap.Assignments[id])
	})
	assert.Equal(t, "Afterschool", state.Engine().Resolve(findStudent(t, state, id), state.ProjectionDate()))
}

func TestReassignToAutomaticClassClearsOverride(t *testing.T) {
	state := newState(t)
	id := addOne(t, state, "Ada", "2022-03-05")
	require.NoError(t, NewReassignStudentHandler(state).Handle(context.Background(), ReassignStudentCommand{
		StudentIDs: []string{id}, TargetClass: "Afterschool", Section: SectionEnrolled,
	}))

	automatic := state.Engine().AutomaticClass(findStudent(t, state, id), state.ProjectionDate())
	require.NoError(t, NewReassignStudentHandler(state).Handle(context.Background(), ReassignStudentCommand{
		StudentIDs: []string{id}, TargetClass: automatic, Section: SectionEnrolled,
	}))

	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		_, hasManual := snap.Assignments[id]
		assert.False(t, hasManual, "dropping a student home clears the override")
	})
}

func TestReassignToTerminalStampsWithdrawalDate(t *testing.T) {
	state := newState(t)
	id := addOne(t, state, "Ada", "2022-03-05")

	require.NoError(t, NewReassignStudentHandler(state).Handle(context.Background(), ReassignStudentCommand{
		StudentIDs: []string{id}, TargetClass: "Graduated/Withdrawn", Section: SectionEnrolled,
	}))

	st := findStudent(t, state, id)
	assert.Equal(t, state.ProjectionDate(), st.WithdrawalDate)

	// Dragging back out clears the stamp again.
	require.NoError(t, NewReassignStudentHandler(state).Handle(context.Background(), ReassignStudentCommand{
		StudentIDs: []string{id}, TargetClass: "Afterschool", Section: SectionEnrolled, FromTerminal: true,
	}))
	assert.True(t, findStudent(t, state, id).WithdrawalDate.IsZero())
}

func TestReassignToWaitlistAndSubdivision(t *testing.T) {
	state := newState(t)
	id := addOne(t, state, "Ada", "2022-03-05")

	require.NoError(t, NewUpdateClassSettingsHandler(state).Handle(context.Background(), updateSubdivisions(t, state, "Early Preschool (2-3y)", 2)))

	require.NoError(t, NewReassignStudentHandler(state).Handle(context.Background(), ReassignStudentCommand{
		StudentIDs: []string{id}, TargetClass: "Early Preschool (2-3y)", Section: SectionSubdivision, SubdivisionIndex: 1,
	}))
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Equal(t, snapshot.SubdivisionSlot{ClassName: "Early Preschool (2-3y)", Index: 1}, snap.Subdivisions[id])
	})

	require.NoError(t, NewReassignStudentHandler(state).Handle(context.Background(), ReassignStudentCommand{
		StudentIDs: []string{id}, TargetClass: "PreK (4y+)", Section: SectionWaitlisted,
	}))
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Equal(t, "PreK (4y+)", snap.Waitlisted[id])
		_, hasSub := snap.Subdivisions[id]
		assert.False(t, hasSub, "previous section override cleared")
	})
}

func TestReassignValidation(t *testing.T) {
	state := newState(t)
	id := addOne(t, state, "Ada", "2022-03-05")
	h := NewReassignStudentHandler(state)

	err := h.Handle(context.Background(), ReassignStudentCommand{StudentIDs: []string{id}, TargetClass: "Nope", Section: SectionEnrolled})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	err = h.Handle(context.Background(), ReassignStudentCommand{StudentIDs: []string{id}, TargetClass: "Afterschool", Section: "elsewhere"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	err = h.Handle(context.Background(), ReassignStudentCommand{
		StudentIDs: []string{id}, TargetClass: "Afterschool", Section: SectionSubdivision, SubdivisionIndex: 3,
	})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange, "index beyond the class's subdivision count")
}

func TestSetTransitionDate(t *testing.T) {
	state := newState(t)
	id := addOne(t, state, "Ada", "2023-01-15")
	h := NewSetTransitionDateHandler(state)

	require.NoError(t, h.Handle(context.Background(), SetTransitionDateCommand{StudentID: id, Date: "2025-09-01"}))
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Equal(t, dateutil.MustParse("2025-09-01"), snap.ManualTransitions[id])
	})

	require.NoError(t, h.Handle(context.Background(), SetTransitionDateCommand{StudentID: id, Date: ""}))
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		_, ok := snap.ManualTransitions[id]
		assert.False(t, ok)
	})
}

func TestMarkReadinessAndAutoInvalidation(t *testing.T) {
	state := newState(t)
	id := addOne(t, state, "Ada", "2024-03-01") // 15 months on 2025-06-01

	require.NoError(t, NewMarkReadinessHandler(state).Handle(context.Background(), MarkReadinessCommand{StudentID: id, Ready: true}))
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Equal(t, "Younger Toddler (12-18m)", snap.Readiness[id].FromClass)
	})

	// Advancing the projection date far enough moves the student on and
	// drops the flag.
	require.NoError(t, state.SetProjectionDate(context.Background(), dateutil.MustParse("2026-06-01")))
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Empty(t, snap.Readiness)
	})
}

func TestReorderClasses(t *testing.T) {
	state := newState(t)
	// Swap Early Preschool and Pathways in the full order.
	err := NewReorderClassesHandler(state).Handle(context.Background(), ReorderClassesCommand{
		OrderedNames: []string{
			"Young Infant (0-8m)", "Older Infant (8-12m)",
			"Younger Toddler (12-18m)", "Older Toddler (18-24m)",
			"Preschool Pathways", "Early Preschool (2-3y)",
			"Preschool (3y+)", "PreK (4y+)", "Transitional Kindergarten",
			"Afterschool", "Graduated/Withdrawn",
		},
	})
	require.NoError(t, err)

	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		cat := snap.Catalog()
		assert.Equal(t, "Early Preschool (2-3y)", cat.NextClass("Preschool Pathways"))
	})

	err = NewReorderClassesHandler(state).Handle(context.Background(), ReorderClassesCommand{OrderedNames: []string{"Nope"}})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateClassSettingsRejectsInvalidCatalog(t *testing.T) {
	state := newState(t)
	err := NewUpdateClassSettingsHandler(state).Handle(context.Background(), UpdateClassSettingsCommand{
		Classes: snapshot.New().Classes[:10], // no terminal class
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, uint64(0), state.Revision())
}

func TestSetColumnOrder(t *testing.T) {
	state := newState(t)
	err := NewSetColumnOrderHandler(state).Handle(context.Background(), SetColumnOrderCommand{
		Table: snapshot.TableMain, Columns: []string{"name", "dob", "class"},
	})
	require.NoError(t, err)
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		assert.Equal(t, []string{"name", "dob", "class"}, snap.ColumnOrder[snapshot.TableMain])
	})

	err = NewSetColumnOrderHandler(state).Handle(context.Background(), SetColumnOrderCommand{Table: "bogus", Columns: []string{"x"}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

// findStudent fetches a copy of the student for engine calls.
func findStudent(t *testing.T, state *application.State, id string) *roster.Student {
	t.Helper()
	var st *roster.Student
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		if found, ok := snap.FindStudent(id); ok {
			st = found.Clone()
		}
	})
	require.NotNil(t, st)
	return st
}

// updateSubdivisions builds an UpdateClassSettingsCommand with one
// class's subdivision count changed.
func updateSubdivisions(t *testing.T, state *application.State, className string, count int) UpdateClassSettingsCommand {
	t.Helper()
	var cmd UpdateClassSettingsCommand
	state.View(func(snap *snapshot.Snapshot, _ dateutil.Date) {
		clone := snap.Clone()
		for i := range clone.Classes {
			if clone.Classes[i].Name == className {
				clone.Classes[i].Subdivisions = count
			}
		}
		cmd.Classes = clone.Classes
	})
	return cmd
}
