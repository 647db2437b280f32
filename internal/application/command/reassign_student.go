package command

import (
	"context"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/projection"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// Target sections for a reassignment.
const (
	SectionEnrolled    = "enrolled"
	SectionWaitlisted  = "waitlisted"
	SectionSubdivision = "subdivision"
)

// ══════════════════════════════════════════════════════════════════════════════
// REASSIGN STUDENT COMMAND
// Moves students into a class section. Previous per-student overrides
// are cleared first; a manual assignment is recorded only when the
// target differs from the student's automatic class, so students
// dropped "home" fall back to automatic placement.
// ══════════════════════════════════════════════════════════════════════════════

// ReassignStudentCommand moves one or more students to a class section.
type ReassignStudentCommand struct {
	// StudentIDs are the students being moved.
	StudentIDs []string

	// TargetClass is the destination class name.
	TargetClass string

	// Section is the destination section: main, waitlisted or
	// subdivision.
	Section string

	// SubdivisionIndex selects the sub-group when Section is
	// subdivision.
	SubdivisionIndex int

	// FromTerminal indicates the students were taken out of the
	// terminal class, which clears their withdrawal dates.
	FromTerminal bool
}

// Validate validates the command.
func (c ReassignStudentCommand) Validate() error {
	if len(c.StudentIDs) == 0 {
		return shared.NewDomainError("roster", "Reassign", shared.ErrEmptyValue, "no student ids given")
	}
	if c.TargetClass == "" {
		return shared.NewDomainError("roster", "Reassign", shared.ErrEmptyValue, "target class is required")
	}
	switch c.Section {
	case SectionEnrolled, SectionWaitlisted, SectionSubdivision:
	default:
		return shared.NewDomainError("roster", "Reassign", shared.ErrInvalidInput, "unknown target section")
	}
	if c.SubdivisionIndex < 0 {
		return shared.ErrInvalidSubdivisions
	}
	return nil
}

// ReassignStudentHandler handles the ReassignStudentCommand.
type ReassignStudentHandler struct {
	state *application.State
}

// NewReassignStudentHandler creates a new ReassignStudentHandler.
func NewReassignStudentHandler(state *application.State) *ReassignStudentHandler {
	return &ReassignStudentHandler{state: state}
}

// Handle executes the reassignment. Unknown students or an unknown
// target class make the whole command a no-op.
func (h *ReassignStudentHandler) Handle(ctx context.Context, cmd ReassignStudentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	projDate := h.state.ProjectionDate()
	return h.state.Update(func(snap *snapshot.Snapshot) error {
		cat := snap.Catalog()
		target, ok := cat.Find(cmd.TargetClass)
		if !ok {
			return shared.ErrClassNotFound
		}
		if cmd.Section == SectionSubdivision && cmd.SubdivisionIndex >= target.SubdivisionCount() {
			return shared.ErrInvalidSubdivisions
		}
		for _, id := range cmd.StudentIDs {
			if _, ok := snap.FindStudent(id); !ok {
				return shared.ErrStudentNotFound
			}
		}

		terminal := cat.TerminalName()
		engine := projection.NewEngine(snap)
		for _, id := range cmd.StudentIDs {
			st, _ := snap.FindStudent(id)
			automatic := engine.AutomaticClass(st, projDate)

			if cmd.FromTerminal && cmd.TargetClass != terminal {
				st.WithdrawalDate = dateutil.Date{}
			}

			delete(snap.Assignments, id)
			delete(snap.Waitlisted, id)
			delete(snap.Subdivisions, id)

			if cmd.TargetClass != automatic {
				snap.Assignments[id] = cmd.TargetClass
			}

			switch cmd.Section {
			case SectionWaitlisted:
				snap.Waitlisted[id] = cmd.TargetClass
			case SectionSubdivision:
				snap.Subdivisions[id] = snapshot.SubdivisionSlot{
					ClassName: cmd.TargetClass,
					Index:     cmd.SubdivisionIndex,
				}
			}

			if cmd.TargetClass == terminal && st.WithdrawalDate.IsZero() {
				st.WithdrawalDate = projDate
			}
		}
		return nil
	})
}
