package command

import (
	"context"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/projection"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
)

// ══════════════════════════════════════════════════════════════════════════════
// MARK READINESS COMMAND
// Flags a student as ready to move up from their current class. The
// flag records the class it was set in and disappears automatically
// once the student resolves elsewhere.
// ══════════════════════════════════════════════════════════════════════════════

// MarkReadinessCommand sets or clears a transition-readiness flag.
type MarkReadinessCommand struct {
	// StudentID is the student to flag.
	StudentID string

	// Ready sets the flag; false clears it.
	Ready bool
}

// Validate validates the command.
func (c MarkReadinessCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("roster", "MarkReadiness", shared.ErrInvalidID, "student id is required")
	}
	return nil
}

// MarkReadinessHandler handles the MarkReadinessCommand.
type MarkReadinessHandler struct {
	state *application.State
}

// NewMarkReadinessHandler creates a new MarkReadinessHandler.
func NewMarkReadinessHandler(state *application.State) *MarkReadinessHandler {
	return &MarkReadinessHandler{state: state}
}

// Handle executes the mark readiness command.
func (h *MarkReadinessHandler) Handle(ctx context.Context, cmd MarkReadinessCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	projDate := h.state.ProjectionDate()
	return h.state.Update(func(snap *snapshot.Snapshot) error {
		st, ok := snap.FindStudent(cmd.StudentID)
		if !ok {
			return shared.ErrStudentNotFound
		}
		if !cmd.Ready {
			delete(snap.Readiness, cmd.StudentID)
			return nil
		}
		current := projection.NewEngine(snap).Resolve(st, projDate)
		snap.Readiness[cmd.StudentID] = snapshot.Readiness{FromClass: current}
		return nil
	})
}
