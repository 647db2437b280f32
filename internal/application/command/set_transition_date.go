package command

import (
	"context"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET TRANSITION DATE COMMAND
// Pins or clears a student's manual transition date. A pinned date
// overrides the age-based transition and rolls the student into the
// successor class once the projection date reaches it.
// ══════════════════════════════════════════════════════════════════════════════

// SetTransitionDateCommand sets or clears a manual transition date.
type SetTransitionDateCommand struct {
	// StudentID is the student to pin.
	StudentID string

	// Date is the manual transition date (YYYY-MM-DD); empty clears
	// the pin.
	Date string
}

// Validate validates the command.
func (c SetTransitionDateCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("roster", "SetTransitionDate", shared.ErrInvalidID, "student id is required")
	}
	if _, err := dateutil.Parse(c.Date); err != nil {
		return shared.NewDomainError("roster", "SetTransitionDate", shared.ErrInvalidFormat, "invalid transition date")
	}
	return nil
}

// SetTransitionDateHandler handles the SetTransitionDateCommand.
type SetTransitionDateHandler struct {
	state *application.State
}

// NewSetTransitionDateHandler creates a new SetTransitionDateHandler.
func NewSetTransitionDateHandler(state *application.State) *SetTransitionDateHandler {
	return &SetTransitionDateHandler{state: state}
}

// Handle executes the set transition date command.
func (h *SetTransitionDateHandler) Handle(ctx context.Context, cmd SetTransitionDateCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	return h.state.Update(func(snap *snapshot.Snapshot) error {
		if _, ok := snap.FindStudent(cmd.StudentID); !ok {
			return shared.ErrStudentNotFound
		}
		d := dateutil.MustParse(cmd.Date)
		if d.IsZero() {
			delete(snap.ManualTransitions, cmd.StudentID)
			return nil
		}
		snap.ManualTransitions[cmd.StudentID] = d
		return nil
	})
}
