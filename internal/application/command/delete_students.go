package command

import (
	"context"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE STUDENTS COMMAND
// Removes students together with every override referencing them,
// keeping the relationship graph symmetric. All=true clears the whole
// roster but preserves class settings and the column layout.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteStudentsCommand removes students by ID, or all of them.
type DeleteStudentsCommand struct {
	// IDs are the students to remove. Ignored when All is set.
	IDs []string

	// All clears the entire roster.
	All bool
}

// Validate validates the command.
func (c DeleteStudentsCommand) Validate() error {
	if !c.All && len(c.IDs) == 0 {
		return shared.NewDomainError("roster", "DeleteStudents", shared.ErrEmptyValue, "no student ids given")
	}
	return nil
}

// DeleteStudentsResult reports how many students were removed.
type DeleteStudentsResult struct {
	Removed int
}

// DeleteStudentsHandler handles the DeleteStudentsCommand.
type DeleteStudentsHandler struct {
	state *application.State
}

// NewDeleteStudentsHandler creates a new DeleteStudentsHandler.
func NewDeleteStudentsHandler(state *application.State) *DeleteStudentsHandler {
	return &DeleteStudentsHandler{state: state}
}

// Handle executes the delete students command. Unknown IDs make the
// whole command a no-op.
func (h *DeleteStudentsHandler) Handle(ctx context.Context, cmd DeleteStudentsCommand) (*DeleteStudentsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &DeleteStudentsResult{}
	err := h.state.Update(func(snap *snapshot.Snapshot) error {
		if cmd.All {
			result.Removed = len(snap.Roster)
			snap.Clear()
			return nil
		}

		for _, id := range cmd.IDs {
			if _, ok := snap.FindStudent(id); !ok {
				return shared.ErrStudentNotFound
			}
		}
		for _, id := range cmd.IDs {
			if snap.RemoveStudent(id) {
				result.Removed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
