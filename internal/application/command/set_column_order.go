package command

import (
	"context"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET COLUMN ORDER COMMAND
// Persists a dragged column layout for one roster table.
// ══════════════════════════════════════════════════════════════════════════════

// SetColumnOrderCommand stores a table's column sequence.
type SetColumnOrderCommand struct {
	// Table is the roster table key: main, waitlist or graduated.
	Table string

	// Columns is the new column key sequence.
	Columns []string
}

// Validate validates the command.
func (c SetColumnOrderCommand) Validate() error {
	switch c.Table {
	case snapshot.TableMain, snapshot.TableWaitlist, snapshot.TableGraduated:
	default:
		return shared.NewDomainError("roster", "SetColumnOrder", shared.ErrInvalidInput, "unknown table")
	}
	if len(c.Columns) == 0 {
		return shared.NewDomainError("roster", "SetColumnOrder", shared.ErrEmptyValue, "column list cannot be empty")
	}
	return nil
}

// SetColumnOrderHandler handles the SetColumnOrderCommand.
type SetColumnOrderHandler struct {
	state *application.State
}

// NewSetColumnOrderHandler creates a new SetColumnOrderHandler.
func NewSetColumnOrderHandler(state *application.State) *SetColumnOrderHandler {
	return &SetColumnOrderHandler{state: state}
}

// Handle executes the set column order command.
func (h *SetColumnOrderHandler) Handle(ctx context.Context, cmd SetColumnOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	return h.state.Update(func(snap *snapshot.Snapshot) error {
		snap.ColumnOrder[cmd.Table] = append([]string(nil), cmd.Columns...)
		return nil
	})
}
