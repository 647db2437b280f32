package command

import (
	"context"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/catalog"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE CLASS SETTINGS COMMAND
// Replaces the class catalog wholesale, the way the settings dialog
// saves it. The replacement is validated as a whole before it takes
// effect; overrides pointing at names that no longer exist simply stop
// matching and students fall back to automatic placement.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateClassSettingsCommand replaces the catalog's class list.
type UpdateClassSettingsCommand struct {
	// Classes is the complete new class list.
	Classes []catalog.ClassBand
}

// Validate validates the command.
func (c UpdateClassSettingsCommand) Validate() error {
	if len(c.Classes) == 0 {
		return shared.NewDomainError("catalog", "UpdateSettings", shared.ErrEmptyValue, "class list cannot be empty")
	}
	cat := catalog.Catalog{Classes: c.Classes}
	cat.Normalize()
	return cat.Validate()
}

// UpdateClassSettingsHandler handles the UpdateClassSettingsCommand.
type UpdateClassSettingsHandler struct {
	state *application.State
}

// NewUpdateClassSettingsHandler creates a new UpdateClassSettingsHandler.
func NewUpdateClassSettingsHandler(state *application.State) *UpdateClassSettingsHandler {
	return &UpdateClassSettingsHandler{state: state}
}

// Handle executes the update class settings command.
func (h *UpdateClassSettingsHandler) Handle(ctx context.Context, cmd UpdateClassSettingsCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	return h.state.Update(func(snap *snapshot.Snapshot) error {
		cat := catalog.Catalog{
			Classes:     cmd.Classes,
			CutoffMonth: snap.CutoffMonth,
			CutoffDay:   snap.CutoffDay,
		}
		cat.Normalize()
		snap.Classes = cat.Classes
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REORDER CLASSES COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// ReorderClassesCommand applies a new display (and promotion) order.
type ReorderClassesCommand struct {
	// OrderedNames is the full class list in its new sequence.
	OrderedNames []string
}

// Validate validates the command.
func (c ReorderClassesCommand) Validate() error {
	if len(c.OrderedNames) == 0 {
		return shared.NewDomainError("catalog", "Reorder", shared.ErrEmptyValue, "ordered names cannot be empty")
	}
	return nil
}

// ReorderClassesHandler handles the ReorderClassesCommand.
type ReorderClassesHandler struct {
	state *application.State
}

// NewReorderClassesHandler creates a new ReorderClassesHandler.
func NewReorderClassesHandler(state *application.State) *ReorderClassesHandler {
	return &ReorderClassesHandler{state: state}
}

// Handle executes the reorder classes command. Every name must exist in
// the catalog; otherwise nothing changes.
func (h *ReorderClassesHandler) Handle(ctx context.Context, cmd ReorderClassesCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	return h.state.Update(func(snap *snapshot.Snapshot) error {
		cat := snap.Catalog()
		for _, name := range cmd.OrderedNames {
			if _, ok := cat.Find(name); !ok {
				return shared.ErrClassNotFound
			}
		}
		cat.Reorder(cmd.OrderedNames)
		snap.Classes = cat.Classes
		return nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SET DATE VISIBILITY COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// SetDateVisibilityCommand toggles transition-date display for a class.
type SetDateVisibilityCommand struct {
	// ClassName is the class to toggle.
	ClassName string

	// Visible shows transition dates on the class roster.
	Visible bool
}

// Validate validates the command.
func (c SetDateVisibilityCommand) Validate() error {
	if c.ClassName == "" {
		return shared.NewDomainError("catalog", "SetDateVisibility", shared.ErrEmptyValue, "class name is required")
	}
	return nil
}

// SetDateVisibilityHandler handles the SetDateVisibilityCommand.
type SetDateVisibilityHandler struct {
	state *application.State
}

// NewSetDateVisibilityHandler creates a new SetDateVisibilityHandler.
func NewSetDateVisibilityHandler(state *application.State) *SetDateVisibilityHandler {
	return &SetDateVisibilityHandler{state: state}
}

// Handle executes the set date visibility command.
func (h *SetDateVisibilityHandler) Handle(ctx context.Context, cmd SetDateVisibilityCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	return h.state.Update(func(snap *snapshot.Snapshot) error {
		cat := snap.Catalog()
		if _, ok := cat.Find(cmd.ClassName); !ok {
			return shared.ErrClassNotFound
		}
		snap.DateVisibility[cmd.ClassName] = cmd.Visible
		return nil
	})
}
