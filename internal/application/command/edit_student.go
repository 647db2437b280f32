package command

import (
	"context"
	"strings"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EDIT STUDENT COMMAND
// Partial update of a roster entry. Only non-nil fields are applied;
// the whole edit is rejected before any field is written.
// ══════════════════════════════════════════════════════════════════════════════

// EditStudentCommand updates fields of one student.
type EditStudentCommand struct {
	// ID of the student to edit.
	ID string

	// Optional field updates. Date strings are YYYY-MM-DD; an empty
	// string clears the date. An FTE edit of exactly 0 counts zero in
	// aggregation.
	Name           *string
	DOB            *string
	EnrollmentDate *string
	WithdrawalDate *string
	FTE            *float64
	Partner        *string
	Comments       *string
	IsStaffChild   *bool
}

// Validate validates the command.
func (c EditStudentCommand) Validate() error {
	if c.ID == "" {
		return shared.NewDomainError("roster", "EditStudent", shared.ErrInvalidID, "student id is required")
	}
	if c.Name != nil && strings.TrimSpace(*c.Name) == "" {
		return shared.ErrEmptyName
	}
	if c.DOB != nil {
		if d, err := dateutil.Parse(*c.DOB); err != nil || d.IsZero() {
			return shared.ErrInvalidDOB
		}
	}
	for _, field := range []*string{c.EnrollmentDate, c.WithdrawalDate} {
		if field == nil {
			continue
		}
		if _, err := dateutil.Parse(*field); err != nil {
			return shared.NewDomainError("roster", "EditStudent", shared.ErrInvalidFormat, "invalid date")
		}
	}
	if c.FTE != nil && (*c.FTE < 0 || *c.FTE > 1) {
		return shared.ErrInvalidFTE
	}
	return nil
}

// EditStudentHandler handles the EditStudentCommand.
type EditStudentHandler struct {
	state *application.State
}

// NewEditStudentHandler creates a new EditStudentHandler.
func NewEditStudentHandler(state *application.State) *EditStudentHandler {
	return &EditStudentHandler{state: state}
}

// Handle executes the edit student command.
func (h *EditStudentHandler) Handle(ctx context.Context, cmd EditStudentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	return h.state.Update(func(snap *snapshot.Snapshot) error {
		st, ok := snap.FindStudent(cmd.ID)
		if !ok {
			return shared.ErrStudentNotFound
		}

		if cmd.Name != nil {
			st.Name = strings.TrimSpace(*cmd.Name)
		}
		if cmd.DOB != nil {
			st.DOB = dateutil.MustParse(*cmd.DOB)
		}
		if cmd.EnrollmentDate != nil {
			st.EnrollmentDate = dateutil.MustParse(*cmd.EnrollmentDate)
		}
		if cmd.WithdrawalDate != nil {
			st.WithdrawalDate = dateutil.MustParse(*cmd.WithdrawalDate)
		}
		if cmd.FTE != nil {
			st.FTE = *cmd.FTE
		}
		if cmd.Partner != nil {
			st.Partner = *cmd.Partner
		}
		if cmd.Comments != nil {
			st.Comments = *cmd.Comments
		}
		if cmd.IsStaffChild != nil {
			st.IsStaffChild = *cmd.IsStaffChild
		}
		return nil
	})
}
