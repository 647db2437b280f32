// Package command contains write operations (CQRS - Commands). Every
// handler mutates the shared state root under its exclusive lock; a
// successful mutation schedules a background save.
package command

import (
	"context"
	"strings"

	"github.com/littlesteps-hub/enrollment-hub/internal/application"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD STUDENTS COMMAND
// Adds one or more students, with exact name+dob duplicate detection.
// Duplicates require an explicit confirmation before anything commits.
// ══════════════════════════════════════════════════════════════════════════════

// NewStudentEntry is one student to add.
type NewStudentEntry struct {
	// Name is the student's display name.
	Name string

	// DOB is the date of birth (YYYY-MM-DD).
	DOB string

	// EnrollmentDate is optional (YYYY-MM-DD); a future date waitlists
	// the student.
	EnrollmentDate string

	// FTE defaults to 1 when zero.
	FTE float64

	// IsStaffChild marks staff children.
	IsStaffChild bool
}

// AddStudentsCommand adds a batch of students.
type AddStudentsCommand struct {
	// Entries are the students to add.
	Entries []NewStudentEntry

	// BulkText is free-form pasted text holding "Name M/D/YYYY" pairs;
	// parsed entries are appended to Entries.
	BulkText string

	// ConfirmDuplicates commits the batch even when some entries match
	// an existing student's name and date of birth.
	ConfirmDuplicates bool
}

// Validate validates the command.
func (c AddStudentsCommand) Validate() error {
	if len(c.Entries) == 0 && strings.TrimSpace(c.BulkText) == "" {
		return shared.NewDomainError("roster", "AddStudents", shared.ErrEmptyValue, "no students to add")
	}
	for _, e := range c.Entries {
		if strings.TrimSpace(e.Name) == "" {
			return shared.ErrEmptyName
		}
		if _, err := dateutil.Parse(e.DOB); err != nil || e.DOB == "" {
			return shared.ErrInvalidDOB
		}
		if _, err := dateutil.Parse(e.EnrollmentDate); err != nil {
			return shared.NewDomainError("roster", "AddStudents", shared.ErrInvalidFormat, "invalid enrollment date")
		}
		if e.FTE < 0 || e.FTE > 1 {
			return shared.ErrInvalidFTE
		}
	}
	return nil
}

// AddStudentsResult contains the outcome of the batch.
type AddStudentsResult struct {
	// Added are the committed students, in input order.
	Added []roster.Student

	// Duplicates lists the name+dob keys that matched existing
	// students. When non-empty and the command was not confirmed,
	// nothing was committed.
	Duplicates []string

	// NeedsConfirmation is true when duplicates blocked the batch.
	NeedsConfirmation bool
}

// AddStudentsHandler handles the AddStudentsCommand.
type AddStudentsHandler struct {
	state *application.State
}

// NewAddStudentsHandler creates a new AddStudentsHandler.
func NewAddStudentsHandler(state *application.State) *AddStudentsHandler {
	return &AddStudentsHandler{state: state}
}

// Handle executes the add students command.
func (h *AddStudentsHandler) Handle(ctx context.Context, cmd AddStudentsCommand) (*AddStudentsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	entries := append([]NewStudentEntry(nil), cmd.Entries...)
	for _, b := range roster.ParseBulk(cmd.BulkText) {
		entries = append(entries, NewStudentEntry{Name: b.Name, DOB: b.DOB.String()})
	}
	if len(entries) == 0 {
		return nil, shared.NewDomainError("roster", "AddStudents", shared.ErrInvalidInput, "no parseable students in input")
	}

	result := &AddStudentsResult{}
	err := h.state.Update(func(snap *snapshot.Snapshot) error {
		existing := make(map[string]struct{}, len(snap.Roster))
		for i := range snap.Roster {
			existing[snap.Roster[i].DedupKey()] = struct{}{}
		}

		for _, e := range entries {
			dob := dateutil.MustParse(e.DOB)
			if _, dup := existing[roster.DedupKey(e.Name, dob)]; dup {
				result.Duplicates = append(result.Duplicates, roster.DedupKey(e.Name, dob))
			}
		}
		if len(result.Duplicates) > 0 && !cmd.ConfirmDuplicates {
			result.NeedsConfirmation = true
			return shared.NewDomainError("roster", "AddStudents", shared.ErrAlreadyExists, "duplicate students need confirmation")
		}

		added := make([]roster.Student, 0, len(entries))
		for _, e := range entries {
			st, err := roster.NewStudent(roster.NewStudentParams{
				Name:           e.Name,
				DOB:            dateutil.MustParse(e.DOB),
				EnrollmentDate: dateutil.MustParse(e.EnrollmentDate),
				FTE:            e.FTE,
				IsStaffChild:   e.IsStaffChild,
			})
			if err != nil {
				return err
			}
			added = append(added, *st)
		}
		snap.Roster = append(snap.Roster, added...)
		result.Added = added
		return nil
	})
	if err != nil {
		if result.NeedsConfirmation {
			return result, err
		}
		return nil, err
	}
	return result, nil
}
