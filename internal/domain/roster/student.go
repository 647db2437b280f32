// Package roster contains the student roster entities and the
// peer-relationship graph (siblings and friends).
package roster

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// Student is a roster entry. Dates are stored as calendar dates; zero
// values mean "not set" and marshal to empty strings in the snapshot.
type Student struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	DOB            dateutil.Date `json:"dob"`
	EnrollmentDate dateutil.Date `json:"enrollmentDate"`
	WithdrawalDate dateutil.Date `json:"withdrawalDate"`

	// FTE is the full-time-equivalent weight, 0..1. An explicit zero
	// counts as zero in aggregation; a missing fte key decodes as 1.
	FTE float64 `json:"fte"`

	Partner      string `json:"partner"`
	Comments     string `json:"comments"`
	IsStaffChild bool   `json:"isStaffChild"`
}

// NewStudentParams holds the inputs for creating a student.
type NewStudentParams struct {
	Name           string
	DOB            dateutil.Date
	EnrollmentDate dateutil.Date
	FTE            float64
	IsStaffChild   bool
}

// NewStudent creates a validated student with a fresh ID and the
// standard defaults (FTE 1 unless overridden, empty partner/comments).
func NewStudent(p NewStudentParams) (*Student, error) {
	fte := p.FTE
	if fte == 0 {
		fte = 1
	}
	s := &Student{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(p.Name),
		DOB:            p.DOB,
		EnrollmentDate: p.EnrollmentDate,
		FTE:            fte,
		IsStaffChild:   p.IsStaffChild,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the student's invariants.
func (s *Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return shared.ErrEmptyName
	}
	if s.DOB.IsZero() {
		return shared.ErrInvalidDOB
	}
	if s.FTE < 0 || s.FTE > 1 {
		return shared.ErrInvalidFTE
	}
	return nil
}

// UnmarshalJSON decodes a stored roster entry. Documents written before
// the fte key existed omit it; a missing fte decodes as 1 while an
// explicit 0 is preserved.
func (s *Student) UnmarshalJSON(data []byte) error {
	type plain Student
	wire := struct {
		*plain
		FTE *float64 `json:"fte"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.FTE == nil {
		s.FTE = 1
	} else {
		s.FTE = *wire.FTE
	}
	return nil
}

// IsWithdrawnAt reports whether the student's withdrawal date is set
// and on or before the given projection date.
func (s *Student) IsWithdrawnAt(projection dateutil.Date) bool {
	return !s.WithdrawalDate.IsZero() && !s.WithdrawalDate.After(projection)
}

// IsFutureEnrollee reports whether the student's enrollment date is set
// and strictly after the given projection date.
func (s *Student) IsFutureEnrollee(projection dateutil.Date) bool {
	return !s.EnrollmentDate.IsZero() && s.EnrollmentDate.After(projection)
}

// DedupKey returns the case-insensitive name + DOB key used for
// duplicate detection when adding students.
func (s *Student) DedupKey() string {
	return DedupKey(s.Name, s.DOB)
}

// DedupKey builds the duplicate-detection key for a name and DOB.
func DedupKey(name string, dob dateutil.Date) string {
	return strings.ToLower(strings.TrimSpace(name)) + "|" + dob.String()
}

// Clone returns a copy of the student.
func (s *Student) Clone() *Student {
	clone := *s
	return &clone
}

// bulkEntryRe captures a name followed by an M/D/YYYY date. Bulk input
// lines may carry several entries back to back.
var bulkEntryRe = regexp.MustCompile(`([^0-9/]+)(\d{1,2}/\d{1,2}/\d{4})`)

// BulkEntry is one parsed name+DOB pair from pasted bulk input.
type BulkEntry struct {
	Name string
	DOB  dateutil.Date
}

// ParseBulk extracts name + M/D/YYYY pairs from free-form pasted text.
// Entries with impossible dates are skipped.
func ParseBulk(text string) []BulkEntry {
	var out []BulkEntry
	for _, m := range bulkEntryRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(strings.Trim(m[1], ",;\t\n"))
		if name == "" {
			continue
		}
		dob, ok := parseUSDate(m[2])
		if !ok {
			continue
		}
		out = append(out, BulkEntry{Name: name, DOB: dob})
	}
	return out
}

func parseUSDate(s string) (dateutil.Date, bool) {
	t, err := time.Parse("1/2/2006", s)
	if err != nil {
		return dateutil.Date{}, false
	}
	return dateutil.FromTime(t), true
}
