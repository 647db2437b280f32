package roster

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

func TestNewStudentDefaults(t *testing.T) {
	s, err := NewStudent(NewStudentParams{
		Name: "  Mia Park  ",
		DOB:  dateutil.MustParse("2022-04-10"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Mia Park", s.Name)
	assert.Equal(t, 1.0, s.FTE)
	assert.True(t, s.EnrollmentDate.IsZero())
	assert.True(t, s.WithdrawalDate.IsZero())
	assert.False(t, s.IsStaffChild)
}

func TestNewStudentValidation(t *testing.T) {
	_, err := NewStudent(NewStudentParams{Name: "   ", DOB: dateutil.MustParse("2022-04-10")})
	assert.ErrorIs(t, err, shared.ErrEmptyName)

	_, err = NewStudent(NewStudentParams{Name: "No Birthday"})
	assert.ErrorIs(t, err, shared.ErrInvalidDOB)

	_, err = NewStudent(NewStudentParams{Name: "Over", DOB: dateutil.MustParse("2022-04-10"), FTE: 1.5})
	assert.ErrorIs(t, err, shared.ErrInvalidFTE)
}

func TestStudentUnmarshalFTEDefaults(t *testing.T) {
	// Legacy documents omit the fte key entirely.
	var legacy Student
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","name":"Kid","dob":"2023-01-15"}`), &legacy))
	assert.Equal(t, 1.0, legacy.FTE, "missing fte decodes as full time")

	var partTime Student
	require.NoError(t, json.Unmarshal([]byte(`{"id":"b","name":"Part","dob":"2023-01-15","fte":0}`), &partTime))
	assert.Equal(t, 0.0, partTime.FTE, "explicit zero survives the round trip")

	var half Student
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c","name":"Half","dob":"2023-01-15","fte":0.5}`), &half))
	assert.Equal(t, 0.5, half.FTE)
}

func TestWithdrawalAndFutureEnrollment(t *testing.T) {
	proj := dateutil.MustParse("2025-06-01")
	s := &Student{Name: "A", DOB: dateutil.MustParse("2021-01-01")}

	assert.False(t, s.IsWithdrawnAt(proj))
	s.WithdrawalDate = dateutil.MustParse("2025-06-01")
	assert.True(t, s.IsWithdrawnAt(proj), "withdrawal on the projection date counts")
	s.WithdrawalDate = dateutil.MustParse("2025-06-02")
	assert.False(t, s.IsWithdrawnAt(proj))

	s.EnrollmentDate = dateutil.MustParse("2025-09-01")
	assert.True(t, s.IsFutureEnrollee(proj))
	s.EnrollmentDate = dateutil.MustParse("2025-06-01")
	assert.False(t, s.IsFutureEnrollee(proj), "enrollment on the projection date is not future")
}

func TestDedupKey(t *testing.T) {
	dob := dateutil.MustParse("2021-07-04")
	assert.Equal(t, DedupKey("  ROSA Lee ", dob), DedupKey("rosa lee", dob))
	assert.NotEqual(t, DedupKey("Rosa Lee", dob), DedupKey("Rosa Lee", dateutil.MustParse("2021-07-05")))
}

func TestParseBulk(t *testing.T) {
	entries := ParseBulk("Ada Chen 3/5/2022, Ben Ortiz 11/28/2021\nCleo Park 1/9/2023")
	require.Len(t, entries, 3)

	assert.Equal(t, "Ada Chen", entries[0].Name)
	assert.Equal(t, dateutil.MustParse("2022-03-05"), entries[0].DOB)
	assert.Equal(t, "Ben Ortiz", entries[1].Name)
	assert.Equal(t, dateutil.MustParse("2021-11-28"), entries[1].DOB)
	assert.Equal(t, "Cleo Park", entries[2].Name)
	assert.Equal(t, dateutil.MustParse("2023-01-09"), entries[2].DOB)
}

func TestParseBulkSkipsImpossibleDates(t *testing.T) {
	entries := ParseBulk("Bad Date 13/45/2022 Good Kid 6/15/2022")
	require.Len(t, entries, 1)
	assert.Equal(t, "Good Kid", entries[0].Name)
}
