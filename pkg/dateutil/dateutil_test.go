package dateutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("2023-01-15")
	require.NoError(t, err)
	assert.Equal(t, 2023, d.Year)
	assert.Equal(t, time.January, d.Month)
	assert.Equal(t, 15, d.Day)
	assert.Equal(t, "2023-01-15", d.String())

	empty, err := Parse("")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
	assert.Equal(t, "", empty.String())

	_, err = Parse("15/01/2023")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestJSONRoundTrip(t *testing.T) {
	type doc struct {
		DOB      Date `json:"dob"`
		Withdraw Date `json:"withdrawalDate"`
	}

	var parsed doc
	err := json.Unmarshal([]byte(`{"dob":"2021-09-01","withdrawalDate":""}`), &parsed)
	require.NoError(t, err)
	assert.Equal(t, MustParse("2021-09-01"), parsed.DOB)
	assert.True(t, parsed.Withdraw.IsZero())

	out, err := json.Marshal(parsed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dob":"2021-09-01","withdrawalDate":""}`, string(out))
}

func TestComparisons(t *testing.T) {
	a := MustParse("2024-08-31")
	b := MustParse("2024-09-01")

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.Equal(MustParse("2024-08-31")))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 0, a.Compare(a))
}

func TestAddDaysAndMonths(t *testing.T) {
	d := MustParse("2024-03-01")
	assert.Equal(t, MustParse("2024-02-29"), d.AddDays(-1)) // leap year

	dob := MustParse("2023-05-15")
	assert.Equal(t, MustParse("2024-01-15"), dob.AddMonths(8))

	// Day overflow normalizes forward like time.AddDate.
	assert.Equal(t, MustParse("2024-03-02"), MustParse("2024-01-31").AddMonths(1))
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 12, MonthsBetween(MustParse("2023-01-15"), MustParse("2024-01-15")))
	// Day-of-month is ignored: Jan 31 -> Feb 1 is still one month.
	assert.Equal(t, 1, MonthsBetween(MustParse("2023-01-31"), MustParse("2023-02-01")))
	// Negative spans clamp to zero.
	assert.Equal(t, 0, MonthsBetween(MustParse("2024-01-15"), MustParse("2023-01-15")))
	assert.Equal(t, 0, MonthsBetween(MustParse("2023-01-15"), MustParse("2023-01-20")))
}

func TestYearsBetween(t *testing.T) {
	dob := MustParse("2020-06-15")

	// Day before the birthday: still 3.
	assert.Equal(t, 3, YearsBetween(dob, MustParse("2024-06-14")))
	// On the birthday: 4.
	assert.Equal(t, 4, YearsBetween(dob, MustParse("2024-06-15")))
	// Reversed arguments clamp to zero.
	assert.Equal(t, 0, YearsBetween(MustParse("2024-06-15"), dob))
}

func TestAgeAtCutoff(t *testing.T) {
	// Projection in January precedes the August cutoff, so the governing
	// cutoff is the previous year's.
	age := AgeAtCutoff(MustParse("2021-09-01"), MustParse("2025-01-01"), time.August, 31)
	assert.Equal(t, 2, age, "birthday after the 2024-08-31 cutoff is not credited that year")

	// Born just before the cutoff: credited at the cutoff itself.
	age = AgeAtCutoff(MustParse("2021-08-30"), MustParse("2025-01-01"), time.August, 31)
	assert.Equal(t, 3, age)

	// Projection after the cutoff month uses the current year's cutoff.
	age = AgeAtCutoff(MustParse("2020-05-01"), MustParse("2024-10-01"), time.August, 31)
	assert.Equal(t, 4, age)
}
