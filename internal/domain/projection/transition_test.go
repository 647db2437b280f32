package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

func TestNextTransitionDateManualWins(t *testing.T) {
	e := newEngine(t, func(s *snapshot.Snapshot) {
		s.ManualTransitions["a"] = dateutil.MustParse("2025-03-15")
	})
	st := student("a", "2023-01-15")

	got := e.NextTransitionDate(st, "Younger Toddler (12-18m)")
	assert.Equal(t, dateutil.MustParse("2025-03-15"), got)
}

func TestNextTransitionDateAgeBands(t *testing.T) {
	e := newEngine(t, nil)
	st := student("a", "2023-05-15")

	// The young bands age out at DOB + max age in months.
	assert.Equal(t, dateutil.MustParse("2024-01-15"), e.NextTransitionDate(st, "Young Infant (0-8m)"))
	assert.Equal(t, dateutil.MustParse("2024-05-15"), e.NextTransitionDate(st, "Older Infant (8-12m)"))
	assert.Equal(t, dateutil.MustParse("2024-11-15"), e.NextTransitionDate(st, "Younger Toddler (12-18m)"))
	assert.Equal(t, dateutil.MustParse("2025-05-15"), e.NextTransitionDate(st, "Older Toddler (18-24m)"))
}

func TestNextTransitionDateAcademic(t *testing.T) {
	e := newEngine(t, nil)

	// Birthday before the cutoff: transitions the year they turn the
	// target age.
	early := student("a", "2022-05-10")
	assert.Equal(t, dateutil.MustParse("2025-08-31"), e.NextTransitionDate(early, "Early Preschool (2-3y)"))
	assert.Equal(t, dateutil.MustParse("2025-08-31"), e.NextTransitionDate(early, "Preschool Pathways"))
	assert.Equal(t, dateutil.MustParse("2026-08-31"), e.NextTransitionDate(early, "Preschool (3y+)"))
	assert.Equal(t, dateutil.MustParse("2027-08-31"), e.NextTransitionDate(early, "PreK (4y+)"))

	// Birthday after the cutoff: pushed to the following year.
	late := student("b", "2022-09-10")
	assert.Equal(t, dateutil.MustParse("2026-08-31"), e.NextTransitionDate(late, "Early Preschool (2-3y)"))
}

func TestNextTransitionDateNone(t *testing.T) {
	e := newEngine(t, nil)
	st := student("a", "2020-01-01")

	assert.True(t, e.NextTransitionDate(st, terminal).IsZero())
	assert.True(t, e.NextTransitionDate(st, "Transitional Kindergarten").IsZero())
	assert.True(t, e.NextTransitionDate(st, "Afterschool").IsZero())
	assert.True(t, e.NextTransitionDate(st, "No Such Class").IsZero())
}

func TestEffectiveDeparture(t *testing.T) {
	e := newEngine(t, nil)
	proj := dateutil.MustParse("2024-01-01")

	// Natural transition only.
	st := student("a", "2023-05-15")
	date, special := e.EffectiveDeparture(st, "Young Infant (0-8m)", proj)
	assert.Equal(t, dateutil.MustParse("2024-01-15"), date)
	assert.False(t, special)

	// Earlier withdrawal overrides the natural date.
	st.WithdrawalDate = dateutil.MustParse("2024-01-10")
	date, special = e.EffectiveDeparture(st, "Young Infant (0-8m)", proj)
	assert.Equal(t, dateutil.MustParse("2024-01-10"), date)
	assert.True(t, special)

	// A future enrollment earlier than both wins.
	st.EnrollmentDate = dateutil.MustParse("2024-01-05")
	date, special = e.EffectiveDeparture(st, "Young Infant (0-8m)", proj)
	assert.Equal(t, dateutil.MustParse("2024-01-05"), date)
	assert.True(t, special)

	// No departure at all stays zero.
	tk := student("b", "2019-03-01")
	date, special = e.EffectiveDeparture(tk, "Transitional Kindergarten", proj)
	assert.True(t, date.IsZero())
	assert.False(t, special)
}
