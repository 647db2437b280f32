package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/snapshot"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

const terminal = "Graduated/Withdrawn"

func newEngine(t *testing.T, mutate func(*snapshot.Snapshot)) *Engine {
	t.Helper()
	snap := snapshot.New()
	if mutate != nil {
		mutate(snap)
	}
	return NewEngine(snap)
}

func student(id, dob string) *roster.Student {
	return &roster.Student{ID: id, Name: "Student " + id, DOB: dateutil.MustParse(dob), FTE: 1}
}

func TestResolveMonthBand(t *testing.T) {
	e := newEngine(t, nil)
	st := student("a", "2023-01-15")

	got := e.Resolve(st, dateutil.MustParse("2024-01-15"))
	assert.Equal(t, "Younger Toddler (12-18m)", got)
}

func TestResolveCascadingFallback(t *testing.T) {
	e := newEngine(t, nil)
	st := student("a", "2021-09-01")

	// 40 months old, but the Sep 1 birthday misses the Aug 31 cutoff,
	// so the child is 2 for academic purposes and lands in Early
	// Preschool rather than Preschool or PreK.
	got := e.Resolve(st, dateutil.MustParse("2025-01-01"))
	assert.Equal(t, "Early Preschool (2-3y)", got)
}

func TestResolveAcademicFallbackTiers(t *testing.T) {
	e := newEngine(t, nil)
	proj := dateutil.MustParse("2025-01-01")

	assert.Equal(t, "Preschool (3y+)", e.Resolve(student("a", "2021-06-01"), proj))
	assert.Equal(t, "PreK (4y+)", e.Resolve(student("b", "2020-06-01"), proj))
	assert.Equal(t, terminal, e.Resolve(student("c", "2019-06-01"), proj))
}

func TestResolveWithdrawalWinsOverEverything(t *testing.T) {
	e := newEngine(t, func(s *snapshot.Snapshot) {
		s.Assignments["a"] = "Afterschool"
		s.ManualTransitions["a"] = dateutil.MustParse("2030-01-01")
	})
	st := student("a", "2023-01-15")
	st.WithdrawalDate = dateutil.MustParse("2024-06-01")

	assert.Equal(t, terminal, e.Resolve(st, dateutil.MustParse("2024-06-01")))
	assert.Equal(t, terminal, e.Resolve(st, dateutil.MustParse("2025-01-01")))
	// Before the withdrawal date the manual assignment still applies.
	assert.Equal(t, "Afterschool", e.Resolve(st, dateutil.MustParse("2024-05-31")))
}

func TestResolveManualAssignmentSkipsHiddenClass(t *testing.T) {
	e := newEngine(t, func(s *snapshot.Snapshot) {
		s.Assignments["a"] = "Afterschool"
		for i := range s.Classes {
			if s.Classes[i].Name == "Afterschool" {
				s.Classes[i].Hidden = true
			}
		}
	})
	st := student("a", "2023-01-15")

	// Hidden target: falls through to automatic placement.
	assert.Equal(t, "Younger Toddler (12-18m)", e.Resolve(st, dateutil.MustParse("2024-01-15")))
}

func TestResolveManualTransitionRollForward(t *testing.T) {
	e := newEngine(t, func(s *snapshot.Snapshot) {
		s.ManualTransitions["a"] = dateutil.MustParse("2024-09-01")
	})
	// Automatic class the day before the manual date (2024-08-31) is
	// Early Preschool, so from the manual date on the student occupies
	// its successor.
	st := student("a", "2021-10-01")

	assert.Equal(t, "Early Preschool (2-3y)", e.Resolve(st, dateutil.MustParse("2024-08-31")))
	assert.Equal(t, "Preschool Pathways", e.Resolve(st, dateutil.MustParse("2024-09-01")))
	assert.Equal(t, "Preschool Pathways", e.Resolve(st, dateutil.MustParse("2025-03-01")))
}

func TestResolveIsDeterministic(t *testing.T) {
	e := newEngine(t, nil)
	st := student("a", "2022-03-10")
	proj := dateutil.MustParse("2024-11-05")

	assert.Equal(t, e.Resolve(st, proj), e.Resolve(st, proj))
}

func TestResolveIsTotalForBrokenCatalog(t *testing.T) {
	// A catalog stripped down to a single terminal class still resolves.
	e := newEngine(t, func(s *snapshot.Snapshot) {
		s.Classes = s.Classes[10:]
	})
	st := student("a", "2023-01-15")

	assert.Equal(t, terminal, e.Resolve(st, dateutil.MustParse("2024-01-15")))
}

func TestPromotionIsMonotonic(t *testing.T) {
	e := newEngine(t, nil)
	st := student("a", "2022-02-20")
	cat := e.Catalog()

	orderOf := func(name string) int {
		if name == cat.TerminalName() {
			return 1 << 20
		}
		cls, ok := cat.Find(name)
		require.True(t, ok)
		return cls.Order
	}

	proj := dateutil.MustParse("2022-03-01")
	prev := orderOf(e.Resolve(st, proj))
	for i := 0; i < 100; i++ {
		proj = proj.AddMonths(1)
		cur := orderOf(e.Resolve(st, proj))
		assert.GreaterOrEqual(t, cur, prev, "resolution regressed at %s", proj)
		prev = cur
	}
}

func TestIsWaitlisted(t *testing.T) {
	e := newEngine(t, func(s *snapshot.Snapshot) {
		s.Waitlisted["m"] = "PreK (4y+)"
	})
	proj := dateutil.MustParse("2025-01-01")

	marked := student("m", "2023-01-15")
	assert.True(t, e.IsWaitlisted(marked, "PreK (4y+)", proj))
	assert.False(t, e.IsWaitlisted(marked, "Afterschool", proj))

	// Future enrollment waitlists the student for their resolved class.
	future := student("f", "2023-06-01")
	future.EnrollmentDate = dateutil.MustParse("2025-06-01")
	resolved := e.Resolve(future, proj)
	assert.True(t, e.IsWaitlisted(future, resolved, proj))
	assert.False(t, e.IsWaitlisted(future, terminal, proj))

	// Already-enrolled students are not waitlisted.
	enrolled := student("e", "2023-06-01")
	enrolled.EnrollmentDate = dateutil.MustParse("2024-09-01")
	assert.False(t, e.IsWaitlisted(enrolled, e.Resolve(enrolled, proj), proj))
}

func TestSubdivisionIndex(t *testing.T) {
	e := newEngine(t, func(s *snapshot.Snapshot) {
		s.Subdivisions["a"] = snapshot.SubdivisionSlot{ClassName: "Early Preschool (2-3y)", Index: 2}
	})

	assert.Equal(t, 2, e.SubdivisionIndex("a", "Early Preschool (2-3y)"))
	assert.Equal(t, -1, e.SubdivisionIndex("a", "Preschool (3y+)"))
	assert.Equal(t, -1, e.SubdivisionIndex("unknown", "Early Preschool (2-3y)"))
}
