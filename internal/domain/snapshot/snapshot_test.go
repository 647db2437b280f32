package snapshot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

func TestNewSnapshotDefaults(t *testing.T) {
	s := New()

	assert.Empty(t, s.Roster)
	assert.NotNil(t, s.Assignments)
	assert.NotNil(t, s.Relationships)
	assert.Len(t, s.Classes, 11)
	assert.Equal(t, time.August, s.CutoffMonth)
	assert.Equal(t, 31, s.CutoffDay)
	assert.Equal(t, DefaultColumnOrder(), s.ColumnOrder)
}

func TestUnmarshalAcceptsLegacySiblingsKey(t *testing.T) {
	doc := `{
		"roster": [{"id":"a","name":"Ada","dob":"2022-01-01","enrollmentDate":"","withdrawalDate":"","fte":1,"partner":"","comments":"","isStaffChild":false}],
		"siblings": {"a":[{"id":"b","type":"S"}],"b":[{"id":"a","type":"S"}]}
	}`
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(doc), &s))
	s.Normalize()

	assert.ElementsMatch(t, []string{"b"}, s.Relationships.Peers("a"))
	assert.True(t, s.Relationships.Symmetric())
}

func TestUnmarshalPrefersRelationshipsOverSiblings(t *testing.T) {
	doc := `{
		"relationships": {"a":[{"id":"b","type":"F"}],"b":[{"id":"a","type":"F"}]},
		"siblings": {"a":[{"id":"c","type":"S"}]}
	}`
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(doc), &s))

	assert.ElementsMatch(t, []string{"b"}, s.Relationships.Peers("a"))
}

func TestNormalizeReconcilesColumnOrder(t *testing.T) {
	var s Snapshot
	s.ColumnOrder = ColumnOrder{
		TableMain: {"name", "dob", "customNotes"},
	}
	s.Normalize()

	main := s.ColumnOrder[TableMain]
	assert.Equal(t, []string{"name", "dob", "customNotes"}, main[:3], "stored order is preserved")
	assert.Contains(t, main, "transition", "new default columns are appended")
	assert.Contains(t, main, "actions")
	assert.Equal(t, DefaultColumnOrder()[TableWaitlist], s.ColumnOrder[TableWaitlist])
}

func TestNormalizeInfersRolesForLegacyClassSettings(t *testing.T) {
	doc := `{"classSettings":[
		{"name":"Preschool (3y+) Butterflies","capacity":20,"order":0},
		{"name":"Graduated/Withdrawn","capacity":0,"order":1,"isSpecial":true}
	]}`
	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(doc), &s))
	s.Normalize()

	cat := s.Catalog()
	cls, ok := cat.ByRole("preschool")
	require.True(t, ok)
	assert.Equal(t, "Preschool (3y+) Butterflies", cls.Name)
	assert.Equal(t, "Graduated/Withdrawn", cat.TerminalName())
}

func TestRemoveStudentClearsOverrides(t *testing.T) {
	s := New()
	s.Roster = []roster.Student{
		{ID: "a", Name: "Ada", DOB: dateutil.MustParse("2022-01-01")},
		{ID: "b", Name: "Ben", DOB: dateutil.MustParse("2022-02-01")},
	}
	s.Assignments["a"] = "Afterschool"
	s.Waitlisted["a"] = "PreK (4y+)"
	s.Readiness["a"] = Readiness{FromClass: "Older Toddler (18-24m)"}
	s.Subdivisions["a"] = SubdivisionSlot{ClassName: "Early Preschool (2-3y)", Index: 1}
	s.ManualTransitions["a"] = dateutil.MustParse("2025-09-01")
	require.NoError(t, s.Relationships.LinkGroup("a", []string{"b"}, roster.LinkSibling))

	require.True(t, s.RemoveStudent("a"))

	assert.Len(t, s.Roster, 1)
	assert.Empty(t, s.Assignments)
	assert.Empty(t, s.Waitlisted)
	assert.Empty(t, s.Readiness)
	assert.Empty(t, s.Subdivisions)
	assert.Empty(t, s.ManualTransitions)
	assert.Empty(t, s.Relationships)

	assert.False(t, s.RemoveStudent("missing"))
}

func TestClearKeepsSettings(t *testing.T) {
	s := New()
	s.Roster = []roster.Student{{ID: "a", Name: "Ada", DOB: dateutil.MustParse("2022-01-01")}}
	s.Assignments["a"] = "Afterschool"
	s.DateVisibility["PreK (4y+)"] = true
	s.Classes[0].Capacity = 12

	s.Clear()

	assert.Empty(t, s.Roster)
	assert.Empty(t, s.Assignments)
	assert.True(t, s.DateVisibility["PreK (4y+)"])
	assert.Equal(t, 12, s.Classes[0].Capacity)
}

func TestCloneIsDeep(t *testing.T) {
	s := New()
	s.Roster = []roster.Student{{ID: "a", Name: "Ada", DOB: dateutil.MustParse("2022-01-01")}}
	s.Assignments["a"] = "Afterschool"

	clone := s.Clone()
	clone.Roster[0].Name = "Changed"
	clone.Assignments["a"] = "PreK (4y+)"
	clone.Classes[0].Capacity = 99
	clone.ColumnOrder[TableMain][0] = "changed"

	assert.Equal(t, "Ada", s.Roster[0].Name)
	assert.Equal(t, "Afterschool", s.Assignments["a"])
	assert.Equal(t, 8, s.Classes[0].Capacity)
	assert.Equal(t, "#", s.ColumnOrder[TableMain][0])
}

func TestRoundTripPreservesDocument(t *testing.T) {
	s := New()
	s.Roster = []roster.Student{{ID: "a", Name: "Ada", DOB: dateutil.MustParse("2022-01-01"), FTE: 0.5}}
	s.ManualTransitions["a"] = dateutil.MustParse("2025-09-01")
	s.Revision = 7

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	back.Normalize()

	assert.Equal(t, s.Roster, back.Roster)
	assert.Equal(t, s.ManualTransitions, back.ManualTransitions)
	assert.Equal(t, uint64(7), back.Revision)
}
