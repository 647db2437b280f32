// Package snapshot defines the persisted application state document and
// the store contract for loading and saving it. The whole dashboard
// state is one document; stores treat it as an opaque JSON value.
package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/catalog"
	"github.com/littlesteps-hub/enrollment-hub/internal/domain/roster"
	"github.com/littlesteps-hub/enrollment-hub/pkg/dateutil"
)

// Readiness records that a student was flagged ready to move up while
// attending FromClass. The flag self-invalidates once the student
// resolves into a different class.
type Readiness struct {
	FromClass string `json:"fromClass"`
}

// SubdivisionSlot pins a student to a sub-group of a class.
type SubdivisionSlot struct {
	ClassName string `json:"className"`
	Index     int    `json:"index"`
}

// ColumnOrder holds the per-table column sequences.
type ColumnOrder map[string][]string

// Table keys for ColumnOrder.
const (
	TableMain      = "main"
	TableWaitlist  = "waitlist"
	TableGraduated = "graduated"
)

// DefaultColumnOrder returns the built-in column layout.
func DefaultColumnOrder() ColumnOrder {
	return ColumnOrder{
		TableMain:      {"#", "name", "dob", "class", "transition", "enrollDate", "withdrawDate", "fte", "staff", "promotion", "comments", "actions"},
		TableWaitlist:  {"#", "name", "dob", "waitlistedFor", "enrollDate", "fte", "promotion", "staff", "comments", "actions"},
		TableGraduated: {"#", "name", "dob", "withdrawDate", "fte", "staff", "promotion", "comments", "actions"},
	}
}

// Snapshot is the full persisted state. Field names match the stored
// document; older documents may use "siblings" for the relationship
// graph, which Unmarshal accepts as an alias.
type Snapshot struct {
	Roster            []roster.Student           `json:"roster"`
	Assignments       map[string]string          `json:"assignments"`
	Waitlisted        map[string]string          `json:"waitlisted"`
	Relationships     roster.Graph               `json:"relationships"`
	Readiness         map[string]Readiness       `json:"readiness"`
	Subdivisions      map[string]SubdivisionSlot `json:"subdivisions"`
	DateVisibility    map[string]bool            `json:"dateVisibility"`
	Classes           []catalog.ClassBand        `json:"classSettings"`
	ColumnOrder       ColumnOrder                `json:"columnOrder"`
	ManualTransitions map[string]dateutil.Date   `json:"manualTransitions"`

	// CutoffMonth/CutoffDay extend the legacy document; zero values
	// fall back to the built-in Aug 31 cutoff.
	CutoffMonth time.Month `json:"cutoffMonth,omitempty"`
	CutoffDay   int        `json:"cutoffDay,omitempty"`

	// Revision increments on every state mutation. It is not part of
	// the legacy document and only informs save ordering.
	Revision uint64 `json:"revision,omitempty"`
}

// New returns an empty snapshot with the default catalog and layout.
func New() *Snapshot {
	s := &Snapshot{}
	s.Normalize()
	return s
}

type snapshotAlias Snapshot

type snapshotWire struct {
	snapshotAlias
	Siblings roster.Graph `json:"siblings,omitempty"`
}

// UnmarshalJSON decodes a stored document, accepting the legacy
// "siblings" key when "relationships" is absent.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Relationships == nil {
		wire.Relationships = wire.Siblings
	}
	*s = Snapshot(wire.snapshotAlias)
	return nil
}

// Normalize fills nil maps, applies catalog and column defaults, and
// reconciles a stored column order with columns added since it was
// saved (new default columns are appended, unknown stored keys kept).
func (s *Snapshot) Normalize() {
	if s.Assignments == nil {
		s.Assignments = map[string]string{}
	}
	if s.Waitlisted == nil {
		s.Waitlisted = map[string]string{}
	}
	if s.Relationships == nil {
		s.Relationships = roster.Graph{}
	}
	if s.Readiness == nil {
		s.Readiness = map[string]Readiness{}
	}
	if s.Subdivisions == nil {
		s.Subdivisions = map[string]SubdivisionSlot{}
	}
	if s.DateVisibility == nil {
		s.DateVisibility = map[string]bool{}
	}
	if s.ManualTransitions == nil {
		s.ManualTransitions = map[string]dateutil.Date{}
	}
	if len(s.Classes) == 0 {
		s.Classes = catalog.Default().Classes
	}

	defaults := DefaultColumnOrder()
	if s.ColumnOrder == nil {
		s.ColumnOrder = defaults
	} else {
		for table, defaultKeys := range defaults {
			stored, ok := s.ColumnOrder[table]
			if !ok {
				s.ColumnOrder[table] = defaultKeys
				continue
			}
			present := make(map[string]struct{}, len(stored))
			for _, k := range stored {
				present[k] = struct{}{}
			}
			for _, k := range defaultKeys {
				if _, ok := present[k]; !ok {
					stored = append(stored, k)
				}
			}
			s.ColumnOrder[table] = stored
		}
	}

	cat := s.Catalog()
	s.CutoffMonth = cat.CutoffMonth
	s.CutoffDay = cat.CutoffDay
	s.Classes = cat.Classes
}

// Catalog assembles the normalized class catalog from the snapshot.
func (s *Snapshot) Catalog() catalog.Catalog {
	cat := catalog.Catalog{
		Classes:     s.Classes,
		CutoffMonth: s.CutoffMonth,
		CutoffDay:   s.CutoffDay,
	}
	cat.Normalize()
	return cat
}

// FindStudent returns the roster entry with the given ID.
func (s *Snapshot) FindStudent(id string) (*roster.Student, bool) {
	for i := range s.Roster {
		if s.Roster[i].ID == id {
			return &s.Roster[i], true
		}
	}
	return nil, false
}

// RemoveStudent deletes a student and every per-student override
// referencing them, including their relationship links.
func (s *Snapshot) RemoveStudent(id string) bool {
	found := false
	for i := range s.Roster {
		if s.Roster[i].ID == id {
			s.Roster = append(s.Roster[:i], s.Roster[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}
	delete(s.Assignments, id)
	delete(s.Waitlisted, id)
	delete(s.Readiness, id)
	delete(s.Subdivisions, id)
	delete(s.ManualTransitions, id)
	s.Relationships.RemoveStudent(id)
	return true
}

// Clear empties the roster and every per-student map. Class settings,
// date visibility and column layout survive a clear.
func (s *Snapshot) Clear() {
	s.Roster = nil
	s.Assignments = map[string]string{}
	s.Waitlisted = map[string]string{}
	s.Relationships = roster.Graph{}
	s.Readiness = map[string]Readiness{}
	s.Subdivisions = map[string]SubdivisionSlot{}
	s.ManualTransitions = map[string]dateutil.Date{}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		CutoffMonth: s.CutoffMonth,
		CutoffDay:   s.CutoffDay,
		Revision:    s.Revision,
	}
	clone.Roster = append([]roster.Student(nil), s.Roster...)
	clone.Assignments = copyMap(s.Assignments)
	clone.Waitlisted = copyMap(s.Waitlisted)
	clone.Relationships = s.Relationships.Clone()
	clone.Readiness = copyMap(s.Readiness)
	clone.Subdivisions = copyMap(s.Subdivisions)
	clone.DateVisibility = copyMap(s.DateVisibility)
	clone.ManualTransitions = copyMap(s.ManualTransitions)
	clone.Classes = make([]catalog.ClassBand, len(s.Classes))
	for i := range s.Classes {
		clone.Classes[i] = s.Classes[i].Clone()
	}
	clone.ColumnOrder = make(ColumnOrder, len(s.ColumnOrder))
	for k, v := range s.ColumnOrder {
		clone.ColumnOrder[k] = append([]string(nil), v...)
	}
	return clone
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// Store persists the snapshot document.
type Store interface {
	// Load returns the stored snapshot, or (nil, nil) when none exists.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the stored snapshot.
	Save(ctx context.Context, snap *Snapshot) error
}

// ProjectionDateStore persists the shared projection date separately
// from the snapshot document.
type ProjectionDateStore interface {
	// LoadProjectionDate returns the stored date, or the zero Date
	// when none is stored.
	LoadProjectionDate(ctx context.Context) (dateutil.Date, error)
	SaveProjectionDate(ctx context.Context, d dateutil.Date) error
}
