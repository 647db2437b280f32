// Package catalog contains the class-band catalog: the ordered,
// configurable set of age-banded classes a student can resolve into.
// The catalog defines both the UI order and the promotion sequence.
package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/littlesteps-hub/enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Role is a stable tag identifying a class band's position in the
// precedence rules. Resolution keys off the role; name-prefix matching
// is kept only as a fallback for snapshots stored before roles existed.
type Role string

const (
	RoleYoungInfant    Role = "youngInfant"
	RoleOlderInfant    Role = "olderInfant"
	RoleYoungerToddler Role = "youngerToddler"
	RoleOlderToddler   Role = "olderToddler"
	RoleEarlyPreschool Role = "earlyPreschool"
	RolePathways       Role = "pathways"
	RolePreschool      Role = "preschool"
	RolePreK           Role = "preK"
	RoleTransitionalK  Role = "transitionalK"
	RoleAfterschool    Role = "afterschool"
	RoleTerminal       Role = "terminal"
)

// IsValid checks that the role is one of the known tags.
func (r Role) IsValid() bool {
	switch r {
	case RoleYoungInfant, RoleOlderInfant, RoleYoungerToddler, RoleOlderToddler,
		RoleEarlyPreschool, RolePathways, RolePreschool, RolePreK,
		RoleTransitionalK, RoleAfterschool, RoleTerminal:
		return true
	default:
		return false
	}
}

// legacyPrefix returns the name prefix the original dashboard used to
// locate this role when no role tags are stored.
func (r Role) legacyPrefix() string {
	switch r {
	case RoleYoungInfant:
		return "Young Infant"
	case RoleOlderInfant:
		return "Older Infant"
	case RoleYoungerToddler:
		return "Younger Toddler"
	case RoleOlderToddler:
		return "Older Toddler"
	case RoleEarlyPreschool:
		return "Early Preschool"
	case RolePathways:
		return "Preschool Pathways"
	case RolePreschool:
		return "Preschool (3y+)"
	case RolePreK:
		return "PreK"
	case RoleTransitionalK:
		return "Transitional Kindergarten"
	case RoleAfterschool:
		return "Afterschool"
	case RoleTerminal:
		return "Graduated/Withdrawn"
	default:
		return ""
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASS BAND
// ══════════════════════════════════════════════════════════════════════════════

// MaxSubdivisions is the largest allowed number of sub-groups per class.
const MaxSubdivisions = 4

// ClassBand is a named capacity bucket with an optional age band (in
// months) and a position in the promotion sequence. The name doubles as
// the foreign key in every override map, so it must be unique.
type ClassBand struct {
	// Name is the unique display name ("Younger Toddler (12-18m)").
	Name string `json:"name"`

	// Role tags the band for precedence rules, independent of the name.
	Role Role `json:"role,omitempty"`

	// Capacity is the soft headcount limit; 0 means "not applicable".
	Capacity int `json:"capacity"`

	// Hidden removes the class from dashboards and disables manual
	// assignments targeting it. Hidden classes keep their order slot.
	Hidden bool `json:"hidden"`

	// Order defines both UI order and the promotion sequence.
	Order int `json:"order"`

	// MinAge/MaxAge bound automatic eligibility in months
	// ([MinAge, MaxAge), nil = no bound). Only the youngest bands
	// carry both.
	MinAge *int `json:"minAge,omitempty"`
	MaxAge *int `json:"maxAge,omitempty"`

	// Subdivisions is the number of sub-groups (1-4).
	Subdivisions int `json:"subdivisions,omitempty"`

	// SubdivisionNames and SubdivisionCaps are keyed by subdivision index.
	SubdivisionNames map[int]string `json:"subdivisionNames,omitempty"`
	SubdivisionCaps  map[int]int    `json:"subdivisionCaps,omitempty"`

	// IsSpecial marks the single terminal band (Graduated/Withdrawn).
	IsSpecial bool `json:"isSpecial,omitempty"`
}

// HasAgeBand reports whether the band carries an explicit month range.
func (c *ClassBand) HasAgeBand() bool {
	return c.MinAge != nil && c.MaxAge != nil
}

// ContainsAgeMonths reports whether ageInMonths falls inside the band's
// [MinAge, MaxAge) range. Bands without a range match nothing.
func (c *ClassBand) ContainsAgeMonths(ageInMonths int) bool {
	return c.HasAgeBand() && ageInMonths >= *c.MinAge && ageInMonths < *c.MaxAge
}

// SubdivisionCount returns the effective subdivision count (minimum 1).
func (c *ClassBand) SubdivisionCount() int {
	if c.Subdivisions < 1 {
		return 1
	}
	return c.Subdivisions
}

// Validate checks the band's own invariants.
func (c *ClassBand) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewDomainError("catalog", "Validate", shared.ErrEmptyValue, "class name is required")
	}
	if c.Capacity < 0 {
		return shared.ErrNegativeCapacity
	}
	if c.Subdivisions != 0 && (c.Subdivisions < 1 || c.Subdivisions > MaxSubdivisions) {
		return shared.ErrInvalidSubdivisions
	}
	if c.Role != "" && !c.Role.IsValid() {
		return shared.NewDomainError("catalog", "Validate", shared.ErrInvalidInput, "unknown class role")
	}
	return nil
}

// Clone returns a deep copy of the band.
func (c *ClassBand) Clone() ClassBand {
	clone := *c
	if c.MinAge != nil {
		v := *c.MinAge
		clone.MinAge = &v
	}
	if c.MaxAge != nil {
		v := *c.MaxAge
		clone.MaxAge = &v
	}
	if c.SubdivisionNames != nil {
		clone.SubdivisionNames = make(map[int]string, len(c.SubdivisionNames))
		for k, v := range c.SubdivisionNames {
			clone.SubdivisionNames[k] = v
		}
	}
	if c.SubdivisionCaps != nil {
		clone.SubdivisionCaps = make(map[int]int, len(c.SubdivisionCaps))
		for k, v := range c.SubdivisionCaps {
			clone.SubdivisionCaps[k] = v
		}
	}
	return clone
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog is the full ordered set of class bands plus the academic-year
// cutoff configuration. It is part of the persisted snapshot.
type Catalog struct {
	Classes []ClassBand `json:"classes"`

	// CutoffMonth/CutoffDay define the yearly academic cutoff
	// (default Aug 31).
	CutoffMonth time.Month `json:"cutoffMonth"`
	CutoffDay   int        `json:"cutoffDay"`
}

func intPtr(v int) *int { return &v }

// Default returns the built-in catalog the original dashboard ships with.
func Default() Catalog {
	return Catalog{
		CutoffMonth: time.August,
		CutoffDay:   31,
		Classes: []ClassBand{
			{Name: "Young Infant (0-8m)", Role: RoleYoungInfant, Capacity: 8, Order: 0, MinAge: intPtr(0), MaxAge: intPtr(8), Subdivisions: 1},
			{Name: "Older Infant (8-12m)", Role: RoleOlderInfant, Capacity: 8, Order: 1, MinAge: intPtr(8), MaxAge: intPtr(12), Subdivisions: 1},
			{Name: "Younger Toddler (12-18m)", Role: RoleYoungerToddler, Capacity: 18, Order: 2, MinAge: intPtr(12), MaxAge: intPtr(18), Subdivisions: 1},
			{Name: "Older Toddler (18-24m)", Role: RoleOlderToddler, Capacity: 18, Order: 3, MinAge: intPtr(18), MaxAge: intPtr(24), Subdivisions: 1},
			{Name: "Early Preschool (2-3y)", Role: RoleEarlyPreschool, Capacity: 48, Order: 4, Subdivisions: 1},
			{Name: "Preschool Pathways", Role: RolePathways, Capacity: 16, Order: 5, Subdivisions: 1},
			{Name: "Preschool (3y+)", Role: RolePreschool, Capacity: 48, Order: 6, Subdivisions: 1},
			{Name: "PreK (4y+)", Role: RolePreK, Capacity: 48, Order: 7, Subdivisions: 1},
			{Name: "Transitional Kindergarten", Role: RoleTransitionalK, Capacity: 0, Order: 8, Subdivisions: 1},
			{Name: "Afterschool", Role: RoleAfterschool, Capacity: 10, Order: 9, Subdivisions: 1},
			{Name: "Graduated/Withdrawn", Role: RoleTerminal, Capacity: 0, Order: 10, IsSpecial: true},
		},
	}
}

// Normalize fills defaults on a catalog loaded from storage: zero cutoff
// falls back to Aug 31, and bands without role tags get them inferred
// from the legacy name prefixes.
func (c *Catalog) Normalize() {
	if c.CutoffMonth == 0 {
		c.CutoffMonth = time.August
	}
	if c.CutoffDay == 0 {
		c.CutoffDay = 31
	}
	roles := []Role{
		RoleYoungInfant, RoleOlderInfant, RoleYoungerToddler, RoleOlderToddler,
		RoleEarlyPreschool, RolePathways, RolePreschool, RolePreK,
		RoleTransitionalK, RoleAfterschool, RoleTerminal,
	}
	for i := range c.Classes {
		cls := &c.Classes[i]
		if cls.Role != "" {
			continue
		}
		if cls.IsSpecial {
			cls.Role = RoleTerminal
			continue
		}
		for _, role := range roles {
			if strings.HasPrefix(cls.Name, role.legacyPrefix()) {
				cls.Role = role
				break
			}
		}
	}
}

// Validate checks catalog-wide invariants: unique names, per-band
// validity, and exactly one terminal band without a MaxAge.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Classes))
	terminals := 0
	for i := range c.Classes {
		cls := &c.Classes[i]
		if err := cls.Validate(); err != nil {
			return err
		}
		if _, dup := seen[cls.Name]; dup {
			return shared.ErrDuplicateClassName
		}
		seen[cls.Name] = struct{}{}
		if cls.IsSpecial {
			terminals++
			if cls.MaxAge != nil {
				return shared.NewDomainError("catalog", "Validate", shared.ErrInvalidState, "terminal class cannot carry a max age")
			}
		}
	}
	if terminals != 1 {
		return shared.ErrMissingTerminalClass
	}
	return nil
}

// Find returns the band with the given name.
func (c *Catalog) Find(name string) (*ClassBand, bool) {
	for i := range c.Classes {
		if c.Classes[i].Name == name {
			return &c.Classes[i], true
		}
	}
	return nil, false
}

// ByRole returns the band tagged with the given role, falling back to
// the legacy name-prefix lookup for untagged catalogs.
func (c *Catalog) ByRole(role Role) (*ClassBand, bool) {
	for i := range c.Classes {
		if c.Classes[i].Role == role {
			return &c.Classes[i], true
		}
	}
	prefix := role.legacyPrefix()
	if prefix == "" {
		return nil, false
	}
	for i := range c.Classes {
		if strings.HasPrefix(c.Classes[i].Name, prefix) {
			return &c.Classes[i], true
		}
	}
	return nil, false
}

// TerminalName returns the name of the terminal band. The default name
// is returned when a malformed catalog has no special band, so callers
// never receive an empty class name.
func (c *Catalog) TerminalName() string {
	for i := range c.Classes {
		if c.Classes[i].IsSpecial {
			return c.Classes[i].Name
		}
	}
	return "Graduated/Withdrawn"
}

// Promotable returns all non-special bands in ascending display order.
func (c *Catalog) Promotable() []ClassBand {
	out := make([]ClassBand, 0, len(c.Classes))
	for i := range c.Classes {
		if !c.Classes[i].IsSpecial {
			out = append(out, c.Classes[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Visible returns all non-hidden, non-special bands in display order.
func (c *Catalog) Visible() []ClassBand {
	promotable := c.Promotable()
	out := promotable[:0]
	for _, cls := range promotable {
		if !cls.Hidden {
			out = append(out, cls)
		}
	}
	return out
}

// NextClass returns the promotable band immediately after currentName
// in display order. The terminal band is returned when currentName is
// the last promotable band or is not found.
func (c *Catalog) NextClass(currentName string) string {
	promotable := c.Promotable()
	for i, cls := range promotable {
		if cls.Name == currentName {
			if i+1 < len(promotable) {
				return promotable[i+1].Name
			}
			return c.TerminalName()
		}
	}
	return c.TerminalName()
}

// Reorder applies a new display order given the full list of class names
// in their new sequence. Names absent from the list keep their order.
func (c *Catalog) Reorder(orderedNames []string) {
	for i := range c.Classes {
		for idx, name := range orderedNames {
			if c.Classes[i].Name == name {
				c.Classes[i].Order = idx
				break
			}
		}
	}
}

// Clone returns a deep copy of the catalog.
func (c *Catalog) Clone() Catalog {
	clone := Catalog{CutoffMonth: c.CutoffMonth, CutoffDay: c.CutoffDay}
	clone.Classes = make([]ClassBand, len(c.Classes))
	for i := range c.Classes {
		clone.Classes[i] = c.Classes[i].Clone()
	}
	return clone
}
