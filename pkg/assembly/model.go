// Package assembly defines the aircraft model: components with parent
// links, symmetry and geometry, plus an optional far field. A model is
// produced by evaluating a script and consumed by the fusing pipeline
// through Build.
package assembly

import (
	"fmt"

	"github.com/chazu/aerofuse/pkg/kernel"
)

// Kind is the role of a component in the aircraft.
type Kind int

const (
	KindGeneric    Kind = iota // anything else (pylon, fairing)
	KindFuselage               // fuselage body
	KindWing                   // lifting surface
	KindRotorBlade             // rotor blade
	KindDuct                   // internal duct, never fused
)

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	case KindFuselage:
		return "fuselage"
	case KindWing:
		return "wing"
	case KindRotorBlade:
		return "rotor-blade"
	case KindDuct:
		return "duct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind returns the kind whose String form is s.
func ParseKind(s string) (Kind, error) {
	for k := KindGeneric; k <= KindDuct; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return KindGeneric, fmt.Errorf("unknown component kind %q", s)
}

// Symmetry is the mirror plane of a component.
type Symmetry int

const (
	SymmetryNone Symmetry = iota
	SymmetryXY
	SymmetryXZ
	SymmetryYZ
)

func (s Symmetry) String() string {
	switch s {
	case SymmetryNone:
		return "none"
	case SymmetryXY:
		return "xy"
	case SymmetryXZ:
		return "xz"
	case SymmetryYZ:
		return "yz"
	default:
		return fmt.Sprintf("Symmetry(%d)", int(s))
	}
}

// ParseSymmetry returns the symmetry whose String form is s.
func ParseSymmetry(s string) (Symmetry, error) {
	for sym := SymmetryNone; sym <= SymmetryYZ; sym++ {
		if sym.String() == s {
			return sym, nil
		}
	}
	return SymmetryNone, fmt.Errorf("unknown symmetry %q", s)
}

// Plane returns the kernel mirror plane. It must not be called on
// SymmetryNone.
func (s Symmetry) Plane() kernel.Plane {
	switch s {
	case SymmetryXY:
		return kernel.PlaneXY
	case SymmetryYZ:
		return kernel.PlaneYZ
	default:
		return kernel.PlaneXZ
	}
}

// axis returns the coordinate the mirror plane is normal to.
func (s Symmetry) axis() int {
	switch s {
	case SymmetryXY:
		return 2
	case SymmetryYZ:
		return 0
	default:
		return 1
	}
}

// SourceRef locates the script form that defined a component.
type SourceRef struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

func (r SourceRef) String() string {
	if r.File == "" {
		return fmt.Sprintf("line %d", r.Line)
	}
	return fmt.Sprintf("%s:%d", r.File, r.Line)
}

// Component is one part of the aircraft.
type Component struct {
	UID       string    `json:"uid"`
	ShortName string    `json:"short_name,omitempty"`
	Parent    string    `json:"parent,omitempty"` // empty for root components
	Kind      Kind      `json:"kind"`
	Symmetry  Symmetry  `json:"symmetry"`
	Geometry  Geometry  `json:"geometry"`
	Source    SourceRef `json:"source"`
}

// Model is an aircraft configuration. Components keep the order in which
// they were added; children are fused in that order.
type Model struct {
	UID        string       `json:"uid"`
	Components []*Component `json:"components"`
	FarField   FarField     `json:"far_field"`

	index map[string]*Component
}

// New creates an empty model.
func New(uid string) *Model {
	return &Model{UID: uid, index: make(map[string]*Component)}
}

// Add appends a component. Duplicate UIDs are reported by Validate; the
// first component with a UID wins lookups.
func (m *Model) Add(c *Component) {
	if m.index == nil {
		m.index = make(map[string]*Component, len(m.Components)+1)
		for _, prev := range m.Components {
			if _, ok := m.index[prev.UID]; !ok {
				m.index[prev.UID] = prev
			}
		}
	}
	m.Components = append(m.Components, c)
	if _, ok := m.index[c.UID]; !ok {
		m.index[c.UID] = c
	}
}

// Lookup returns the component with the given UID, or nil.
func (m *Model) Lookup(uid string) *Component {
	return m.index[uid]
}

// MustLookup returns the component with the given UID, or panics.
func (m *Model) MustLookup(uid string) *Component {
	c := m.Lookup(uid)
	if c == nil {
		panic(fmt.Sprintf("assembly: no component %q", uid))
	}
	return c
}

// Roots returns the components without a parent.
func (m *Model) Roots() []*Component {
	var roots []*Component
	for _, c := range m.Components {
		if c.Parent == "" {
			roots = append(roots, c)
		}
	}
	return roots
}

// Children returns the components whose parent is uid.
func (m *Model) Children(uid string) []*Component {
	var children []*Component
	for _, c := range m.Components {
		if c.Parent == uid && c.UID != uid {
			children = append(children, c)
		}
	}
	return children
}

// Len returns the number of components.
func (m *Model) Len() int {
	return len(m.Components)
}
