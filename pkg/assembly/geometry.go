package assembly

import (
	"fmt"
	"math"

	"github.com/chazu/aerofuse/pkg/kernel"
)

// Geometry is the solid a component is built from.
type Geometry interface {
	// Build creates the solid in k.
	Build(k kernel.Kernel) (kernel.Shape, error)
	// Bounds returns the axis-aligned bounding box.
	Bounds() (min, max kernel.Point)
	geometry() // marker method restricting implementations to this package
}

// BoxGeometry is an axis-aligned box.
type BoxGeometry struct {
	Min kernel.Point `json:"min"`
	Max kernel.Point `json:"max"`
}

func (BoxGeometry) geometry() {}

func (g BoxGeometry) Build(k kernel.Kernel) (kernel.Shape, error) {
	return k.Box(g.Min, g.Max)
}

func (g BoxGeometry) Bounds() (min, max kernel.Point) { return g.Min, g.Max }

// PrismGeometry sweeps a convex XZ profile along Y, the usual way a
// wing section is extruded spanwise.
type PrismGeometry struct {
	Profile [][2]float64 `json:"profile"`
	From    float64      `json:"from"`
	To      float64      `json:"to"`
}

func (PrismGeometry) geometry() {}

func (g PrismGeometry) Build(k kernel.Kernel) (kernel.Shape, error) {
	return k.Prism(g.Profile, g.From, g.To)
}

func (g PrismGeometry) Bounds() (min, max kernel.Point) {
	min = kernel.Point{math.Inf(1), math.Min(g.From, g.To), math.Inf(1)}
	max = kernel.Point{math.Inf(-1), math.Max(g.From, g.To), math.Inf(-1)}
	for _, p := range g.Profile {
		min[0] = math.Min(min[0], p[0])
		max[0] = math.Max(max[0], p[0])
		min[2] = math.Min(min[2], p[1])
		max[2] = math.Max(max[2], p[1])
	}
	return min, max
}

// FarFieldType is the shape of the far field.
type FarFieldType int

const (
	FarFieldNone FarFieldType = iota
	FarFieldHalfCube
	FarFieldFullCube
	FarFieldHalfSphere
	FarFieldFullSphere
)

func (t FarFieldType) String() string {
	switch t {
	case FarFieldNone:
		return "none"
	case FarFieldHalfCube:
		return "half-cube"
	case FarFieldFullCube:
		return "full-cube"
	case FarFieldHalfSphere:
		return "half-sphere"
	case FarFieldFullSphere:
		return "full-sphere"
	default:
		return fmt.Sprintf("FarFieldType(%d)", int(t))
	}
}

// ParseFarFieldType returns the far-field type whose String form is s.
func ParseFarFieldType(s string) (FarFieldType, error) {
	for t := FarFieldNone; t <= FarFieldFullSphere; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return FarFieldNone, fmt.Errorf("unknown far field type %q", s)
}

// FarField is the flow domain around the aircraft, centered on the
// origin. Its half size is ReferenceLength * Multiplier; half variants
// keep only y >= 0.
type FarField struct {
	Type            FarFieldType `json:"type"`
	ReferenceLength float64      `json:"reference_length"`
	Multiplier      float64      `json:"multiplier"`
}

// Size returns the half size of the far field.
func (f FarField) Size() float64 {
	return f.ReferenceLength * f.Multiplier
}

// Bounds returns the bounding box of the far field.
func (f FarField) Bounds() (min, max kernel.Point) {
	s := f.Size()
	min = kernel.Point{-s, -s, -s}
	max = kernel.Point{s, s, s}
	if f.Type == FarFieldHalfCube || f.Type == FarFieldHalfSphere {
		min[1] = 0
	}
	return min, max
}

// Build creates the far-field solid. It returns nil for FarFieldNone.
// Spheres cannot be built by a planar kernel and fail.
func (f FarField) Build(k kernel.Kernel) (kernel.Shape, error) {
	switch f.Type {
	case FarFieldNone:
		return nil, nil
	case FarFieldHalfCube, FarFieldFullCube:
		min, max := f.Bounds()
		return k.Box(min, max)
	default:
		return nil, fmt.Errorf("far field %s: %w", f.Type, ErrUnsupportedFarField)
	}
}
