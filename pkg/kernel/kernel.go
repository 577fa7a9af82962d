// Package kernel defines the abstract B-Rep geometry kernel interface.
// Implementations provide topology enumeration, boolean splitting with a
// shared intersection structure, sewing and point classification behind
// this interface. The named-shape boolean engine only talks to a Kernel,
// which allows swapping backends without changing the rest of the system.
package kernel

import "errors"

// Confusion is the default geometric tolerance for point coincidence.
const Confusion = 1e-7

// ErrGeometricFailure is wrapped by kernels when an operation could not be
// completed, e.g. on degenerate or self-intersecting input.
var ErrGeometricFailure = errors.New("geometric failure")

// ShapeKind is the topological type of a shape.
type ShapeKind int

const (
	KindCompound ShapeKind = iota
	KindSolid
	KindShell
	KindFace
	KindWire
	KindEdge
)

func (k ShapeKind) String() string {
	switch k {
	case KindCompound:
		return "compound"
	case KindSolid:
		return "solid"
	case KindShell:
		return "shell"
	case KindFace:
		return "face"
	case KindWire:
		return "wire"
	case KindEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// Point is a position in model space.
type Point [3]float64

// Segment is a straight edge between two points.
type Segment [2]Point

// Shape is an opaque handle to a kernel shape. A nil Shape is the null shape.
// Implementations wrap their internal representation.
type Shape interface {
	// Kind returns the topological type.
	Kind() ShapeKind
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// State is the result of classifying a point against a solid.
type State int

const (
	StateOut State = iota
	StateIn
	StateOn
)

func (s State) String() string {
	switch s {
	case StateIn:
		return "in"
	case StateOn:
		return "on"
	default:
		return "out"
	}
}

// Plane selects a coordinate mirror plane.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
	PlaneYZ
)

// Filler is a precomputed pairwise-intersection structure between the
// faces of its arguments. It is consumed by Split and Section so that
// several operations on the same pair of shapes share one analysis.
type Filler interface {
	// Arguments returns the shapes the filler was built from.
	Arguments() []Shape
	// Release frees the structure. Using a released filler is an error.
	Release()
}

// History answers which output shapes an input shape became during a
// kernel operation. Modified returns nil when the input was left untouched
// or deleted.
type History interface {
	Modified(s Shape) []Shape
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(min, max Point) (Shape, error)
	Prism(profile [][2]float64, y0, y1 float64) (Shape, error) // convex XZ profile swept along Y

	// Transforms
	Translate(s Shape, x, y, z float64) Shape
	Mirror(s Shape, p Plane) Shape // same face order
	Copy(s Shape) Shape // new faces, same face order

	// Topology
	Faces(s Shape) []Shape // deterministic order per shape instance
	Edges(s Shape) []Segment
	IsSame(a, b Shape) bool
	IsEmpty(s Shape) bool
	Compound(shapes ...Shape) Shape

	// Boolean building blocks
	NewFiller(args ...Shape) (Filler, error)
	Split(f Filler, arg, tool Shape) (Shape, History, error)
	Section(f Filler) (Shape, error)
	ClipEdges(edges, solid Shape, keepInside bool) (Shape, error)
	Sew(s Shape, tol float64) (Shape, History, error)
	MakeSolid(s Shape) (Shape, History, error)

	// Queries
	CentralPoint(face Shape) Point
	Classify(solid Shape, p Point, tol float64) State
	Volume(s Shape) float64

	// Mesh output
	ToMesh(s Shape) (*Mesh, error)
}
