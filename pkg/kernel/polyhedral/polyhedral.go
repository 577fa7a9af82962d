// Package polyhedral implements the kernel.Kernel interface for solids
// bounded by planar convex faces. It is exact enough for box and prism
// component models and serves as the reference backend for the boolean
// engine and its tests.
package polyhedral

import (
	"fmt"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Kernel)(nil)

// faceRef places a face in a shape with an orientation.
type faceRef struct {
	f        *face
	reversed bool
}

// loop returns the vertex loop in the orientation of the reference.
func (r faceRef) loop() []v3.Vec {
	if !r.reversed {
		return r.f.loop
	}
	out := make([]v3.Vec, len(r.f.loop))
	for i, v := range r.f.loop {
		out[len(out)-1-i] = v
	}
	return out
}

func (r faceRef) normal() v3.Vec {
	if r.reversed {
		return r.f.normal.MulScalar(-1)
	}
	return r.f.normal
}

// edge is a free straight edge.
type edge [2]v3.Vec

// shape is the concrete kernel.Shape. Faces and edges belong to the shape
// itself; children hold sub-shapes of compounds.
type shape struct {
	kind     kernel.ShapeKind
	faces    []faceRef
	edges    []edge
	children []*shape
}

func (s *shape) Kind() kernel.ShapeKind { return s.kind }

// BoundingBox returns the axis-aligned bounding box.
func (s *shape) BoundingBox() (min, max [3]float64) {
	var box sdf.Box3
	first := true
	include := func(v v3.Vec) {
		if first {
			box = sdf.Box3{Min: v, Max: v}
			first = false
			return
		}
		box = box.Include(v)
	}
	for _, r := range s.allFaces() {
		include(r.f.box.Min)
		include(r.f.box.Max)
	}
	for _, e := range s.allEdges() {
		include(e[0])
		include(e[1])
	}
	return [3]float64{box.Min.X, box.Min.Y, box.Min.Z}, [3]float64{box.Max.X, box.Max.Y, box.Max.Z}
}

// allFaces returns the faces of s and its children, each face once, in
// depth-first order.
func (s *shape) allFaces() []faceRef {
	var out []faceRef
	seen := make(map[*face]bool)
	var walk func(*shape)
	walk = func(n *shape) {
		for _, r := range n.faces {
			if !seen[r.f] {
				seen[r.f] = true
				out = append(out, r)
			}
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(s)
	return out
}

func (s *shape) allEdges() []edge {
	var out []edge
	var walk func(*shape)
	walk = func(n *shape) {
		out = append(out, n.edges...)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(s)
	return out
}

// Kernel implements kernel.Kernel for planar polyhedra.
type Kernel struct {
	tol float64
}

// New returns a Kernel using kernel.Confusion as its internal tolerance.
func New() *Kernel {
	return &Kernel{tol: kernel.Confusion}
}

func unwrap(s kernel.Shape) *shape {
	if s == nil {
		return nil
	}
	sh, ok := s.(*shape)
	if !ok {
		panic(fmt.Sprintf("polyhedral: foreign shape %T", s))
	}
	return sh
}

func faceShape(r faceRef) *shape {
	return &shape{kind: kernel.KindFace, faces: []faceRef{r}}
}

// ----------------------------------------------------------------------------
// Primitives
// ----------------------------------------------------------------------------

// Box creates an axis-aligned box. Faces are ordered x-min, x-max, y-min,
// y-max, z-min, z-max.
func (k *Kernel) Box(min, max kernel.Point) (kernel.Shape, error) {
	for i := 0; i < 3; i++ {
		if max[i]-min[i] <= k.tol {
			return nil, fmt.Errorf("box %v..%v: %w", min, max, kernel.ErrGeometricFailure)
		}
	}
	x0, y0, z0 := min[0], min[1], min[2]
	x1, y1, z1 := max[0], max[1], max[2]
	p := func(x, y, z float64) v3.Vec { return v3.Vec{X: x, Y: y, Z: z} }
	loops := [][]v3.Vec{
		{p(x0, y0, z0), p(x0, y0, z1), p(x0, y1, z1), p(x0, y1, z0)},
		{p(x1, y0, z0), p(x1, y1, z0), p(x1, y1, z1), p(x1, y0, z1)},
		{p(x0, y0, z0), p(x1, y0, z0), p(x1, y0, z1), p(x0, y0, z1)},
		{p(x0, y1, z0), p(x0, y1, z1), p(x1, y1, z1), p(x1, y1, z0)},
		{p(x0, y0, z0), p(x0, y1, z0), p(x1, y1, z0), p(x1, y0, z0)},
		{p(x0, y0, z1), p(x1, y0, z1), p(x1, y1, z1), p(x0, y1, z1)},
	}
	return k.solidFromLoops(loops)
}

// Prism sweeps a convex profile in the XZ plane along Y from y0 to y1.
// Repeated and collinear profile vertices are dropped first (see
// kernel.SimplifyProfile). Faces are ordered: cap at y0, cap at y1, then
// one side per remaining profile edge.
func (k *Kernel) Prism(profile [][2]float64, y0, y1 float64) (kernel.Shape, error) {
	if len(profile) < 3 {
		return nil, fmt.Errorf("prism profile needs 3 points, got %d: %w", len(profile), kernel.ErrGeometricFailure)
	}
	if y1-y0 <= k.tol {
		return nil, fmt.Errorf("prism span %g..%g: %w", y0, y1, kernel.ErrGeometricFailure)
	}
	pts := kernel.SimplifyProfile(profile, k.tol)
	if len(pts) < 3 {
		return nil, fmt.Errorf("prism profile is degenerate: %w", kernel.ErrGeometricFailure)
	}
	area := 0.0
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		area += a[0]*b[1] - b[0]*a[1]
	}
	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	if !convex(pts) {
		return nil, fmt.Errorf("prism profile is not convex: %w", kernel.ErrGeometricFailure)
	}

	n := len(pts)
	at := func(i int, y float64) v3.Vec { return v3.Vec{X: pts[i%n][0], Y: y, Z: pts[i%n][1]} }
	capLo := make([]v3.Vec, n)
	capHi := make([]v3.Vec, n)
	for i := 0; i < n; i++ {
		capLo[i] = at(i, y0)
		capHi[n-1-i] = at(i, y1)
	}
	loops := [][]v3.Vec{capLo, capHi}
	for i := 0; i < n; i++ {
		loops = append(loops, []v3.Vec{at(i, y0), at(i, y1), at(i+1, y1), at(i+1, y0)})
	}
	return k.solidFromLoops(loops)
}

// convex reports whether a counter-clockwise 2D polygon is strictly convex.
func convex(pts [][2]float64) bool {
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b, c := pts[i], pts[(i+1)%n], pts[(i+2)%n]
		cross := (b[0]-a[0])*(c[1]-b[1]) - (b[1]-a[1])*(c[0]-b[0])
		if cross <= 0 {
			return false
		}
	}
	return true
}

func (k *Kernel) solidFromLoops(loops [][]v3.Vec) (kernel.Shape, error) {
	s := &shape{kind: kernel.KindSolid}
	for _, l := range loops {
		f, ok := newFace(l, k.tol)
		if !ok {
			return nil, fmt.Errorf("degenerate face: %w", kernel.ErrGeometricFailure)
		}
		s.faces = append(s.faces, faceRef{f: f})
	}
	if signedVolume(s.faces) < 0 {
		for i := range s.faces {
			s.faces[i].reversed = true
		}
	}
	return s, nil
}

// ----------------------------------------------------------------------------
// Transforms
// ----------------------------------------------------------------------------

// Translate moves a shape by (x, y, z).
func (k *Kernel) Translate(s kernel.Shape, x, y, z float64) kernel.Shape {
	return k.transform(unwrap(s), sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}), false)
}

// Mirror reflects a shape across a coordinate plane. Face loops are
// reversed so outward normals stay outward.
func (k *Kernel) Mirror(s kernel.Shape, p kernel.Plane) kernel.Shape {
	var m sdf.M44
	switch p {
	case kernel.PlaneXY:
		m = sdf.MirrorXY()
	case kernel.PlaneXZ:
		m = sdf.MirrorXZ()
	default:
		m = sdf.MirrorYZ()
	}
	return k.transform(unwrap(s), m, true)
}

// Copy returns a geometric copy with fresh faces. The copy shares no
// sub-shapes with the original.
func (k *Kernel) Copy(s kernel.Shape) kernel.Shape {
	return k.transform(unwrap(s), sdf.Identity3d(), false)
}

func (k *Kernel) transform(s *shape, m sdf.M44, flip bool) kernel.Shape {
	if s == nil {
		return nil
	}
	mapped := make(map[*face]*face)
	var walk func(*shape) *shape
	walk = func(n *shape) *shape {
		out := &shape{kind: n.kind}
		for _, r := range n.faces {
			nf, ok := mapped[r.f]
			if !ok {
				loop := make([]v3.Vec, len(r.f.loop))
				for i, v := range r.f.loop {
					j := i
					if flip {
						j = len(loop) - 1 - i
					}
					loop[j] = m.MulPosition(v)
				}
				nf, _ = newFace(loop, k.tol)
				mapped[r.f] = nf
			}
			if nf != nil {
				out.faces = append(out.faces, faceRef{f: nf, reversed: r.reversed})
			}
		}
		for _, e := range n.edges {
			out.edges = append(out.edges, edge{m.MulPosition(e[0]), m.MulPosition(e[1])})
		}
		for _, c := range n.children {
			out.children = append(out.children, walk(c))
		}
		return out
	}
	return walk(s)
}

// ----------------------------------------------------------------------------
// Topology
// ----------------------------------------------------------------------------

// Faces returns the faces of s, each once, in a deterministic order.
func (k *Kernel) Faces(s kernel.Shape) []kernel.Shape {
	sh := unwrap(s)
	if sh == nil {
		return nil
	}
	refs := sh.allFaces()
	out := make([]kernel.Shape, len(refs))
	for i, r := range refs {
		out[i] = faceShape(r)
	}
	return out
}

// Edges returns the boundary edges of every face followed by the free
// edges of s.
func (k *Kernel) Edges(s kernel.Shape) []kernel.Segment {
	sh := unwrap(s)
	if sh == nil {
		return nil
	}
	var out []kernel.Segment
	for _, r := range sh.allFaces() {
		l := r.loop()
		for i := range l {
			out = append(out, kernel.Segment{toPoint(l[i]), toPoint(l[(i+1)%len(l)])})
		}
	}
	for _, e := range sh.allEdges() {
		out = append(out, kernel.Segment{toPoint(e[0]), toPoint(e[1])})
	}
	return out
}

// IsSame reports whether two face shapes refer to the same face,
// ignoring orientation. Other shapes compare by identity.
func (k *Kernel) IsSame(a, b kernel.Shape) bool {
	sa, sb := unwrap(a), unwrap(b)
	if sa == nil || sb == nil {
		return sa == sb
	}
	if sa.kind == kernel.KindFace && sb.kind == kernel.KindFace &&
		len(sa.faces) == 1 && len(sb.faces) == 1 {
		return sa.faces[0].f == sb.faces[0].f
	}
	return sa == sb
}

// IsEmpty reports whether s is null or carries no faces and no edges.
func (k *Kernel) IsEmpty(s kernel.Shape) bool {
	sh := unwrap(s)
	return sh == nil || (len(sh.allFaces()) == 0 && len(sh.allEdges()) == 0)
}

// Compound groups shapes. Nil entries are skipped.
func (k *Kernel) Compound(shapes ...kernel.Shape) kernel.Shape {
	out := &shape{kind: kernel.KindCompound}
	for _, s := range shapes {
		if sh := unwrap(s); sh != nil {
			out.children = append(out.children, sh)
		}
	}
	return out
}

// CentralPoint returns the area centroid of a face, or the bounding box
// centre of any other shape.
func (k *Kernel) CentralPoint(s kernel.Shape) kernel.Point {
	sh := unwrap(s)
	if sh == nil {
		return kernel.Point{}
	}
	if sh.kind == kernel.KindFace && len(sh.faces) == 1 {
		return toPoint(sh.faces[0].f.centroid())
	}
	min, max := sh.BoundingBox()
	return kernel.Point{(min[0] + max[0]) / 2, (min[1] + max[1]) / 2, (min[2] + max[2]) / 2}
}

// Volume returns the enclosed volume of the oriented faces of s.
func (k *Kernel) Volume(s kernel.Shape) float64 {
	sh := unwrap(s)
	if sh == nil {
		return 0
	}
	return signedVolume(sh.allFaces())
}

// signedVolume sums the divergence contribution of each face fan.
func signedVolume(refs []faceRef) float64 {
	v := 0.0
	for _, r := range refs {
		l := r.loop()
		for i := 1; i+1 < len(l); i++ {
			v += l[0].Dot(l[i].Cross(l[i+1]))
		}
	}
	return v / 6
}
