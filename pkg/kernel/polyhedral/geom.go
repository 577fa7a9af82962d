package polyhedral

import (
	"math"
	"sync/atomic"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// parallelEps bounds |n1 x n2| below which two planes count as parallel.
const parallelEps = 1e-9

func toVec(p kernel.Point) v3.Vec {
	return v3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

func toPoint(v v3.Vec) kernel.Point {
	return kernel.Point{v.X, v.Y, v.Z}
}

func lerp(a, b v3.Vec, t float64) v3.Vec {
	return a.Add(b.Sub(a).MulScalar(t))
}

// face is a planar convex polygon. Its loop is counter-clockwise around
// normal. Faces are immutable once built; topology refers to them by
// pointer, which is what IsSame compares.
type face struct {
	id     uint64
	loop   []v3.Vec
	normal v3.Vec
	d      float64 // plane offset, normal·x = d
	box    sdf.Box3
}

var faceSeq atomic.Uint64

// newell returns the (unnormalized) Newell normal of a loop. Its length
// is twice the polygon area.
func newell(loop []v3.Vec) v3.Vec {
	var n v3.Vec
	for i := range loop {
		a := loop[i]
		b := loop[(i+1)%len(loop)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

// newFace builds a face from a loop. It reports false for degenerate loops.
func newFace(loop []v3.Vec, tol float64) (*face, bool) {
	loop = dedupLoop(loop, tol)
	if len(loop) < 3 {
		return nil, false
	}
	n := newell(loop)
	if n.Length() <= tol*tol {
		return nil, false
	}
	n = n.Normalize()
	box := sdf.Box3{Min: loop[0], Max: loop[0]}
	for _, v := range loop[1:] {
		box = box.Include(v)
	}
	return &face{id: faceSeq.Add(1), loop: loop, normal: n, d: n.Dot(loop[0]), box: box}, true
}

// dedupLoop drops consecutive vertices closer than tol.
func dedupLoop(loop []v3.Vec, tol float64) []v3.Vec {
	out := make([]v3.Vec, 0, len(loop))
	for _, v := range loop {
		if len(out) > 0 && out[len(out)-1].Sub(v).Length() <= tol {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && out[0].Sub(out[len(out)-1]).Length() <= tol {
		out = out[:len(out)-1]
	}
	return out
}

func (f *face) area() float64 {
	return 0.5 * newell(f.loop).Length()
}

// centroid returns the area centroid. For a convex polygon it lies
// strictly inside the face.
func (f *face) centroid() v3.Vec {
	var sum v3.Vec
	total := 0.0
	o := f.loop[0]
	for i := 1; i+1 < len(f.loop); i++ {
		a, b := f.loop[i], f.loop[i+1]
		w := 0.5 * a.Sub(o).Cross(b.Sub(o)).Dot(f.normal)
		sum = sum.Add(o.Add(a).Add(b).MulScalar(w / 3))
		total += w
	}
	if total == 0 {
		return o
	}
	return sum.DivScalar(total)
}

// edgeMargin returns the smallest signed in-plane distance from p to the
// face's edge lines. Positive means strictly inside.
func (f *face) edgeMargin(p v3.Vec) float64 {
	m := math.Inf(1)
	for i := range f.loop {
		a := f.loop[i]
		b := f.loop[(i+1)%len(f.loop)]
		e := b.Sub(a)
		l := e.Length()
		if l == 0 {
			continue
		}
		s := e.Cross(p.Sub(a)).Dot(f.normal) / l
		if s < m {
			m = s
		}
	}
	return m
}

// contains reports whether p, assumed to lie in the face plane, is inside
// the polygon or within tol of its boundary.
func (f *face) contains(p v3.Vec, tol float64) bool {
	return f.edgeMargin(p) >= -tol
}

// distance returns the Euclidean distance from p to the polygon.
func (f *face) distance(p v3.Vec) float64 {
	h := f.normal.Dot(p) - f.d
	proj := p.Sub(f.normal.MulScalar(h))
	if f.contains(proj, 0) {
		return math.Abs(h)
	}
	best := math.Inf(1)
	for i := range f.loop {
		if d := pointSegmentDistance(p, f.loop[i], f.loop[(i+1)%len(f.loop)]); d < best {
			best = d
		}
	}
	return best
}

func pointSegmentDistance(p, a, b v3.Vec) float64 {
	e := b.Sub(a)
	l2 := e.Dot(e)
	if l2 == 0 {
		return p.Sub(a).Length()
	}
	t := p.Sub(a).Dot(e) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Sub(a.Add(e.MulScalar(t))).Length()
}

// samePlane reports whether two faces lie on the same geometric plane,
// regardless of orientation.
func samePlane(n1 v3.Vec, d1 float64, n2 v3.Vec, d2 float64, tol float64) bool {
	c := n1.Dot(n2)
	if math.Abs(c) < 1-1e-12 {
		return false
	}
	if c < 0 {
		d2 = -d2
	}
	return math.Abs(d1-d2) <= tol
}

// splitLoop cuts a convex loop by the plane normal·x = d. It returns the
// pieces on the negative and positive side; a nil piece means the loop
// does not extend to that side.
func splitLoop(loop []v3.Vec, normal v3.Vec, d, tol float64) (neg, pos []v3.Vec) {
	dist := make([]float64, len(loop))
	sides := make([]int, len(loop))
	hasNeg, hasPos := false, false
	for i, v := range loop {
		dist[i] = normal.Dot(v) - d
		switch {
		case dist[i] > tol:
			sides[i] = 1
			hasPos = true
		case dist[i] < -tol:
			sides[i] = -1
			hasNeg = true
		}
	}
	if !hasNeg {
		return nil, loop
	}
	if !hasPos {
		return loop, nil
	}
	for i := range loop {
		j := (i + 1) % len(loop)
		a, b := loop[i], loop[j]
		if sides[i] >= 0 {
			pos = append(pos, a)
		}
		if sides[i] <= 0 {
			neg = append(neg, a)
		}
		if sides[i]*sides[j] < 0 {
			p := lerp(a, b, dist[i]/(dist[i]-dist[j]))
			pos = append(pos, p)
			neg = append(neg, p)
		}
	}
	return neg, pos
}

// pointsOnPlane returns the points of a convex loop that lie on the plane
// normal·x = d: boundary crossings and vertices within tol.
func pointsOnPlane(loop []v3.Vec, normal v3.Vec, d, tol float64) []v3.Vec {
	var pts []v3.Vec
	for i := range loop {
		a := loop[i]
		b := loop[(i+1)%len(loop)]
		da := normal.Dot(a) - d
		db := normal.Dot(b) - d
		if math.Abs(da) <= tol {
			pts = append(pts, a)
			continue
		}
		if (da > tol && db < -tol) || (da < -tol && db > tol) {
			pts = append(pts, lerp(a, b, da/(da-db)))
		}
	}
	return pts
}

// pairResult describes how two faces meet.
type pairResult struct {
	coplanar bool
	crossing bool // faces share a segment of positive length
	seg      [2]v3.Vec
}

func boxesOverlap(a, b sdf.Box3, tol float64) bool {
	return a.Min.X <= b.Max.X+tol && b.Min.X <= a.Max.X+tol &&
		a.Min.Y <= b.Max.Y+tol && b.Min.Y <= a.Max.Y+tol &&
		a.Min.Z <= b.Max.Z+tol && b.Min.Z <= a.Max.Z+tol
}

// intersectFaces computes the common segment of two convex faces.
func intersectFaces(a, b *face, tol float64) pairResult {
	if !boxesOverlap(a.box, b.box, tol) {
		return pairResult{}
	}
	u := a.normal.Cross(b.normal)
	if u.Length() < parallelEps {
		return pairResult{coplanar: samePlane(a.normal, a.d, b.normal, b.d, tol)}
	}
	u = u.Normalize()
	pa := pointsOnPlane(a.loop, b.normal, b.d, tol)
	pb := pointsOnPlane(b.loop, a.normal, a.d, tol)
	if len(pa) == 0 || len(pb) == 0 {
		return pairResult{}
	}
	aMin, aMax := paramRange(pa, u)
	bMin, bMax := paramRange(pb, u)
	lo := math.Max(aMin, bMin)
	hi := math.Min(aMax, bMax)
	if hi-lo <= tol {
		return pairResult{}
	}
	base := pa[0]
	t0 := base.Dot(u)
	return pairResult{
		crossing: true,
		seg: [2]v3.Vec{
			base.Add(u.MulScalar(lo - t0)),
			base.Add(u.MulScalar(hi - t0)),
		},
	}
}

func paramRange(pts []v3.Vec, u v3.Vec) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		t := p.Dot(u)
		lo = math.Min(lo, t)
		hi = math.Max(hi, t)
	}
	return lo, hi
}

// collinearOverlap reports whether segments ab and cd lie on one line and
// share a piece longer than tol.
func collinearOverlap(a, b, c, d v3.Vec, tol float64) bool {
	e := b.Sub(a)
	l := e.Length()
	if l <= tol {
		return false
	}
	if pointLineDistance(c, a, e, l) > tol || pointLineDistance(d, a, e, l) > tol {
		return false
	}
	tc := c.Sub(a).Dot(e) / l
	td := d.Sub(a).Dot(e) / l
	lo := math.Max(0, math.Min(tc, td))
	hi := math.Min(l, math.Max(tc, td))
	return hi-lo > tol
}

func pointLineDistance(p, a, e v3.Vec, l float64) float64 {
	return e.Cross(p.Sub(a)).Length() / l
}
