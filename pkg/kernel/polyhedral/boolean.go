package polyhedral

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/aerofuse/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var errReleased = errors.New("filler already released")

// pairKey orders a face pair so lookups are symmetric.
type pairKey struct{ a, b *face }

func keyOf(a, b *face) pairKey {
	if a.id > b.id {
		a, b = b, a
	}
	return pairKey{a, b}
}

// filler caches pairwise face intersections between its arguments.
type filler struct {
	args     []kernel.Shape
	pairs    map[pairKey]pairResult
	tol      float64
	released bool
}

func (f *filler) Arguments() []kernel.Shape { return f.args }

func (f *filler) Release() {
	f.released = true
	f.pairs = nil
}

// pair returns the memoized intersection of two faces.
func (f *filler) pair(a, b *face) pairResult {
	key := keyOf(a, b)
	if r, ok := f.pairs[key]; ok {
		return r
	}
	r := intersectFaces(a, b, f.tol)
	f.pairs[key] = r
	return r
}

// NewFiller intersects every face of each argument with every face of the
// other arguments.
func (k *Kernel) NewFiller(args ...kernel.Shape) (kernel.Filler, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("filler needs at least two arguments, got %d", len(args))
	}
	f := &filler{args: args, pairs: make(map[pairKey]pairResult), tol: k.tol}
	faces := make([][]faceRef, len(args))
	for i, a := range args {
		sh := unwrap(a)
		if sh == nil {
			return nil, fmt.Errorf("filler argument %d is null", i)
		}
		faces[i] = sh.allFaces()
	}
	for i := range faces {
		for j := i + 1; j < len(faces); j++ {
			for _, ra := range faces[i] {
				for _, rb := range faces[j] {
					f.pair(ra.f, rb.f)
				}
			}
		}
	}
	return f, nil
}

func asFiller(fl kernel.Filler) (*filler, error) {
	f, ok := fl.(*filler)
	if !ok || f == nil {
		return nil, fmt.Errorf("polyhedral: foreign filler %T", fl)
	}
	if f.released {
		return nil, errReleased
	}
	return f, nil
}

// history maps input faces to the fragments they were split into.
type history struct {
	modified map[*face][]faceRef
}

func (h history) Modified(s kernel.Shape) []kernel.Shape {
	sh := unwrap(s)
	if sh == nil || sh.kind != kernel.KindFace || len(sh.faces) != 1 {
		return nil
	}
	refs := h.modified[sh.faces[0].f]
	if len(refs) == 0 {
		return nil
	}
	out := make([]kernel.Shape, len(refs))
	for i, r := range refs {
		out[i] = faceShape(r)
	}
	return out
}

type cutPlane struct {
	n v3.Vec
	d float64
}

// Split divides the faces of arg along the faces of tool it crosses. Faces
// left whole are returned unchanged and have no Modified entry.
func (k *Kernel) Split(fl kernel.Filler, arg, tool kernel.Shape) (kernel.Shape, kernel.History, error) {
	f, err := asFiller(fl)
	if err != nil {
		return nil, nil, err
	}
	sa, st := unwrap(arg), unwrap(tool)
	if sa == nil || st == nil {
		return nil, nil, fmt.Errorf("split: null argument")
	}
	toolFaces := st.allFaces()
	out := &shape{kind: kernel.KindCompound}
	h := history{modified: make(map[*face][]faceRef)}

	for _, r := range sa.allFaces() {
		var planes []cutPlane
		for _, g := range toolFaces {
			p := f.pair(r.f, g.f)
			if !p.crossing {
				continue
			}
			dup := false
			for _, q := range planes {
				if samePlane(q.n, q.d, g.f.normal, g.f.d, k.tol) {
					dup = true
					break
				}
			}
			if !dup {
				planes = append(planes, cutPlane{g.f.normal, g.f.d})
			}
		}

		pieces := [][]v3.Vec{r.f.loop}
		for _, pl := range planes {
			var next [][]v3.Vec
			for _, piece := range pieces {
				neg, pos := splitLoop(piece, pl.n, pl.d, k.tol)
				if neg != nil {
					next = append(next, neg)
				}
				if pos != nil {
					next = append(next, pos)
				}
			}
			pieces = next
		}

		var frags []faceRef
		for _, piece := range pieces {
			nf, ok := newFace(piece, k.tol)
			if !ok || nf.area() <= k.tol*k.tol {
				continue
			}
			frags = append(frags, faceRef{f: nf, reversed: r.reversed})
		}
		if len(frags) <= 1 {
			out.faces = append(out.faces, r)
			continue
		}
		out.faces = append(out.faces, frags...)
		h.modified[r.f] = frags
	}
	return out, h, nil
}

// Section returns the intersection curves between the first two filler
// arguments as free edges.
func (k *Kernel) Section(fl kernel.Filler) (kernel.Shape, error) {
	f, err := asFiller(fl)
	if err != nil {
		return nil, err
	}
	a, b := unwrap(f.args[0]), unwrap(f.args[1])
	out := &shape{kind: kernel.KindCompound}
	for _, ra := range a.allFaces() {
		for _, rb := range b.allFaces() {
			p := f.pair(ra.f, rb.f)
			if !p.crossing || p.coplanar {
				continue
			}
			if !k.hasEdge(out.edges, edge(p.seg)) {
				out.edges = append(out.edges, edge(p.seg))
			}
		}
	}
	return out, nil
}

func (k *Kernel) hasEdge(edges []edge, e edge) bool {
	tol := 10 * k.tol
	for _, o := range edges {
		if (o[0].Sub(e[0]).Length() <= tol && o[1].Sub(e[1]).Length() <= tol) ||
			(o[0].Sub(e[1]).Length() <= tol && o[1].Sub(e[0]).Length() <= tol) {
			return true
		}
	}
	return false
}

// ClipEdges keeps the pieces of the free edges of edges that lie inside
// (keepInside) or outside solid. Pieces on the solid boundary are kept in
// both cases.
func (k *Kernel) ClipEdges(edges, solid kernel.Shape, keepInside bool) (kernel.Shape, error) {
	se, ss := unwrap(edges), unwrap(solid)
	if se == nil || ss == nil {
		return nil, fmt.Errorf("clip: null argument")
	}
	faces := ss.allFaces()
	out := &shape{kind: kernel.KindCompound}
	for _, e := range se.allEdges() {
		a, b := e[0], e[1]
		dir := b.Sub(a)
		params := []float64{0, 1}
		for _, r := range faces {
			den := r.f.normal.Dot(dir)
			if math.Abs(den) < parallelEps {
				continue
			}
			t := (r.f.d - r.f.normal.Dot(a)) / den
			if t <= 0 || t >= 1 {
				continue
			}
			if r.f.contains(lerp(a, b, t), k.tol) {
				params = append(params, t)
			}
		}
		sort.Float64s(params)
		minLen := k.tol / math.Max(dir.Length(), k.tol)
		for i := 0; i+1 < len(params); i++ {
			t0, t1 := params[i], params[i+1]
			if t1-t0 <= minLen {
				continue
			}
			st := classify(faces, lerp(a, b, (t0+t1)/2), k.tol)
			if st == kernel.StateOn || (st == kernel.StateIn) == keepInside {
				out.edges = append(out.edges, edge{lerp(a, b, t0), lerp(a, b, t1)})
			}
		}
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// Sewing and solids
// ----------------------------------------------------------------------------

// emptyHistory is returned by operations that keep every face intact.
var emptyHistory = history{}

// Sew groups faces connected through shared edges into shells. A single
// connected set yields a shell; several yield a compound of shells.
func (k *Kernel) Sew(s kernel.Shape, tol float64) (kernel.Shape, kernel.History, error) {
	sh := unwrap(s)
	if sh == nil {
		return nil, nil, fmt.Errorf("sew: null argument")
	}
	refs := sh.allFaces()
	if len(refs) == 0 {
		return s, emptyHistory, nil
	}
	if tol < k.tol {
		tol = k.tol
	}

	parent := make([]int, len(refs))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range refs {
		for j := i + 1; j < len(refs); j++ {
			if find(i) == find(j) {
				continue
			}
			if !boxesOverlap(refs[i].f.box, refs[j].f.box, tol) {
				continue
			}
			if shareEdge(refs[i].f, refs[j].f, tol) {
				parent[find(j)] = find(i)
			}
		}
	}

	groups := make(map[int]*shape)
	var order []int
	for i, r := range refs {
		root := find(i)
		g, ok := groups[root]
		if !ok {
			g = &shape{kind: kernel.KindShell}
			groups[root] = g
			order = append(order, root)
		}
		g.faces = append(g.faces, r)
	}
	if len(order) == 1 {
		return groups[order[0]], emptyHistory, nil
	}
	out := &shape{kind: kernel.KindCompound}
	for _, root := range order {
		out.children = append(out.children, groups[root])
	}
	return out, emptyHistory, nil
}

func shareEdge(a, b *face, tol float64) bool {
	for i := range a.loop {
		p, q := a.loop[i], a.loop[(i+1)%len(a.loop)]
		for j := range b.loop {
			r, s := b.loop[j], b.loop[(j+1)%len(b.loop)]
			if collinearOverlap(p, q, r, s, tol) || collinearOverlap(r, s, p, q, tol) {
				return true
			}
		}
	}
	return false
}

// MakeSolid turns shells into solids, flipping faces whose normal points
// into the enclosed volume. Each shell of a compound becomes its own solid.
func (k *Kernel) MakeSolid(s kernel.Shape) (kernel.Shape, kernel.History, error) {
	sh := unwrap(s)
	if sh == nil {
		return nil, nil, fmt.Errorf("make solid: null argument")
	}
	var shells [][]faceRef
	switch {
	case sh.kind == kernel.KindShell || sh.kind == kernel.KindSolid:
		shells = append(shells, sh.allFaces())
	case len(sh.children) > 0 && allShells(sh.children):
		for _, c := range sh.children {
			shells = append(shells, c.allFaces())
		}
	default:
		shells = append(shells, sh.allFaces())
	}

	var solids []*shape
	for _, refs := range shells {
		if len(refs) == 0 {
			continue
		}
		solids = append(solids, &shape{kind: kernel.KindSolid, faces: k.orient(refs)})
	}
	switch len(solids) {
	case 0:
		return nil, nil, fmt.Errorf("make solid: no faces: %w", kernel.ErrGeometricFailure)
	case 1:
		return solids[0], emptyHistory, nil
	}
	return &shape{kind: kernel.KindCompound, children: solids}, emptyHistory, nil
}

func allShells(children []*shape) bool {
	for _, c := range children {
		if c.kind != kernel.KindShell {
			return false
		}
	}
	return true
}

// orient tests a point just outside each face along its normal and flips
// the face when that point falls inside the shell.
func (k *Kernel) orient(refs []faceRef) []faceRef {
	shell := &shape{faces: refs}
	min, max := shell.BoundingBox()
	diag := toVec(kernel.Point(max)).Sub(toVec(kernel.Point(min))).Length()
	delta := math.Max(diag*1e-5, 100*k.tol)

	out := make([]faceRef, len(refs))
	for i, r := range refs {
		p := r.f.centroid().Add(r.normal().MulScalar(delta))
		if classify(refs, p, k.tol) == kernel.StateIn {
			r.reversed = !r.reversed
		}
		out[i] = r
	}
	return out
}

// ----------------------------------------------------------------------------
// Classification
// ----------------------------------------------------------------------------

// rayDirections are generic directions for parity ray casting.
var rayDirections = []v3.Vec{
	v3.Vec{X: 0.5731, Y: 0.6287, Z: 0.5257}.Normalize(),
	v3.Vec{X: -0.4423, Y: 0.7716, Z: 0.4571}.Normalize(),
	v3.Vec{X: 0.3147, Y: -0.5129, Z: 0.7989}.Normalize(),
	v3.Vec{X: -0.6911, Y: -0.2843, Z: -0.6645}.Normalize(),
}

// Classify locates p relative to the closed faces of solid.
func (k *Kernel) Classify(solid kernel.Shape, p kernel.Point, tol float64) kernel.State {
	sh := unwrap(solid)
	if sh == nil {
		return kernel.StateOut
	}
	if tol < k.tol {
		tol = k.tol
	}
	return classify(sh.allFaces(), toVec(p), tol)
}

func classify(refs []faceRef, p v3.Vec, tol float64) kernel.State {
	if len(refs) == 0 {
		return kernel.StateOut
	}
	for _, r := range refs {
		if r.f.distance(p) <= tol {
			return kernel.StateOn
		}
	}
	inside := false
	for _, dir := range rayDirections {
		count, ambiguous := castRay(refs, p, dir, tol)
		inside = count%2 == 1
		if !ambiguous {
			break
		}
	}
	if inside {
		return kernel.StateIn
	}
	return kernel.StateOut
}

// castRay counts face crossings along p + t*dir, t > 0. It reports
// ambiguity when the ray grazes an edge or runs inside a face plane.
func castRay(refs []faceRef, p, dir v3.Vec, tol float64) (int, bool) {
	count := 0
	ambiguous := false
	for _, r := range refs {
		f := r.f
		h := f.d - f.normal.Dot(p)
		den := f.normal.Dot(dir)
		if math.Abs(den) < parallelEps {
			if math.Abs(h) <= tol {
				ambiguous = true
			}
			continue
		}
		t := h / den
		if t <= tol {
			continue
		}
		m := f.edgeMargin(p.Add(dir.MulScalar(t)))
		switch {
		case m > tol:
			count++
		case m > -tol:
			ambiguous = true
		}
	}
	return count, ambiguous
}
