package boolops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/kernel/kerneltest"
	"github.com/chazu/aerofuse/pkg/kernel/polyhedral"
	"github.com/chazu/aerofuse/pkg/named"
)

const volumeTol = 1e-9

func newContext(t *testing.T, k kernel.Kernel) *Context {
	t.Helper()
	if k == nil {
		k = polyhedral.New()
	}
	return NewContext(named.NewRegistry(k, 0), zaptest.NewLogger(t))
}

func newBox(t *testing.T, ctx *Context, name string, min, max kernel.Point) *named.Shape {
	t.Helper()
	s, err := ctx.kernel().Box(min, max)
	require.NoError(t, err)
	return ctx.Registry.New(s, name)
}

// straddling returns R = [0,2]^3 and a smaller cube C that pokes through
// the x=2 face of R.
func straddling(t *testing.T, ctx *Context) (r, c *named.Shape) {
	t.Helper()
	r = newBox(t, ctx, "R", kernel.Point{0, 0, 0}, kernel.Point{2, 2, 2})
	c = newBox(t, ctx, "C", kernel.Point{1.5, 0.5, 0.5}, kernel.Point{2.5, 1.5, 1.5})
	return r, c
}

func countNames(s *named.Shape) map[string]int {
	out := make(map[string]int)
	for _, n := range s.FaceNames() {
		out[n]++
	}
	return out
}

// assertRootedIn checks every face of s traces back to one of roots.
func assertRootedIn(t *testing.T, s *named.Shape, roots ...*named.Shape) {
	t.Helper()
	for i := 0; i < s.FaceCount(); i++ {
		root, idx := s.RootTrait(i)
		assert.Contains(t, roots, root, "face %d", i)
		assert.Equal(t, named.NoOrigin, root.FaceTraits(idx).Origin)
	}
}

// ---------------------------------------------------------------------------
// Trim
// ---------------------------------------------------------------------------

func TestTrimUntouchedSource(t *testing.T) {
	ctx := newContext(t, nil)
	a := newBox(t, ctx, "A", kernel.Point{0, 0, 0}, kernel.Point{1, 1, 1})
	tool := newBox(t, ctx, "T", kernel.Point{5, 5, 5}, kernel.Point{6, 6, 6})

	got, err := NewTrim(ctx, a, tool, Exclude, nil).NamedShape()
	require.NoError(t, err)
	assert.Equal(t, a.FaceCount(), got.FaceCount())
	assert.Equal(t, a.FaceNames(), got.FaceNames())
	assert.Equal(t, "A", got.Name())

	inside, err := NewTrim(ctx, a, tool, Include, nil).NamedShape()
	require.NoError(t, err)
	assert.Zero(t, inside.FaceCount())
}

func TestTrimNullArgument(t *testing.T) {
	ctx := newContext(t, nil)
	a := newBox(t, ctx, "A", kernel.Point{0, 0, 0}, kernel.Point{1, 1, 1})
	null := ctx.Registry.New(nil, "null")

	tests := []struct {
		name         string
		source, tool *named.Shape
		op           TrimOperation
	}{
		{"nil source", nil, a, Exclude},
		{"null source", null, a, Exclude},
		{"null tool", a, null, Include},
		{"nil tool", a, nil, Include},
		{"nil operation", a, a, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Construction never fails.
			trim := NewTrim(ctx, tt.source, tt.tool, tt.op, nil)
			_, err := trim.NamedShape()
			assert.ErrorIs(t, err, ErrNullArgument)
		})
	}
}

func TestTrimStraddling(t *testing.T) {
	ctx := newContext(t, nil)
	r, c := straddling(t, ctx)

	tests := []struct {
		name         string
		source, tool *named.Shape
		op           TrimOperation
		wantFaces    int
	}{
		{"R outside C", r, c, Exclude, 13},
		{"R inside C", r, c, Include, 1},
		{"C outside R", c, r, Exclude, 5},
		{"C inside R", c, r, Include, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTrim(ctx, tt.source, tt.tool, tt.op, nil).NamedShape()
			require.NoError(t, err)
			assert.Equal(t, tt.wantFaces, got.FaceCount())
			assert.Equal(t, map[string]int{tt.source.Name(): tt.wantFaces}, countNames(got))
			assertRootedIn(t, got, tt.source)
		})
	}
}

// resting returns R = [0,2]^3 and a cube C standing on the top face of R.
// The only contact is the square patch [0.5,1.5]^2 at z = 2.
func resting(t *testing.T, ctx *Context) (r, c *named.Shape) {
	t.Helper()
	r = newBox(t, ctx, "R", kernel.Point{0, 0, 0}, kernel.Point{2, 2, 2})
	c = newBox(t, ctx, "C", kernel.Point{0.5, 0.5, 2}, kernel.Point{1.5, 1.5, 3})
	return r, c
}

// assertNoContactFace fails if s has a face lying in the contact patch of
// resting.
func assertNoContactFace(t *testing.T, k kernel.Kernel, s *named.Shape) {
	t.Helper()
	for i, f := range k.Faces(s.Shape()) {
		p := k.CentralPoint(f)
		inPatch := math.Abs(p[2]-2) < 1e-9 && math.Abs(p[0]-1) < 0.5 && math.Abs(p[1]-1) < 0.5
		assert.False(t, inPatch, "face %d (%s) at %v lies in the contact patch", i, s.FaceTraits(i).Name, p)
	}
}

func TestTrimFaceContactDropsOnFaces(t *testing.T) {
	ctx := newContext(t, nil)
	k := ctx.kernel()
	r, c := resting(t, ctx)

	tests := []struct {
		name         string
		source, tool *named.Shape
		op           TrimOperation
		wantFaces    int
	}{
		// Five untouched sides plus the top split around the patch.
		{"R outside C", r, c, Exclude, 13},
		{"R inside C", r, c, Include, 0},
		// The bottom of C is ON the top of R.
		{"C outside R", c, r, Exclude, 5},
		{"C inside R", c, r, Include, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTrim(ctx, tt.source, tt.tool, tt.op, nil).NamedShape()
			require.NoError(t, err)
			assert.Equal(t, tt.wantFaces, got.FaceCount())
			assertNoContactFace(t, k, got)
		})
	}
}

func TestFuseFaceContact(t *testing.T) {
	ctx := newContext(t, nil)
	k := ctx.kernel()
	r, c := resting(t, ctx)

	got, err := NewFuse(ctx, r, []*named.Shape{c}).NamedShape()
	require.NoError(t, err)
	assert.Equal(t, kernel.KindSolid, got.Shape().Kind())
	assert.InDelta(t, 9.0, k.Volume(got.Shape()), volumeTol)
	assert.Equal(t, map[string]int{"R": 13, "C": 5}, countNames(got))
	assertNoContactFace(t, k, got)
	assertRootedIn(t, got, r, c)
}

func TestTrimFillerOwnership(t *testing.T) {
	ctx := newContext(t, nil)
	k := ctx.kernel()
	r, c := straddling(t, ctx)

	borrowed, err := k.NewFiller(c.Shape(), r.Shape())
	require.NoError(t, err)
	_, err = NewTrim(ctx, r, c, Exclude, Borrow(borrowed)).NamedShape()
	require.NoError(t, err)
	_, _, err = k.Split(borrowed, r.Shape(), c.Shape())
	assert.NoError(t, err, "borrowed filler must stay usable")
	borrowed.Release()

	owned, err := k.NewFiller(c.Shape(), r.Shape())
	require.NoError(t, err)
	_, err = NewTrim(ctx, r, c, Exclude, Own(owned)).NamedShape()
	require.NoError(t, err)
	_, _, err = k.Split(owned, r.Shape(), c.Shape())
	assert.Error(t, err, "owned filler must be released by the trim")
}

func TestTrimDump(t *testing.T) {
	ctx := newContext(t, nil)
	var labels []string
	ctx.Dump = func(label string, _ kernel.Shape) { labels = append(labels, label) }
	r, c := straddling(t, ctx)

	_, err := NewTrim(ctx, r, c, Exclude, nil).NamedShape()
	require.NoError(t, err)
	assert.Equal(t, []string{"trim-split-R", "trim-result-R"}, labels)
}

// ---------------------------------------------------------------------------
// Cut, merge, group
// ---------------------------------------------------------------------------

func TestCutSeparateToolIsIdentity(t *testing.T) {
	ctx := newContext(t, nil)
	a := newBox(t, ctx, "A", kernel.Point{0, 0, 0}, kernel.Point{1, 1, 1})
	b := newBox(t, ctx, "B", kernel.Point{3, 0, 0}, kernel.Point{4, 1, 1})

	got, err := NewCut(ctx, a, b).NamedShape()
	require.NoError(t, err)
	assert.Equal(t, a.FaceNames(), got.FaceNames())
	assert.InDelta(t, 1.0, ctx.kernel().Volume(got.Shape()), volumeTol)
}

func TestCutNullInput(t *testing.T) {
	ctx := newContext(t, nil)
	a := newBox(t, ctx, "A", kernel.Point{0, 0, 0}, kernel.Point{1, 1, 1})

	got, err := NewCut(ctx, a, nil).NamedShape()
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = NewCut(ctx, ctx.Registry.New(nil, "null"), a).NamedShape()
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCutStraddling(t *testing.T) {
	ctx := newContext(t, nil)
	r, c := straddling(t, ctx)

	got, err := NewCut(ctx, r, c).NamedShape()
	require.NoError(t, err)
	assert.Equal(t, kernel.KindSolid, got.Shape().Kind())
	assert.InDelta(t, 7.5, ctx.kernel().Volume(got.Shape()), volumeTol)
	assert.Equal(t, map[string]int{"R": 13, "C": 5}, countNames(got))
	assert.Equal(t, "R", got.Name())
	assertRootedIn(t, got, r, c)
}

func TestMergeWithMirror(t *testing.T) {
	ctx := newContext(t, nil)
	k := ctx.kernel()
	wing := newBox(t, ctx, "wing", kernel.Point{0, 0, 0}, kernel.Point{1, 1, 1})
	wing.SetShortName("W1")
	mirror := ctx.Registry.New(k.Mirror(wing.Shape(), kernel.PlaneXZ), "wing_mirrored")

	got, err := Merge(ctx, wing, mirror)
	require.NoError(t, err)
	assert.Equal(t, wing.FaceCount()+mirror.FaceCount()-2, got.FaceCount())
	assert.Equal(t, map[string]int{"wing": 5, "wing_mirrored": 5}, countNames(got))
	assert.Equal(t, "wing", got.Name())
	assert.Equal(t, "W1", got.ShortName())
	assert.InDelta(t, 2.0, k.Volume(got.Shape()), volumeTol)

	// The symmetry face is gone.
	for _, f := range got.Faces() {
		p := k.CentralPoint(f)
		assert.Greater(t, math.Abs(p[1]), volumeTol, "symmetry face %v still present", p)
	}
	assertRootedIn(t, got, wing, mirror)
}

func TestMergeSeparateMatchesGroup(t *testing.T) {
	ctx := newContext(t, nil)
	a := newBox(t, ctx, "A", kernel.Point{0, 0, 0}, kernel.Point{1, 1, 1})
	b := newBox(t, ctx, "B", kernel.Point{3, 0, 0}, kernel.Point{4, 1, 1})

	merged, err := Merge(ctx, a, b)
	require.NoError(t, err)
	group := Group(ctx, a, b)
	assert.Equal(t, group.FaceCount(), merged.FaceCount())
	assert.Equal(t, countNames(group), countNames(merged))
}

func TestMergeDegenerate(t *testing.T) {
	ctx := newContext(t, nil)
	a := newBox(t, ctx, "A", kernel.Point{0, 0, 0}, kernel.Point{1, 1, 1})
	empty := ctx.Registry.New(ctx.kernel().Compound(), "empty")

	got, err := Merge(ctx, nil, a)
	require.NoError(t, err)
	assert.Same(t, a, got)

	got, err = Merge(ctx, a, empty)
	require.NoError(t, err)
	assert.Same(t, a, got)

	got, err = Merge(ctx, empty, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGroup(t *testing.T) {
	ctx := newContext(t, nil)
	a := newBox(t, ctx, "A", kernel.Point{0, 0, 0}, kernel.Point{1, 1, 1})
	b := newBox(t, ctx, "B", kernel.Point{3, 0, 0}, kernel.Point{4, 1, 1})

	assert.Same(t, a, Group(ctx, a))
	assert.Nil(t, Group(ctx))
	assert.Nil(t, Group(ctx, nil, ctx.Registry.New(nil, "null")))

	g := Group(ctx, a, nil, b)
	require.NotNil(t, g)
	assert.Equal(t, GroupName, g.Name())
	assert.Equal(t, map[string]int{"A": 6, "B": 6}, countNames(g))
	assertRootedIn(t, g, a, b)
}

// ---------------------------------------------------------------------------
// Fuse
// ---------------------------------------------------------------------------

func TestFuseStraddlingCube(t *testing.T) {
	ctx := newContext(t, nil)
	k := ctx.kernel()
	r, c := straddling(t, ctx)
	fuse := NewFuse(ctx, r, []*named.Shape{c})

	got, err := fuse.NamedShape()
	require.NoError(t, err)
	assert.Equal(t, kernel.KindSolid, got.Shape().Kind())
	assert.InDelta(t, 8.5, k.Volume(got.Shape()), volumeTol)
	assert.Equal(t, map[string]int{"R": 13, "C": 5}, countNames(got))
	assertRootedIn(t, got, r, c)

	parent, err := fuse.TrimmedParent()
	require.NoError(t, err)
	assert.Equal(t, 13, parent.FaceCount())
	children, err := fuse.TrimmedChildren()
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, 5, children[0].FaceCount())

	ints, err := fuse.Intersections()
	require.NoError(t, err)
	require.Len(t, ints, 1)
	assert.Equal(t, "R_x_C", ints[0].Name())
	assert.Equal(t, "INT1", ints[0].ShortName())
	edges := k.Edges(ints[0].Shape())
	require.NotEmpty(t, edges)
	for _, e := range edges {
		mid := kernel.Point{(e[0][0] + e[1][0]) / 2, (e[0][1] + e[1][1]) / 2, (e[0][2] + e[1][2]) / 2}
		assert.Equal(t, kernel.StateOn, k.Classify(r.Shape(), mid, kernel.Confusion), "edge %v vs R", e)
		assert.Equal(t, kernel.StateOn, k.Classify(c.Shape(), mid, kernel.Confusion), "edge %v vs C", e)
	}
}

func TestFuseTwoChildren(t *testing.T) {
	ctx := newContext(t, nil)
	k := ctx.kernel()
	r, c := straddling(t, ctx)
	d := newBox(t, ctx, "D", kernel.Point{0.25, 0.5, 1.5}, kernel.Point{1.25, 1.5, 2.5})
	far := newBox(t, ctx, "far", kernel.Point{10, 10, 10}, kernel.Point{11, 11, 11})

	fuse := NewFuse(ctx, r, []*named.Shape{c, nil, d, far})
	got, err := fuse.NamedShape()
	require.NoError(t, err)
	// The far box does not touch R and stays a separate solid.
	assert.InDelta(t, 8+0.5+0.5+1, k.Volume(got.Shape()), volumeTol)
	assert.Equal(t, 5, countNames(got)["D"])
	assert.Equal(t, 6, countNames(got)["far"])

	ints, err := fuse.Intersections()
	require.NoError(t, err)
	require.Len(t, ints, 2)
	assert.Equal(t, []string{"R_x_C", "R_x_D"}, []string{ints[0].Name(), ints[1].Name()})
	assert.Equal(t, []string{"INT1", "INT2"}, []string{ints[0].ShortName(), ints[1].ShortName()})
	assertRootedIn(t, got, r, c, d, far)
}

func TestFuseDegenerate(t *testing.T) {
	ctx := newContext(t, nil)
	a := newBox(t, ctx, "A", kernel.Point{0, 0, 0}, kernel.Point{1, 1, 1})
	b := newBox(t, ctx, "B", kernel.Point{3, 0, 0}, kernel.Point{4, 1, 1})

	t.Run("no parent groups children", func(t *testing.T) {
		fuse := NewFuse(ctx, nil, []*named.Shape{a, b})
		got, err := fuse.NamedShape()
		require.NoError(t, err)
		assert.Equal(t, GroupName, got.Name())
		assert.Equal(t, 12, got.FaceCount())
		ints, err := fuse.Intersections()
		require.NoError(t, err)
		assert.Empty(t, ints)
	})

	t.Run("no children returns parent", func(t *testing.T) {
		fuse := NewFuse(ctx, a, nil)
		got, err := fuse.NamedShape()
		require.NoError(t, err)
		assert.Same(t, a, got)
		parent, err := fuse.TrimmedParent()
		require.NoError(t, err)
		assert.Same(t, a, parent)
	})
}

// ---------------------------------------------------------------------------
// Caching
// ---------------------------------------------------------------------------

func TestOperationsComputeOnce(t *testing.T) {
	ck := kerneltest.NewCounting(polyhedral.New())
	ctx := newContext(t, ck)
	r, c := straddling(t, ctx)

	tests := []struct {
		name string
		get  func() (*named.Shape, error)
	}{
		{"trim", NewTrim(ctx, r, c, Exclude, nil).NamedShape},
		{"cut", NewCut(ctx, r, c).NamedShape},
		{"fuse", NewFuse(ctx, r, []*named.Shape{c}).NamedShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := tt.get()
			require.NoError(t, err)
			splits := ck.Splits()
			assert.Positive(t, splits)

			second, err := tt.get()
			require.NoError(t, err)
			assert.Same(t, first, second)
			assert.Equal(t, splits, ck.Splits(), "result recomputed")
		})
	}
}
