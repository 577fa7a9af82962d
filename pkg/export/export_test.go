package export

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"
	"go.uber.org/zap/zaptest"

	"github.com/chazu/aerofuse/pkg/assembly"
	"github.com/chazu/aerofuse/pkg/boolops"
	"github.com/chazu/aerofuse/pkg/fuseplane"
	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/kernel/polyhedral"
	"github.com/chazu/aerofuse/pkg/named"
)

func newContext(t *testing.T) *boolops.Context {
	t.Helper()
	return boolops.NewContext(named.NewRegistry(polyhedral.New(), 0), zaptest.NewLogger(t))
}

func box(t *testing.T, ctx *boolops.Context, name string, min, max kernel.Point) *named.Shape {
	t.Helper()
	s, err := ctx.Registry.Kernel().Box(min, max)
	require.NoError(t, err)
	return ctx.Registry.New(s, name)
}

// straddle fuses a 2-cube with a unit cube sticking out of its +x face.
func straddle(t *testing.T) (*boolops.Context, Result) {
	t.Helper()
	ctx := newContext(t)
	r := box(t, ctx, "R", kernel.Point{0, 0, 0}, kernel.Point{2, 2, 2})
	c := box(t, ctx, "C", kernel.Point{1.5, 0.5, 0.5}, kernel.Point{2.5, 1.5, 1.5})
	fuse := boolops.NewFuse(ctx, r, []*named.Shape{c})
	fused, err := fuse.NamedShape()
	require.NoError(t, err)
	ints, err := fuse.Intersections()
	require.NoError(t, err)
	require.Len(t, ints, 1)
	return ctx, Result{Shape: fused, Intersections: ints}
}

// trimmedFarField fuses a 2-cube and a straddling unit cube inside a
// full-cube far field of half size 5, trimming the far field.
func trimmedFarField(t *testing.T) (kernel.Kernel, Result) {
	t.Helper()
	reg := named.NewRegistry(polyhedral.New(), 0)
	m := assembly.New("D150")
	m.Add(&assembly.Component{UID: "R", Geometry: assembly.BoxGeometry{Max: kernel.Point{2, 2, 2}}})
	m.Add(&assembly.Component{UID: "C", Parent: "R", Geometry: assembly.BoxGeometry{
		Min: kernel.Point{1.5, 0.5, 0.5}, Max: kernel.Point{2.5, 1.5, 1.5},
	}})
	m.FarField = assembly.FarField{Type: assembly.FarFieldFullCube, ReferenceLength: 5, Multiplier: 1}
	cfg, err := assembly.Build(reg, m)
	require.NoError(t, err)

	plane := fuseplane.New(boolops.NewContext(reg, zaptest.NewLogger(t)), cfg)
	plane.SetResultMode(fuseplane.HalfPlaneTrimmedFF)
	var r Result
	r.Shape, err = plane.FusedPlane()
	require.NoError(t, err)
	r.Intersections, err = plane.Intersections()
	require.NoError(t, err)
	r.FarField, err = plane.FarField()
	require.NoError(t, err)
	require.False(t, r.FarField.IsNull())
	r.Trimmed, err = plane.TrimmedComponents()
	require.NoError(t, err)
	require.Len(t, r.Trimmed, 2)
	return reg.Kernel(), r
}

// linesByLayer counts the LINE entities of a DXF file per layer.
func linesByLayer(t *testing.T, path string) map[string]int {
	t.Helper()
	d, err := dxf.Open(path)
	require.NoError(t, err)
	out := make(map[string]int)
	for _, e := range d.Entities() {
		if l, ok := e.(*entity.Line); ok {
			out[l.Layer().Name()]++
		}
	}
	return out
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	n := 0
	for _, c := range linesByLayer(t, path) {
		n += c
	}
	return n
}

func edgeCount(k kernel.Kernel, s *named.Shape) int {
	n := 0
	for _, f := range s.Faces() {
		n += len(k.Edges(f))
	}
	return n
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("out/plane.STL")
	require.NoError(t, err)
	assert.Equal(t, FormatSTL, f)
	f, err = FormatFromPath("plane.dxf")
	require.NoError(t, err)
	assert.Equal(t, FormatDXF, f)
	_, err = FormatFromPath("plane.step")
	assert.ErrorContains(t, err, ".step")
	assert.Equal(t, "Format(7)", Format(7).String())
}

func TestTriangles(t *testing.T) {
	m := &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0},
		Indices:  []uint32{0, 1, 2, 1, 3, 2},
	}
	tris := Triangles(m)
	require.Len(t, tris, 2)
	assert.Equal(t, 1.0, tris[1][0].X)
	assert.Equal(t, 1.0, tris[1][1].Y)
}

func TestWriteSTL(t *testing.T) {
	ctx := newContext(t)
	k := ctx.Registry.Kernel()
	b := box(t, ctx, "fuselage", kernel.Point{0, 0, 0}, kernel.Point{4, 2, 1})
	path := filepath.Join(t.TempDir(), "fuselage.stl")

	require.NoError(t, WriteSTL(path, b, k))
	info, err := os.Stat(path)
	require.NoError(t, err)
	// Binary STL: 80-byte header, triangle count, 50 bytes per triangle.
	assert.Equal(t, int64(84+50*12), info.Size())
}

func TestWriteSTLNullShape(t *testing.T) {
	err := WriteSTL(filepath.Join(t.TempDir(), "x.stl"), nil, polyhedral.New())
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestWriteDXF(t *testing.T) {
	ctx, r := straddle(t)
	k := ctx.Registry.Kernel()
	path := filepath.Join(t.TempDir(), "plane.dxf")

	require.NoError(t, WriteDXF(path, r, k))

	want := 0
	for _, f := range r.Shape.Faces() {
		want += len(k.Edges(f))
	}
	want += len(k.Edges(r.Intersections[0].Shape()))
	assert.Equal(t, want, countLines(t, path))
}

func TestWriteDXFTrimmedFarField(t *testing.T) {
	k, r := trimmedFarField(t)
	path := filepath.Join(t.TempDir(), "plane.dxf")

	require.NoError(t, WriteDXF(path, r, k))
	layers := linesByLayer(t, path)
	assert.Equal(t, edgeCount(k, r.FarField), layers[FarFieldLayer])
	assert.Positive(t, layers[FarFieldLayer])
	assert.Equal(t, "TRIMMED_01_R", TrimmedLayer(0, r.Trimmed[0]))
	for i, part := range r.Trimmed {
		assert.Equal(t, edgeCount(k, part), layers[TrimmedLayer(i, part)], "part %d", i)
	}
	assert.Equal(t, len(k.Edges(r.Intersections[0].Shape())), layers["R_x_C"])

	// Far field alone is still something to export.
	require.NoError(t, WriteDXF(path, Result{FarField: r.FarField}, k))
	assert.Equal(t, map[string]int{FarFieldLayer: edgeCount(k, r.FarField)}, linesByLayer(t, path))
}

func TestWriteDXFIntersectionsOnly(t *testing.T) {
	ctx, r := straddle(t)
	k := ctx.Registry.Kernel()
	path := filepath.Join(t.TempDir(), "curves.dxf")

	require.NoError(t, WriteDXF(path, Result{Intersections: r.Intersections}, k))
	assert.Equal(t, len(k.Edges(r.Intersections[0].Shape())), countLines(t, path))

	err := WriteDXF(path, Result{}, k)
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestWriteAll(t *testing.T) {
	ctx, r := straddle(t)
	dir := t.TempDir()
	jobs := []Job{
		{Format: FormatSTL, Path: filepath.Join(dir, "plane.stl")},
		{Format: FormatDXF, Path: filepath.Join(dir, "plane.dxf")},
	}

	require.NoError(t, WriteAll(context.Background(), jobs, r, ctx.Registry.Kernel(), zaptest.NewLogger(t)))
	for _, j := range jobs {
		assert.FileExists(t, j.Path)
	}
}

func TestWriteAllReportsFailure(t *testing.T) {
	ctx, r := straddle(t)
	jobs := []Job{
		{Format: FormatSTL, Path: filepath.Join(t.TempDir(), "missing", "dir", "plane.stl")},
	}
	err := WriteAll(context.Background(), jobs, r, ctx.Registry.Kernel(), nil)
	assert.Error(t, err)
}

func TestWriteAllCancelled(t *testing.T) {
	ctx, r := straddle(t)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "plane.stl")

	err := WriteAll(cancelled, []Job{{Format: FormatSTL, Path: path}}, r, ctx.Registry.Kernel(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, path)
}

func TestWriteShapeDXF(t *testing.T) {
	ctx := newContext(t)
	k := ctx.Registry.Kernel()
	b := box(t, ctx, "B", kernel.Point{0, 0, 0}, kernel.Point{1, 1, 1})
	path := filepath.Join(t.TempDir(), "dump.dxf")

	require.NoError(t, WriteShapeDXF(path, "trim-split-B", b.Shape(), k))
	assert.Equal(t, 24, countLines(t, path))
	assert.ErrorIs(t, WriteShapeDXF(path, "x", nil, k), ErrNothingToExport)
}

func TestNewScene(t *testing.T) {
	ctx, r := straddle(t)
	k := ctx.Registry.Kernel()

	scene, err := NewScene(r, k)
	require.NoError(t, err)
	assert.Equal(t, r.Shape.Name(), scene.Name)
	require.Len(t, scene.Meshes, 2)
	assert.NotEqual(t, scene.Meshes[0].Color, scene.Meshes[1].Color)
	require.Len(t, scene.Intersections, 1)
	curve := scene.Intersections[0]
	assert.Equal(t, "R_x_C", curve.Name)
	assert.Equal(t, "INT1", curve.ShortName)
	assert.Len(t, curve.Segments, 6*len(k.Edges(r.Intersections[0].Shape())))
}

func TestNewSceneTrimmedFarField(t *testing.T) {
	k, r := trimmedFarField(t)

	scene, err := NewScene(r, k)
	require.NoError(t, err)
	require.NotNil(t, scene.FarField)
	assert.Equal(t, FarFieldLayer, scene.FarField.PartName)
	assert.NotEmpty(t, scene.FarField.Indices)
	require.Len(t, scene.Trimmed, 2)
	assert.Equal(t, "R", scene.Trimmed[0].PartName)
	assert.Equal(t, "C", scene.Trimmed[1].PartName)
	for _, m := range scene.Trimmed {
		assert.NotEmpty(t, m.Indices)
	}

	plain, err := NewScene(Result{Shape: r.Shape}, k)
	require.NoError(t, err)
	assert.Nil(t, plain.FarField)
	assert.Empty(t, plain.Trimmed)
}

func TestWriteJSON(t *testing.T) {
	ctx, r := straddle(t)
	path := filepath.Join(t.TempDir(), "plane.json")

	require.NoError(t, Write(Job{Format: FormatJSON, Path: path}, r, ctx.Registry.Kernel()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var scene Scene
	require.NoError(t, json.Unmarshal(data, &scene))
	assert.Len(t, scene.Meshes, 2)
	for _, m := range scene.Meshes {
		assert.Equal(t, len(m.Vertices), len(m.Normals))
		assert.NotEmpty(t, m.Indices)
	}

	err = WriteJSON(path, Result{}, ctx.Registry.Kernel())
	assert.ErrorIs(t, err, ErrNothingToExport)
}
