package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/named"
	"github.com/chazu/aerofuse/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to
// components.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

const (
	intersectionColor = "#222222"
	farFieldColor     = "#BDC3C7"
)

// MeshData is the JSON mesh format read by viewers.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// CurveData is an intersection curve as flat line segments.
type CurveData struct {
	Name      string    `json:"name"`
	ShortName string    `json:"shortName"`
	Segments  []float32 `json:"segments"` // [x0,y0,z0, x1,y1,z1, ...] pairs
	Color     string    `json:"color"`
}

// Scene is the full JSON document.
type Scene struct {
	Name          string      `json:"name"`
	Meshes        []MeshData  `json:"meshes"`
	Intersections []CurveData `json:"intersections"`
	FarField      *MeshData   `json:"farField,omitempty"`
	Trimmed       []MeshData  `json:"trimmed"`
}

// meshData tessellates every face of s into one mesh.
func meshData(s *named.Shape, k kernel.Kernel, partName, color string) (MeshData, error) {
	m, err := tessellate.Merged(s, k)
	if err != nil {
		return MeshData{}, err
	}
	return MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		PartName: partName,
		Color:    color,
	}, nil
}

// NewScene tessellates r into a scene, one mesh per face name.
func NewScene(r Result, k kernel.Kernel) (*Scene, error) {
	scene := &Scene{Meshes: []MeshData{}, Intersections: []CurveData{}, Trimmed: []MeshData{}}
	if !r.Shape.IsNull() {
		scene.Name = r.Shape.Name()
	}

	meshes, err := tessellate.Tessellate(r.Shape, k)
	if err != nil {
		return nil, err
	}
	for i, m := range meshes {
		scene.Meshes = append(scene.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}

	for _, c := range r.Intersections {
		if c.IsNull() {
			continue
		}
		curve := CurveData{Name: c.Name(), ShortName: c.ShortName(), Segments: []float32{}, Color: intersectionColor}
		for _, s := range k.Edges(c.Shape()) {
			for _, p := range s {
				curve.Segments = append(curve.Segments, float32(p[0]), float32(p[1]), float32(p[2]))
			}
		}
		scene.Intersections = append(scene.Intersections, curve)
	}

	if !r.FarField.IsNull() {
		ff, err := meshData(r.FarField, k, FarFieldLayer, farFieldColor)
		if err != nil {
			return nil, err
		}
		scene.FarField = &ff
	}
	for i, part := range r.Trimmed {
		if part.IsNull() {
			continue
		}
		m, err := meshData(part, k, part.Name(), colorPalette[i%len(colorPalette)])
		if err != nil {
			return nil, err
		}
		scene.Trimmed = append(scene.Trimmed, m)
	}
	return scene, nil
}

// WriteJSON writes r as a Scene document.
func WriteJSON(path string, r Result, k kernel.Kernel) error {
	if r.Shape.IsNull() {
		return fmt.Errorf("json: %w", ErrNothingToExport)
	}
	scene, err := NewScene(r, k)
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	data, err := json.Marshal(scene)
	if err != nil {
		return fmt.Errorf("json: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("json: write %s: %w", path, err)
	}
	return nil
}
