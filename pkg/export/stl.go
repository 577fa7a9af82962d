package export

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/named"
	"github.com/chazu/aerofuse/pkg/tessellate"
)

// Triangles converts a mesh to sdfx triangles.
func Triangles(m *kernel.Mesh) []*sdf.Triangle3 {
	vertex := func(i uint32) v3.Vec {
		return v3.Vec{
			X: float64(m.Vertices[3*i]),
			Y: float64(m.Vertices[3*i+1]),
			Z: float64(m.Vertices[3*i+2]),
		}
	}
	out := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for t := 0; t+2 < len(m.Indices); t += 3 {
		out = append(out, &sdf.Triangle3{
			vertex(m.Indices[t]),
			vertex(m.Indices[t+1]),
			vertex(m.Indices[t+2]),
		})
	}
	return out
}

// WriteSTL writes every face of s as one binary STL solid.
func WriteSTL(path string, s *named.Shape, k kernel.Kernel) error {
	if s.IsNull() {
		return fmt.Errorf("stl: %w", ErrNothingToExport)
	}
	mesh, err := tessellate.Merged(s, k)
	if err != nil {
		return fmt.Errorf("stl: %w", err)
	}
	if err := render.SaveSTL(path, Triangles(mesh)); err != nil {
		return fmt.Errorf("stl: save %s: %w", path, err)
	}
	return nil
}
