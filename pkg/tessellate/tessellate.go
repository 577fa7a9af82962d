// Package tessellate turns named shapes into triangle meshes using a
// geometry kernel. One mesh is produced per face name, so a fused aircraft
// yields one mesh per component.
package tessellate

import (
	"fmt"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/named"
)

// faceGroup collects the faces carrying one name.
type faceGroup struct {
	name  string
	faces []kernel.Shape
}

// groupFaces buckets the faces of s by trait name, in order of first
// appearance.
func groupFaces(s *named.Shape) []*faceGroup {
	var groups []*faceGroup
	byName := make(map[string]*faceGroup)
	faces := s.Faces()
	for i, f := range faces {
		name := s.FaceTraits(i).Name
		g, ok := byName[name]
		if !ok {
			g = &faceGroup{name: name}
			byName[name] = g
			groups = append(groups, g)
		}
		g.faces = append(g.faces, f)
	}
	return groups
}

// Tessellate produces one triangle mesh per face name of s. Meshes are
// ordered by the first face carrying each name; Mesh.PartName holds the
// name. The tessellator is read-only and never mutates s.
func Tessellate(s *named.Shape, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if s.IsNull() {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	for _, g := range groupFaces(s) {
		mesh, err := k.ToMesh(k.Compound(g.faces...))
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for %q: %w", g.name, err)
		}
		mesh.PartName = g.name
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// Merged produces a single mesh holding every face of s. PartName is the
// shape name.
func Merged(s *named.Shape, k kernel.Kernel) (*kernel.Mesh, error) {
	meshes, err := Tessellate(s, k)
	if err != nil {
		return nil, err
	}
	out := &kernel.Mesh{}
	if s != nil {
		out.PartName = s.Name()
	}
	for _, m := range meshes {
		out.Append(m)
	}
	return out, nil
}
