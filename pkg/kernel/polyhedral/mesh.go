package polyhedral

import (
	"fmt"

	"github.com/chazu/aerofuse/pkg/kernel"
)

// ToMesh triangulates every face of s as a fan. Faces are convex, so the
// fan is exact. Each face gets its own vertices so normals stay flat.
func (k *Kernel) ToMesh(s kernel.Shape) (*kernel.Mesh, error) {
	sh := unwrap(s)
	if sh == nil {
		return nil, fmt.Errorf("mesh: null shape")
	}
	m := &kernel.Mesh{}
	for _, r := range sh.allFaces() {
		l := r.loop()
		n := r.normal()
		base := uint32(m.VertexCount())
		for _, v := range l {
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		}
		for i := 1; i+1 < len(l); i++ {
			m.Indices = append(m.Indices, base, base+uint32(i), base+uint32(i+1))
		}
	}
	return m, nil
}
