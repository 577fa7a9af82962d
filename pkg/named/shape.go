// Package named attaches names and provenance to kernel shapes.
//
// A Shape pairs a kernel shape with a name, a short display name and one
// FaceTraits per face. Traits record which earlier shape and face a face
// was derived from, so exporters can label every face of a fused result
// with the component it came from.
package named

import (
	"github.com/chazu/aerofuse/pkg/kernel"
)

// FaceTraits is the name and provenance of one face.
type FaceTraits struct {
	Name   string `json:"name"`
	Origin Handle `json:"origin"` // NoOrigin when the face has no ancestor
	Index  int    `json:"index"`  // face index within Origin
}

// Shape is a kernel shape with per-face names. Shapes are allocated
// through a Registry and are not shared across goroutines while being
// built.
type Shape struct {
	reg       *Registry
	handle    Handle
	shape     kernel.Shape
	name      string
	shortName string
	traits    []FaceTraits
}

// Handle returns the shape's handle in its registry.
func (s *Shape) Handle() Handle { return s.handle }

// Registry returns the registry the shape was allocated in.
func (s *Shape) Registry() *Registry { return s.reg }

// Shape returns the underlying kernel shape, nil for a null shape.
func (s *Shape) Shape() kernel.Shape { return s.shape }

// IsNull reports whether there is no underlying kernel shape.
func (s *Shape) IsNull() bool { return s == nil || s.shape == nil }

func (s *Shape) Name() string      { return s.name }
func (s *Shape) ShortName() string { return s.shortName }

func (s *Shape) SetName(name string)           { s.name = name }
func (s *Shape) SetShortName(shortName string) { s.shortName = shortName }

// FaceCount returns the number of faces (and traits).
func (s *Shape) FaceCount() int {
	if s == nil {
		return 0
	}
	return len(s.traits)
}

// Faces enumerates the kernel faces in trait order.
func (s *Shape) Faces() []kernel.Shape {
	if s.IsNull() {
		return nil
	}
	return s.reg.kernel.Faces(s.shape)
}

// FaceTraits returns the trait of face i.
func (s *Shape) FaceTraits(i int) FaceTraits { return s.traits[i] }

// SetFaceTraits replaces the trait of face i.
func (s *Shape) SetFaceTraits(i int, t FaceTraits) { s.traits[i] = t }

// Traits returns a copy of all traits.
func (s *Shape) Traits() []FaceTraits {
	out := make([]FaceTraits, len(s.traits))
	copy(out, s.traits)
	return out
}

// FaceNames returns the name of every face in order.
func (s *Shape) FaceNames() []string {
	out := make([]string, len(s.traits))
	for i, t := range s.traits {
		out[i] = t.Name
	}
	return out
}

// Clone returns a new shape sharing the kernel shape and copying names
// and traits.
func (s *Shape) Clone() *Shape {
	c := &Shape{
		reg:       s.reg,
		shape:     s.shape,
		name:      s.name,
		shortName: s.shortName,
		traits:    s.Traits(),
	}
	s.reg.register(c)
	return c
}

// DeepCopy duplicates the geometry. Each face of the copy keeps its name
// and points back to the matching face of s.
func (s *Shape) DeepCopy() *Shape {
	c := &Shape{
		reg:       s.reg,
		name:      s.name,
		shortName: s.shortName,
		traits:    make([]FaceTraits, len(s.traits)),
	}
	if !s.IsNull() {
		c.shape = s.reg.kernel.Copy(s.shape)
	}
	for i, t := range s.traits {
		c.traits[i] = FaceTraits{Name: t.Name, Origin: s.handle, Index: i}
	}
	s.reg.register(c)
	return c
}

// RootTrait follows the provenance of face i back to the authored shape
// and returns that shape and face index. A face without origin is its own
// root.
func (s *Shape) RootTrait(i int) (*Shape, int) {
	cur, idx := s, i
	for {
		t := cur.traits[idx]
		if t.Origin == NoOrigin {
			return cur, idx
		}
		next := cur.reg.Lookup(t.Origin)
		if next == nil || t.Index < 0 || t.Index >= len(next.traits) {
			return cur, idx
		}
		cur, idx = next, t.Index
	}
}
