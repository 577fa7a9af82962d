package named

import (
	"fmt"

	"github.com/chazu/aerofuse/pkg/kernel"
)

// MapFaceNames copies names from source onto the faces of target that a
// kernel operation derived from them. For every face i of source, each
// face in h.Modified(i) that is also a face of target receives
// {source name, source handle, i}. Faces that survived unchanged are then
// handled by AppendNamesToShape. Unmatched target faces keep their trait.
//
// Origins are only recorded when target was allocated after source, so
// provenance chains always terminate. Mapping a shape onto itself copies
// names without origins.
func MapFaceNames(h kernel.History, source, target *Shape) {
	if source.IsNull() || target.IsNull() {
		return
	}
	k := target.reg.kernel
	if h != nil {
		srcFaces := k.Faces(source.shape)
		tgtFaces := k.Faces(target.shape)
		for i, f := range srcFaces {
			for _, m := range h.Modified(f) {
				for j, tf := range tgtFaces {
					if k.IsSame(m, tf) {
						target.traits[j] = derive(source, i, target)
					}
				}
			}
		}
	}
	AppendNamesToShape(source, target)
}

// AppendNamesToShape gives every face of target that is the same face as
// a face of source that source face's trait.
func AppendNamesToShape(source, target *Shape) {
	if source.IsNull() || target.IsNull() {
		return
	}
	k := target.reg.kernel
	srcFaces := k.Faces(source.shape)
	tgtFaces := k.Faces(target.shape)
	for j, tf := range tgtFaces {
		for i, sf := range srcFaces {
			if k.IsSame(sf, tf) {
				target.traits[j] = inherit(source, i, target)
				break
			}
		}
	}
}

// derive builds the trait of a face of target produced from face i of
// source.
func derive(source *Shape, i int, target *Shape) FaceTraits {
	t := FaceTraits{Name: source.traits[i].Name, Origin: NoOrigin, Index: i}
	if source.handle < target.handle {
		t.Origin = source.handle
	}
	return t
}

// inherit returns the trait of face i of source for reuse on target. A
// trait that already has an origin is copied as is; an authored face
// gets source as its origin.
func inherit(source *Shape, i int, target *Shape) FaceTraits {
	t := source.traits[i]
	if t.Origin == NoOrigin || source.handle >= target.handle {
		return derive(source, i, target)
	}
	return t
}

// Shellify sews the faces of s into shells and carries every face name
// across. A shape without faces is returned unchanged.
func Shellify(s *Shape) (*Shape, error) {
	if s.IsNull() || s.FaceCount() == 0 {
		return s, nil
	}
	k := s.reg.kernel
	sewn, h, err := k.Sew(s.shape, s.reg.tolerance)
	if err != nil {
		return nil, fmt.Errorf("shellify %s: %w", s.name, err)
	}
	out := s.reg.New(sewn, s.name)
	out.shortName = s.shortName
	MapFaceNames(h, s, out)
	return out, nil
}
