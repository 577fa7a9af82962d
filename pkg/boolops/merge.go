package boolops

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/named"
)

// Merge joins two solids that touch along coincident faces, such as a
// shape and its mirror image. Face pairs whose central points coincide
// are the shared interface and are dropped from both sides; the remaining
// faces are sewn into a solid named after a.
//
// Pairing is greedy: each face of a takes the first unused face of b
// within the merge tolerance.
func Merge(ctx *Context, a, b *named.Shape) (*named.Shape, error) {
	k := ctx.kernel()
	if isEmpty(k, a) {
		if isEmpty(k, b) {
			return nil, nil
		}
		return b, nil
	}
	if isEmpty(k, b) {
		return a, nil
	}

	facesA, facesB := a.Faces(), b.Faces()
	centresB := make([]kernel.Point, len(facesB))
	for j, f := range facesB {
		centresB[j] = k.CentralPoint(f)
	}
	usedA := make([]bool, len(facesA))
	usedB := make([]bool, len(facesB))
	tol := ctx.mergeTolerance()
	shared := 0
	for i, f := range facesA {
		c := k.CentralPoint(f)
		for j := range facesB {
			if !usedB[j] && distance(c, centresB[j]) <= tol {
				usedA[i], usedB[j] = true, true
				shared++
				break
			}
		}
	}

	var faces []kernel.Shape
	for i, f := range facesA {
		if !usedA[i] {
			faces = append(faces, f)
		}
	}
	for j, f := range facesB {
		if !usedB[j] {
			faces = append(faces, f)
		}
	}
	ctx.logger().Debug("merge",
		zap.String("a", a.Name()),
		zap.String("b", b.Name()),
		zap.Int("shared", shared),
		zap.Int("faces", len(faces)),
	)
	out, err := solidify(ctx, a.Name(), a.ShortName(), faces, a, b)
	if err != nil {
		return nil, fmt.Errorf("merge %s with %s: %w", a.Name(), b.Name(), err)
	}
	return out, nil
}

func isEmpty(k kernel.Kernel, s *named.Shape) bool {
	return s.IsNull() || k.IsEmpty(s.Shape())
}

func distance(p, q kernel.Point) float64 {
	dx, dy, dz := p[0]-q[0], p[1]-q[1], p[2]-q[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// solidify sews faces into shells, closes them into solids and names
// every face after the part it was taken from.
func solidify(ctx *Context, name, shortName string, faces []kernel.Shape, parts ...*named.Shape) (*named.Shape, error) {
	k := ctx.kernel()
	reg := ctx.Registry
	if len(faces) == 0 {
		out := reg.New(k.Compound(), name)
		out.SetShortName(shortName)
		return out, nil
	}

	shell, sewHistory, err := k.Sew(k.Compound(faces...), reg.Tolerance())
	if err != nil {
		return nil, fmt.Errorf("sew: %w", err)
	}
	sewn := reg.New(shell, name)
	for _, p := range parts {
		named.MapFaceNames(sewHistory, p, sewn)
	}
	ctx.dump("sewn-"+name, shell)

	solid, solidHistory, err := k.MakeSolid(shell)
	if err != nil {
		return nil, fmt.Errorf("make solid: %w", err)
	}
	out := reg.New(solid, name)
	out.SetShortName(shortName)
	named.MapFaceNames(solidHistory, sewn, out)
	return out, nil
}
