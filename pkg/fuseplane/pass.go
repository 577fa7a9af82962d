package fuseplane

import (
	"fmt"

	"github.com/chazu/aerofuse/pkg/boolops"
	"github.com/chazu/aerofuse/pkg/named"
)

// pass holds what one fusing run accumulates.
type pass struct {
	ctx           *boolops.Context
	mode          ResultMode
	intersections []*named.Shape
	trimmed       []*named.Shape
}

// fuseWithChildren fuses the subtrees of children into parent. A nil
// parent groups the fused children instead.
func (ps *pass) fuseWithChildren(parent Component, children []Component) (*named.Shape, error) {
	var parentShape *named.Shape
	if parent != nil {
		var err error
		parentShape, err = ps.loft(parent)
		if err != nil {
			return nil, err
		}
	}
	if len(children) == 0 {
		return parentShape, nil
	}

	childShapes := make([]*named.Shape, 0, len(children))
	for _, c := range children {
		s, err := ps.fuseWithChildren(c, c.Children())
		if err != nil {
			return nil, err
		}
		childShapes = append(childShapes, s)
	}

	fuse := boolops.NewFuse(ps.ctx, parentShape, childShapes)
	result, err := fuse.NamedShape()
	if err != nil {
		return nil, err
	}
	if parentShape.IsNull() {
		return result, nil
	}

	if err := ps.clipIntersections(parentShape, false); err != nil {
		return nil, err
	}
	curves, err := fuse.Intersections()
	if err != nil {
		return nil, err
	}
	ps.intersections = append(ps.intersections, curves...)

	trimmedParent, err := fuse.TrimmedParent()
	if err != nil {
		return nil, err
	}
	trimmedChildren, err := fuse.TrimmedChildren()
	if err != nil {
		return nil, err
	}
	ps.trimmed = append(ps.trimmed, trimmedParent)
	ps.trimmed = append(ps.trimmed, trimmedChildren...)
	return result, nil
}

// loft returns a private copy of the component solid, merged with its
// mirror image in mirrored modes.
func (ps *pass) loft(c Component) (*named.Shape, error) {
	loft, err := c.Loft()
	if err != nil {
		return nil, fmt.Errorf("loft %s: %w", c.UID(), err)
	}
	if loft.IsNull() {
		return nil, nil
	}
	s := loft.DeepCopy()
	if !ps.mode.Mirrored() {
		return s, nil
	}
	mirror, err := c.MirroredLoft()
	if err != nil {
		return nil, fmt.Errorf("mirrored loft %s: %w", c.UID(), err)
	}
	if mirror.IsNull() {
		return s, nil
	}
	merged, err := boolops.Merge(ps.ctx, s, mirror.DeepCopy())
	if err != nil {
		return nil, fmt.Errorf("mirror %s: %w", c.UID(), err)
	}
	return merged, nil
}

// clipIntersections cuts every curve collected so far to the part outside
// (or, with keepInside, inside) solid. Curves that vanish are dropped.
func (ps *pass) clipIntersections(solid *named.Shape, keepInside bool) error {
	reg := ps.ctx.Registry
	k := reg.Kernel()
	kept := ps.intersections[:0]
	for _, curve := range ps.intersections {
		clipped, err := k.ClipEdges(curve.Shape(), solid.Shape(), keepInside)
		if err != nil {
			return fmt.Errorf("clip %s by %s: %w", curve.Name(), solid.Name(), err)
		}
		if clipped == nil || k.IsEmpty(clipped) {
			continue
		}
		out := reg.New(clipped, curve.Name())
		out.SetShortName(curve.ShortName())
		kept = append(kept, out)
	}
	ps.intersections = kept
	return nil
}

// trimFarField keeps the part of fused inside the far field and the part
// of the far field outside fused. Both trims share one filler.
func (ps *pass) trimFarField(fused, ff *named.Shape) (aircraft, farField *named.Shape, err error) {
	k := ps.ctx.Registry.Kernel()
	filler, err := k.NewFiller(fused.Shape(), ff.Shape())
	if err != nil {
		return nil, nil, err
	}
	defer filler.Release()

	aircraft, err = boolops.NewTrim(ps.ctx, fused, ff, boolops.Include, boolops.Borrow(filler)).NamedShape()
	if err != nil {
		return nil, nil, err
	}
	farField, err = boolops.NewTrim(ps.ctx, ff, fused, boolops.Exclude, boolops.Borrow(filler)).NamedShape()
	if err != nil {
		return nil, nil, err
	}
	if err := ps.clipIntersections(ff, true); err != nil {
		return nil, nil, err
	}
	return aircraft, farField, nil
}
