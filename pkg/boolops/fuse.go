package boolops

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/lazy"
	"github.com/chazu/aerofuse/pkg/named"
)

// IntersectionName returns the name of the curve where child meets parent.
func IntersectionName(parent, child string) string {
	return parent + "_x_" + child
}

// IntersectionShortName returns the short name of the n-th intersection
// (1-based).
func IntersectionShortName(n int) string {
	return fmt.Sprintf("INT%d", n)
}

// Fuse unites a parent solid with a list of children. The parent is
// trimmed outside every child, each child is trimmed outside the parent,
// and the fragments are sewn into one solid named after the parent. The
// curves where each child meets the parent are kept as intersections.
type Fuse struct {
	ctx      *Context
	parent   *named.Shape
	children []*named.Shape

	result lazy.Value[*fuseResult]
}

type fuseResult struct {
	shape           *named.Shape
	trimmedParent   *named.Shape
	trimmedChildren []*named.Shape
	intersections   []*named.Shape
}

// NewFuse prepares the union of parent and children.
func NewFuse(ctx *Context, parent *named.Shape, children []*named.Shape) *Fuse {
	return &Fuse{ctx: ctx, parent: parent, children: children}
}

// NamedShape returns the fused solid. Without a parent it is the group of
// the children.
func (f *Fuse) NamedShape() (*named.Shape, error) {
	r, err := f.result.Get(f.perform)
	if err != nil {
		return nil, err
	}
	return r.shape, nil
}

// TrimmedParent returns the parent with every child's volume cut away.
func (f *Fuse) TrimmedParent() (*named.Shape, error) {
	r, err := f.result.Get(f.perform)
	if err != nil {
		return nil, err
	}
	return r.trimmedParent, nil
}

// TrimmedChildren returns each child with the parent's volume cut away.
func (f *Fuse) TrimmedChildren() ([]*named.Shape, error) {
	r, err := f.result.Get(f.perform)
	if err != nil {
		return nil, err
	}
	return r.trimmedChildren, nil
}

// Intersections returns the parent/child intersection curves in child
// order. Children that do not touch the parent contribute none.
func (f *Fuse) Intersections() ([]*named.Shape, error) {
	r, err := f.result.Get(f.perform)
	if err != nil {
		return nil, err
	}
	return r.intersections, nil
}

func (f *Fuse) perform() (*fuseResult, error) {
	if f.parent.IsNull() {
		return &fuseResult{shape: Group(f.ctx, f.children...)}, nil
	}
	var children []*named.Shape
	for _, c := range f.children {
		if !c.IsNull() {
			children = append(children, c)
		}
	}
	if len(children) == 0 {
		return &fuseResult{shape: f.parent, trimmedParent: f.parent}, nil
	}

	k := f.ctx.kernel()
	res := &fuseResult{}
	running := f.parent
	for _, child := range children {
		trimmedParent, trimmedChild, section, err := f.fuseChild(k, running, child)
		if err != nil {
			return nil, err
		}
		running = trimmedParent
		res.trimmedChildren = append(res.trimmedChildren, trimmedChild)
		if section != nil {
			section.SetShortName(IntersectionShortName(len(res.intersections) + 1))
			res.intersections = append(res.intersections, section)
		}
	}
	res.trimmedParent = running

	parts := append([]*named.Shape{running}, res.trimmedChildren...)
	var faces []kernel.Shape
	for _, p := range parts {
		faces = append(faces, p.Faces()...)
	}
	f.ctx.logger().Debug("fuse",
		zap.String("parent", f.parent.Name()),
		zap.Int("children", len(children)),
		zap.Int("faces", len(faces)),
		zap.Int("intersections", len(res.intersections)),
	)
	shape, err := solidify(f.ctx, f.parent.Name(), f.parent.ShortName(), faces, parts...)
	if err != nil {
		return nil, fmt.Errorf("fuse %s: %w", f.parent.Name(), err)
	}
	res.shape = shape
	return res, nil
}

// fuseChild trims the running parent against child and child against the
// original parent, and extracts their intersection curve. The child is
// classified against the original parent because the running parent is
// an open shell once the first child has been trimmed away.
func (f *Fuse) fuseChild(k kernel.Kernel, running, child *named.Shape) (trimmedParent, trimmedChild, section *named.Shape, err error) {
	filler, err := k.NewFiller(f.parent.Shape(), child.Shape())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fuse %s with %s: %w", f.parent.Name(), child.Name(), err)
	}
	defer filler.Release()

	var parentRef FillerRef
	if running == f.parent {
		parentRef = Borrow(filler)
	}
	trimmedParent, err = NewTrim(f.ctx, running, child, Exclude, parentRef).NamedShape()
	if err != nil {
		return nil, nil, nil, err
	}
	trimmedChild, err = NewTrim(f.ctx, child, f.parent, Exclude, Borrow(filler)).NamedShape()
	if err != nil {
		return nil, nil, nil, err
	}

	curve, err := k.Section(filler)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("section %s with %s: %w", f.parent.Name(), child.Name(), err)
	}
	if k.IsEmpty(curve) {
		return trimmedParent, trimmedChild, nil, nil
	}
	section = f.ctx.Registry.New(curve, IntersectionName(f.parent.Name(), child.Name()))
	return trimmedParent, trimmedChild, section, nil
}
