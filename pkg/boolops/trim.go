package boolops

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/lazy"
	"github.com/chazu/aerofuse/pkg/named"
)

// TrimOperation selects which fragments of a trimmed shape survive. The
// only values are Include and Exclude.
type TrimOperation interface {
	fmt.Stringer
	keeps(s kernel.State) bool
}

type includeOp struct{}

func (includeOp) String() string            { return "include" }
func (includeOp) keeps(s kernel.State) bool { return s == kernel.StateIn }

type excludeOp struct{}

func (excludeOp) String() string            { return "exclude" }
func (excludeOp) keeps(s kernel.State) bool { return s == kernel.StateOut }

var (
	// Include keeps the fragments inside the tool.
	Include TrimOperation = includeOp{}
	// Exclude keeps the fragments outside the tool.
	Exclude TrimOperation = excludeOp{}
)

// Trim splits a source shape along a closed tool solid and keeps the
// fragments on one side of it. The result is computed on first access.
type Trim struct {
	ctx    *Context
	source *named.Shape
	tool   *named.Shape
	op     TrimOperation
	filler FillerRef

	result lazy.Value[*named.Shape]
}

// NewTrim prepares a trim of source by tool. Inputs are validated when the
// result is first requested.
func NewTrim(ctx *Context, source, tool *named.Shape, op TrimOperation, filler FillerRef) *Trim {
	return &Trim{ctx: ctx, source: source, tool: tool, op: op, filler: filler}
}

// NamedShape returns the trimmed shape. It fails with ErrNullArgument when
// source or tool is missing.
func (t *Trim) NamedShape() (*named.Shape, error) {
	return t.result.Get(t.perform)
}

func (t *Trim) perform() (*named.Shape, error) {
	if t.source.IsNull() {
		return nil, fmt.Errorf("trim: source: %w", ErrNullArgument)
	}
	if t.tool.IsNull() {
		return nil, fmt.Errorf("trim %s: tool: %w", t.source.Name(), ErrNullArgument)
	}
	if t.op == nil {
		return nil, fmt.Errorf("trim %s: operation: %w", t.source.Name(), ErrNullArgument)
	}
	k := t.ctx.kernel()
	log := t.ctx.logger().With(
		zap.String("source", t.source.Name()),
		zap.String("tool", t.tool.Name()),
		zap.Stringer("op", t.op),
	)

	ref := t.filler
	if ref == nil {
		f, err := k.NewFiller(t.tool.Shape(), t.source.Shape())
		if err != nil {
			return nil, fmt.Errorf("trim %s: %w", t.source.Name(), err)
		}
		ref = Own(f)
	}
	defer ref.release()

	split, h, err := k.Split(ref.Filler(), t.source.Shape(), t.tool.Shape())
	if err != nil {
		return nil, fmt.Errorf("trim %s by %s: %w", t.source.Name(), t.tool.Name(), err)
	}
	t.ctx.dump("trim-split-"+t.source.Name(), split)

	var kept, modified []kernel.Shape
	keep := func(f kernel.Shape) {
		st := k.Classify(t.tool.Shape(), k.CentralPoint(f), t.ctx.tolerance())
		if t.op.keeps(st) {
			kept = append(kept, f)
		}
	}
	for _, f := range t.source.Faces() {
		for _, m := range h.Modified(f) {
			modified = append(modified, m)
			keep(m)
		}
	}
	splitFaces := k.Faces(split)
	for _, f := range splitFaces {
		if !containsSame(k, modified, f) {
			keep(f)
		}
	}
	log.Debug("trim classified",
		zap.Int("fragments", len(splitFaces)),
		zap.Int("modified", len(modified)),
		zap.Int("kept", len(kept)),
	)

	out := t.ctx.Registry.New(k.Compound(kept...), t.source.Name())
	out.SetShortName(t.source.ShortName())
	named.MapFaceNames(h, t.source, out)
	named.MapFaceNames(h, t.tool, out)
	t.ctx.dump("trim-result-"+t.source.Name(), out.Shape())

	return named.Shellify(out)
}

func containsSame(k kernel.Kernel, faces []kernel.Shape, f kernel.Shape) bool {
	for _, g := range faces {
		if k.IsSame(g, f) {
			return true
		}
	}
	return false
}
