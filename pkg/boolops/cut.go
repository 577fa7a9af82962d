package boolops

import (
	"fmt"

	"github.com/chazu/aerofuse/pkg/lazy"
	"github.com/chazu/aerofuse/pkg/named"
)

// Cut subtracts tool from source. It trims source outside tool and tool
// inside source over one shared filler, then merges the two pieces.
type Cut struct {
	ctx    *Context
	source *named.Shape
	tool   *named.Shape

	result lazy.Value[*named.Shape]
}

// NewCut prepares source minus tool.
func NewCut(ctx *Context, source, tool *named.Shape) *Cut {
	return &Cut{ctx: ctx, source: source, tool: tool}
}

// NamedShape returns the difference, or nil when either input is missing.
func (c *Cut) NamedShape() (*named.Shape, error) {
	return c.result.Get(c.perform)
}

func (c *Cut) perform() (*named.Shape, error) {
	if c.source.IsNull() || c.tool.IsNull() {
		return nil, nil
	}
	f, err := c.ctx.kernel().NewFiller(c.source.Shape(), c.tool.Shape())
	if err != nil {
		return nil, fmt.Errorf("cut %s by %s: %w", c.source.Name(), c.tool.Name(), err)
	}
	defer f.Release()

	outside, err := NewTrim(c.ctx, c.source, c.tool, Exclude, Borrow(f)).NamedShape()
	if err != nil {
		return nil, err
	}
	inside, err := NewTrim(c.ctx, c.tool, c.source, Include, Borrow(f)).NamedShape()
	if err != nil {
		return nil, err
	}
	return Merge(c.ctx, outside, inside)
}
