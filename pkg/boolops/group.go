package boolops

import (
	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/named"
)

// GroupName is the name given to grouped shapes.
const GroupName = "GROUP"

// Group collects shapes into one compound without any geometric work.
// Every face keeps the name it had in its operand. A single argument is
// returned unchanged; null operands are skipped.
func Group(ctx *Context, shapes ...*named.Shape) *named.Shape {
	if len(shapes) == 1 {
		return shapes[0]
	}
	var parts []*named.Shape
	var raw []kernel.Shape
	for _, s := range shapes {
		if s.IsNull() {
			continue
		}
		parts = append(parts, s)
		raw = append(raw, s.Shape())
	}
	if len(parts) == 0 {
		return nil
	}
	out := ctx.Registry.New(ctx.kernel().Compound(raw...), GroupName)
	for _, p := range parts {
		named.AppendNamesToShape(p, out)
	}
	return out
}
