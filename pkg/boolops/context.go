// Package boolops implements boolean operations on named shapes: trim,
// cut, merge, group and fuse. Every operation carries face names from its
// operands to its result so that a fused assembly still knows which
// component each face belongs to.
package boolops

import (
	"errors"

	"go.uber.org/zap"

	"github.com/chazu/aerofuse/pkg/kernel"
	"github.com/chazu/aerofuse/pkg/named"
)

// DefaultMergeTolerance is the distance under which two face central
// points are considered coincident by Merge.
const DefaultMergeTolerance = 1e-5

// ErrNullArgument reports a required shape input that is absent.
var ErrNullArgument = errors.New("null argument")

// Context carries what every operation of one pipeline run needs. It is
// passed explicitly; there is no package-level state.
type Context struct {
	Registry *named.Registry
	Logger   *zap.Logger

	// Tolerance is used to classify face central points. Zero means
	// kernel.Confusion.
	Tolerance float64
	// MergeTolerance is used to pair interface faces. Zero means
	// DefaultMergeTolerance.
	MergeTolerance float64

	// Dump, when set, receives intermediate shapes for inspection.
	Dump func(label string, s kernel.Shape)
}

// NewContext returns a Context with default tolerances.
func NewContext(reg *named.Registry, logger *zap.Logger) *Context {
	return &Context{Registry: reg, Logger: logger}
}

func (c *Context) kernel() kernel.Kernel { return c.Registry.Kernel() }

func (c *Context) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Context) tolerance() float64 {
	if c.Tolerance <= 0 {
		return kernel.Confusion
	}
	return c.Tolerance
}

func (c *Context) mergeTolerance() float64 {
	if c.MergeTolerance <= 0 {
		return DefaultMergeTolerance
	}
	return c.MergeTolerance
}

func (c *Context) dump(label string, s kernel.Shape) {
	if c.Dump != nil && s != nil {
		c.Dump(label, s)
	}
}
