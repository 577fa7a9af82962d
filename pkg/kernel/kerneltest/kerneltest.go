// Package kerneltest provides kernel wrappers for tests.
package kerneltest

import (
	"sync/atomic"

	"github.com/chazu/aerofuse/pkg/kernel"
)

// CountingKernel counts Split calls so tests can tell whether an operation
// recomputed its result.
type CountingKernel struct {
	kernel.Kernel
	splits atomic.Int64
}

// NewCounting wraps k.
func NewCounting(k kernel.Kernel) *CountingKernel {
	return &CountingKernel{Kernel: k}
}

func (c *CountingKernel) Split(f kernel.Filler, arg, tool kernel.Shape) (kernel.Shape, kernel.History, error) {
	c.splits.Add(1)
	return c.Kernel.Split(f, arg, tool)
}

// Splits returns the number of Split calls so far.
func (c *CountingKernel) Splits() int {
	return int(c.splits.Load())
}
