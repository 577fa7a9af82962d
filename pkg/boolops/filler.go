package boolops

import "github.com/chazu/aerofuse/pkg/kernel"

// FillerRef passes a shared intersection structure to an operation along
// with the responsibility for releasing it. A nil FillerRef asks the
// operation to build its own filler and release it when done.
type FillerRef interface {
	Filler() kernel.Filler
	release()
}

type ownedFiller struct{ f kernel.Filler }

func (o ownedFiller) Filler() kernel.Filler { return o.f }
func (o ownedFiller) release()              { o.f.Release() }

type borrowedFiller struct{ f kernel.Filler }

func (b borrowedFiller) Filler() kernel.Filler { return b.f }
func (b borrowedFiller) release()              {}

// Own hands f to the operation, which releases it after use.
func Own(f kernel.Filler) FillerRef { return ownedFiller{f} }

// Borrow lends f to the operation. The caller keeps ownership and must
// release it.
func Borrow(f kernel.Filler) FillerRef { return borrowedFiller{f} }
