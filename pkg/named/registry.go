package named

import (
	"fmt"
	"sync"

	"github.com/chazu/aerofuse/pkg/kernel"
)

// Handle identifies a Shape within its Registry. Handles are dense and
// allocated in increasing order, so a face's origin always has a smaller
// handle than the shape holding the face.
type Handle uint32

// NoOrigin is the reserved handle meaning "no ancestor".
const NoOrigin Handle = 0

// Registry is the arena every Shape of one pipeline run is allocated in.
// It also carries the kernel and the sewing tolerance the run uses.
// Registries are independent: handles from different registries are not
// comparable.
type Registry struct {
	kernel    kernel.Kernel
	tolerance float64

	mu     sync.RWMutex
	shapes []*Shape // index 0 is NoOrigin
}

// NewRegistry creates an empty registry. A non-positive tolerance falls
// back to kernel.Confusion.
func NewRegistry(k kernel.Kernel, tolerance float64) *Registry {
	if tolerance <= 0 {
		tolerance = kernel.Confusion
	}
	return &Registry{
		kernel:    k,
		tolerance: tolerance,
		shapes:    []*Shape{nil},
	}
}

// Kernel returns the geometry kernel shapes of this registry live in.
func (r *Registry) Kernel() kernel.Kernel { return r.kernel }

// Tolerance returns the sewing tolerance.
func (r *Registry) Tolerance() float64 { return r.tolerance }

// Len returns the number of shapes allocated so far.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shapes) - 1
}

// Lookup resolves a handle. It returns nil for NoOrigin and unknown handles.
func (r *Registry) Lookup(h Handle) *Shape {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h == NoOrigin || int(h) >= len(r.shapes) {
		return nil
	}
	return r.shapes[h]
}

// MustLookup resolves a handle or panics.
func (r *Registry) MustLookup(h Handle) *Shape {
	s := r.Lookup(h)
	if s == nil {
		panic(fmt.Sprintf("named: no shape with handle %d", h))
	}
	return s
}

// New allocates a shape named name. Every face trait defaults to
// {name, NoOrigin, i}. A nil kernel shape yields a null Shape.
func (r *Registry) New(s kernel.Shape, name string) *Shape {
	sh := &Shape{reg: r, shape: s, name: name, shortName: name}
	if s != nil {
		n := len(r.kernel.Faces(s))
		sh.traits = make([]FaceTraits, n)
		for i := range sh.traits {
			sh.traits[i] = FaceTraits{Name: name, Origin: NoOrigin, Index: i}
		}
	}
	r.register(sh)
	return sh
}

func (r *Registry) register(sh *Shape) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh.handle = Handle(len(r.shapes))
	r.shapes = append(r.shapes, sh)
}
