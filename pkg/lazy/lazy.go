// Package lazy provides a cached computation with explicit states.
package lazy

// State is the evaluation state of a Value.
type State int

const (
	// Unevaluated means the value has never been computed.
	Unevaluated State = iota
	// Evaluated means the cached result is current.
	Evaluated
	// Invalidated means a result was computed but its inputs changed.
	Invalidated
)

func (s State) String() string {
	switch s {
	case Evaluated:
		return "evaluated"
	case Invalidated:
		return "invalidated"
	default:
		return "unevaluated"
	}
}

// Value caches the result of a computation. The zero value is
// Unevaluated. A Value is not safe for concurrent use.
type Value[T any] struct {
	state State
	value T
	err   error
}

// State returns the current state.
func (v *Value[T]) State() State { return v.state }

// Get returns the cached result, running compute when the value is
// Unevaluated or Invalidated. Errors are cached like results.
func (v *Value[T]) Get(compute func() (T, error)) (T, error) {
	if v.state != Evaluated {
		v.value, v.err = compute()
		v.state = Evaluated
	}
	return v.value, v.err
}

// Invalidate drops the cached result. It is a no-op on an Unevaluated value.
func (v *Value[T]) Invalidate() {
	if v.state == Evaluated {
		var zero T
		v.value, v.err = zero, nil
		v.state = Invalidated
	}
}
