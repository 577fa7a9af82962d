package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/aerofuse/pkg/assembly"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's limit.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned for a run that finished after a newer one
	// was started on the same engine.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// outcome is what a finished script run hands back.
type outcome struct {
	model *assembly.Model
	errs  []EvalError
	err   error
}

// job is one script run in flight.
type job struct {
	gen     uint64
	timeout time.Duration
	done    chan outcome
}

// start claims the next generation and runs fn in its own goroutine.
// A panic in fn becomes the run's error.
func (e *Engine) start(fn func() outcome) *job {
	e.mu.Lock()
	e.generation++
	j := &job{gen: e.generation, timeout: e.timeout, done: make(chan outcome, 1)}
	e.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				j.done <- outcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		j.done <- fn()
	}()
	return j
}

// latest reports whether j is still the newest run.
func (e *Engine) latest(j *job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return j.gen == e.generation
}

// wait blocks until j finishes or its timeout passes. A timed out run
// keeps going in the background; done is buffered so it never blocks.
func (e *Engine) wait(j *job) (*assembly.Model, []EvalError, error) {
	timer := time.NewTimer(j.timeout)
	defer timer.Stop()

	select {
	case o := <-j.done:
		if !e.latest(j) {
			return nil, nil, ErrSuperseded
		}
		return o.model, o.errs, o.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, j.timeout)
	}
}
