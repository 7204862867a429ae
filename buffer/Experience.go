// Package buffer implements storage of transitions awaiting a training
// update and the discounted return calculations used to label them.
package buffer

import (
	"fmt"

	"github.com/samuelfneumann/modularac/timestep"
)

// Experience is an ordered, append-only store of transitions. Between
// updates transitions are only appended; an update consumes the buffer
// atomically with Drain.
type Experience struct {
	transitions []timestep.Transition
}

// New returns a new Experience buffer with room for capacity
// transitions before it must grow.
func New(capacity int) *Experience {
	return &Experience{
		transitions: make([]timestep.Transition, 0, capacity),
	}
}

// Add appends transitions to the buffer in the order given
func (e *Experience) Add(t ...timestep.Transition) {
	e.transitions = append(e.transitions, t...)
}

// Len returns the number of transitions in the buffer
func (e *Experience) Len() int {
	return len(e.transitions)
}

// At returns the transition at index i, in arrival order
func (e *Experience) At(i int) timestep.Transition {
	return e.transitions[i]
}

// Select returns the first n transitions, in arrival order, for which
// keep returns true. If keep is nil, every transition is kept. If fewer
// than n transitions are kept, an error satisfying
// IsInsufficientSamples is returned. Select never modifies the buffer.
func (e *Experience) Select(n int,
	keep func(timestep.Transition) bool) ([]timestep.Transition, error) {
	selected := make([]timestep.Transition, 0, n)
	for _, t := range e.transitions {
		if len(selected) == n {
			break
		}
		if keep == nil || keep(t) {
			selected = append(selected, t)
		}
	}

	if len(selected) < n {
		return nil, &BufferError{
			Op: "select",
			Err: fmt.Errorf("%w: want(%v) have(%v)", errInsufficientSamples,
				n, len(selected)),
		}
	}
	return selected, nil
}

// Drain removes every transition from the buffer
func (e *Experience) Drain() {
	for i := range e.transitions {
		e.transitions[i] = timestep.Transition{}
	}
	e.transitions = e.transitions[:0]
}
