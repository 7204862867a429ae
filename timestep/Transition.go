package timestep

import (
	"fmt"

	"github.com/samuelfneumann/modularac/environment"
)

// MetaState is the decision context of a modular agent for a single
// rollout at some point in time. It is independent of the environment
// state.
//
// Remaining and Step are placeholders and are always reported as 0.
type MetaState struct {
	Subtask   int
	Arg       int
	Remaining int
	Task      int
	Step      int
}

func (m MetaState) String() string {
	return fmt.Sprintf("MetaState | Task: %v  |  Subtask: %v  |  Arg: %v",
		m.Task, m.Subtask, m.Arg)
}

// Transition is a single (s, m, a, s', m', r) tuple. The action A is an
// index into the action space of the module which took it: values below
// the world's primitive action count are primitive actions, the value
// equal to it is the terminate action, and larger values denote subtask
// switches.
type Transition struct {
	S1 environment.State
	M1 MetaState
	A  int
	S2 environment.State
	M2 MetaState
	R  float64
}

// WithReward returns a copy of the Transition with its reward replaced
func (t Transition) WithReward(r float64) Transition {
	t.R = r
	return t
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | %v  |  Action: %v  |  Reward: %.3f",
		t.M1, t.A, t.R)
}

// Episode is an ordered sequence of transitions, first to last
type Episode []Transition

// Task returns the task from which the episode originated, as recorded
// in the pre-transition meta-state of its first transition. If the
// episode is empty, -1 is returned.
func (e Episode) Task() int {
	if len(e) == 0 {
		return -1
	}
	return e[0].M1.Task
}

// Return returns the undiscounted sum of rewards in the episode
func (e Episode) Return() float64 {
	var ret float64
	for _, t := range e {
		ret += t.R
	}
	return ret
}
