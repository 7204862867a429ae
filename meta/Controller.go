// Package meta defines the meta-controllers which choose the subtask,
// and argument of that subtask, that a modular agent pursues.
package meta

import (
	"fmt"

	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/timestep"
)

// Choice is a subtask and argument chosen by a Controller. Subtask 0 is
// reserved and means that no subtask remains, ending the episode.
type Choice struct {
	Subtask int
	Arg     int
}

func (c Choice) String() string {
	return fmt.Sprintf("(%v, %v)", c.Subtask, c.Arg)
}

// Controller chooses subtasks for the rollouts of a single task. A
// Controller is independently stateful and opaque to the agent.
type Controller interface {
	// Act returns one Choice per state. If init is true, the states are
	// the first states of new episodes.
	Act(states []environment.State, init bool) []Choice

	// Experience records a completed episode
	Experience(episode timestep.Episode)

	// Train performs an update and returns the controller's error
	Train() (float64, error)
}
