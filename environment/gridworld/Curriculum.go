package gridworld

import (
	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/meta"
)

// Subtasks of a GridWorld
const (
	// None means no subtask remains
	None = iota

	// GoTo moves to the landmark given by its argument
	GoTo

	// Home returns home
	Home

	numSubtasks
)

// Curriculum implements a curriculum over every task of a GridWorld.
// The meta-controller of each task follows a fixed plan: go to each
// landmark of the task in order, then go home.
type Curriculum struct {
	world *GridWorld
}

// NewCurriculum returns a new Curriculum for the tasks of world
func NewCurriculum(world *GridWorld) *Curriculum {
	return &Curriculum{world: world}
}

// NumTasks implements the agent.Curriculum interface
func (c *Curriculum) NumTasks() int {
	return c.world.NumTasks()
}

// NumSubtasks implements the agent.Curriculum interface
func (c *Curriculum) NumSubtasks() int {
	return numSubtasks
}

// NumArgs implements the agent.Curriculum interface. The argument of a
// GoTo subtask is a landmark.
func (c *Curriculum) NumArgs() int {
	return c.world.NumLandmarks()
}

// Plan returns the plan of a task
func (c *Curriculum) Plan(task int) []meta.Choice {
	landmarks := c.world.Task(task)
	plan := make([]meta.Choice, 0, len(landmarks)+1)
	for _, l := range landmarks {
		plan = append(plan, meta.Choice{Subtask: GoTo, Arg: l})
	}
	return append(plan, meta.Choice{Subtask: Home})
}

// NewController implements the agent.Curriculum interface
func (c *Curriculum) NewController(task int) meta.Controller {
	return meta.NewScripted(c.Plan(task), meta.CheckerFunc(c.satisfied))
}

// satisfied returns whether the goal of a subtask holds in a state
func (c *Curriculum) satisfied(state environment.State,
	choice meta.Choice) bool {
	s, ok := state.(*State)
	if !ok {
		return false
	}

	switch choice.Subtask {
	case GoTo:
		return s.Visited(choice.Arg)
	case Home:
		return c.world.Complete(s)
	default:
		return true
	}
}
