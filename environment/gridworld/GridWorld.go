// Package gridworld implements a 2D gridworld of landmarks. In each
// task the agent must visit a sequence of landmarks and then return
// home.
package gridworld

import (
	"fmt"

	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/timestep"
	"gonum.org/v1/gonum/mat"
)

// Primitive actions
const (
	Left = iota
	Right
	Up
	Down
	numActions
)

// Point is a position (x, y) in a GridWorld
type Point struct {
	X, Y int
}

// GridWorld is a gridworld environment with a home position and a
// number of landmarks. A GridWorld is immutable; all dynamic
// information is held in States.
//
// The features of a state are the one-hot encoding of the agent's
// position followed by one bit per landmark which is set once the
// landmark has been visited.
type GridWorld struct {
	r, c      int
	home      int
	landmarks []int
	tasks     [][]int

	completeReward float64
	stepReward     float64
}

// New creates a new GridWorld with r rows and c columns. Each task is
// a sequence of indices into landmarks to be visited, after which the
// agent must return home. A reward of 1 is given on the step which
// completes a task, and 0 otherwise.
func New(r, c int, home Point, landmarks []Point,
	tasks [][]int) (*GridWorld, error) {
	if r <= 0 || c <= 0 {
		return nil, fmt.Errorf("new: invalid dimensions (%d, %d)", r, c)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("new: at least one task is required")
	}

	g := &GridWorld{
		r:              r,
		c:              c,
		landmarks:      make([]int, len(landmarks)),
		tasks:          make([][]int, len(tasks)),
		completeReward: 1.0,
	}

	var err error
	if g.home, err = g.index(home); err != nil {
		return nil, fmt.Errorf("new: home: %v", err)
	}
	for i, l := range landmarks {
		if g.landmarks[i], err = g.index(l); err != nil {
			return nil, fmt.Errorf("new: landmark %d: %v", i, err)
		}
		if g.landmarks[i] == g.home {
			return nil, fmt.Errorf("new: landmark %d is at home", i)
		}
	}

	for i, task := range tasks {
		if len(task) == 0 {
			return nil, fmt.Errorf("new: task %d is empty", i)
		}
		for _, l := range task {
			if l < 0 || l >= len(landmarks) {
				return nil, fmt.Errorf("new: task %d: no landmark %d", i, l)
			}
		}
		g.tasks[i] = append([]int(nil), task...)
	}

	return g, nil
}

// Dims gets the rows and columns of the GridWorld
func (g *GridWorld) Dims() (r, c int) {
	return g.r, g.c
}

// NActions implements the environment.World interface
func (g *GridWorld) NActions() int {
	return numActions
}

// NFeatures implements the environment.World interface
func (g *GridWorld) NFeatures() int {
	return g.r*g.c + len(g.landmarks)
}

// NumTasks returns the number of tasks in the GridWorld
func (g *GridWorld) NumTasks() int {
	return len(g.tasks)
}

// NumLandmarks returns the number of landmarks in the GridWorld
func (g *GridWorld) NumLandmarks() int {
	return len(g.landmarks)
}

// Task returns the sequence of landmarks of a task
func (g *GridWorld) Task(task int) []int {
	return append([]int(nil), g.tasks[task]...)
}

// Start returns the starting state of a task, at home with no landmarks
// visited
func (g *GridWorld) Start(task int) (environment.State, error) {
	if task < 0 || task >= len(g.tasks) {
		return nil, fmt.Errorf("start: no task %d", task)
	}
	return g.newState(task, g.home, 0, make([]bool, len(g.landmarks))), nil
}

// Step takes action in state and returns the next TimeStep. The
// TimeStep is the last in its episode if the task has been completed.
func (g *GridWorld) Step(state environment.State,
	action int) (timestep.TimeStep, error) {
	s, ok := state.(*State)
	if !ok {
		return timestep.TimeStep{}, fmt.Errorf("step: state of type %T "+
			"is not a gridworld state", state)
	}
	if action < 0 || action >= numActions {
		return timestep.TimeStep{}, fmt.Errorf("step: illegal action %d",
			action)
	}

	x, y := g.coordinates(s.position)
	switch action {
	case Left:
		if x-1 >= 0 {
			x--
		}
	case Right:
		if x+1 < g.c {
			x++
		}
	case Up:
		if y+1 < g.r {
			y++
		}
	case Down:
		if y-1 >= 0 {
			y--
		}
	}
	position := cToInd(x, y, g.c)

	visited := append([]bool(nil), s.visited...)
	for i, l := range g.landmarks {
		if l == position {
			visited[i] = true
		}
	}
	next := g.newState(s.task, position, s.number+1, visited)

	reward := g.stepReward
	stepType := timestep.Mid
	if g.Complete(next) {
		reward = g.completeReward
		stepType = timestep.Last
	}

	return timestep.New(stepType, reward, next, next.number), nil
}

// Complete returns whether every landmark of the state's task has been
// visited and the agent has returned home
func (g *GridWorld) Complete(s *State) bool {
	if s.position != g.home {
		return false
	}
	for _, l := range g.tasks[s.task] {
		if !s.visited[l] {
			return false
		}
	}
	return true
}

// AtHome returns whether the agent is at home in s
func (g *GridWorld) AtHome(s *State) bool {
	return s.position == g.home
}

// newState returns a new state with its features
func (g *GridWorld) newState(task, position, number int,
	visited []bool) *State {
	features := mat.NewVecDense(g.NFeatures(), nil)
	features.SetVec(position, 1.0)
	for i, v := range visited {
		if v {
			features.SetVec(g.r*g.c+i, 1.0)
		}
	}

	return &State{
		task:     task,
		position: position,
		number:   number,
		visited:  visited,
		features: features,
	}
}

// index returns the flattened index of p
func (g *GridWorld) index(p Point) (int, error) {
	if p.X < 0 || p.X >= g.c {
		return 0, fmt.Errorf("x = %d outside of cols = %d", p.X, g.c)
	} else if p.Y < 0 || p.Y >= g.r {
		return 0, fmt.Errorf("y = %d outside of rows = %d", p.Y, g.r)
	}
	return cToInd(p.X, p.Y, g.c), nil
}

// coordinates converts a flattened index to (x, y) coordinates
func (g *GridWorld) coordinates(i int) (int, int) {
	y := i / g.c
	x := i - (y * g.c)
	return x, y
}

func cToInd(x, y, c int) int {
	return y*c + x
}

func (g *GridWorld) String() string {
	x, y := g.coordinates(g.home)
	return fmt.Sprintf("GridWorld | Home: (%d, %d)  |  Landmarks: %d  |  "+
		"Bounds: (%d, %d)", x, y, len(g.landmarks), g.r, g.c)
}
