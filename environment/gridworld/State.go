package gridworld

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// State is an immutable state of a GridWorld
type State struct {
	task     int
	position int
	number   int
	visited  []bool
	features *mat.VecDense
}

// Features implements the environment.State interface
func (s *State) Features() []float64 {
	return s.features.RawVector().Data
}

// Task returns the task the state belongs to
func (s *State) Task() int {
	return s.task
}

// Position returns the flattened position of the agent
func (s *State) Position() int {
	return s.position
}

// Visited returns whether landmark l has been visited
func (s *State) Visited(l int) bool {
	return l >= 0 && l < len(s.visited) && s.visited[l]
}

func (s *State) String() string {
	return fmt.Sprintf("State | Task: %d  |  Position: %d  |  Visited: %v",
		s.task, s.position, s.visited)
}
