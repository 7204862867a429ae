package meta

import (
	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/timestep"
)

// Checker determines whether the goal described by a Choice has been
// achieved in some state.
type Checker interface {
	Satisfied(s environment.State, c Choice) bool
}

// CheckerFunc adapts a function to the Checker interface
type CheckerFunc func(s environment.State, c Choice) bool

// Satisfied implements the Checker interface
func (f CheckerFunc) Satisfied(s environment.State, c Choice) bool {
	return f(s, c)
}

// Scripted is a reflex Controller which follows a fixed plan of
// subtasks. In each state it chooses the first step of the plan whose
// goal is not yet satisfied, or subtask 0 once every step is satisfied.
//
// Scripted does not learn. The error it reports on Train is the fraction
// of episodes recorded since the last call to Train which ended before
// the plan was complete.
type Scripted struct {
	plan    []Choice
	checker Checker

	episodes   int
	incomplete int
}

// NewScripted returns a new Scripted controller following plan
func NewScripted(plan []Choice, checker Checker) *Scripted {
	p := make([]Choice, len(plan))
	copy(p, plan)

	return &Scripted{
		plan:    p,
		checker: checker,
	}
}

// Plan returns the plan followed by the controller
func (s *Scripted) Plan() []Choice {
	p := make([]Choice, len(s.plan))
	copy(p, s.plan)
	return p
}

// Act implements the Controller interface
func (s *Scripted) Act(states []environment.State, _ bool) []Choice {
	choices := make([]Choice, len(states))
	for i, state := range states {
		choices[i] = s.next(state)
	}
	return choices
}

// next returns the first unsatisfied step of the plan in state
func (s *Scripted) next(state environment.State) Choice {
	for _, step := range s.plan {
		if !s.checker.Satisfied(state, step) {
			return step
		}
	}
	return Choice{}
}

// Experience implements the Controller interface
func (s *Scripted) Experience(episode timestep.Episode) {
	if len(episode) == 0 {
		return
	}
	s.episodes++

	last := episode[len(episode)-1]
	if s.next(last.S2) != (Choice{}) {
		s.incomplete++
	}
}

// Train implements the Controller interface
func (s *Scripted) Train() (float64, error) {
	if s.episodes == 0 {
		return 0, nil
	}

	err := float64(s.incomplete) / float64(s.episodes)
	s.episodes, s.incomplete = 0, 0
	return err, nil
}
