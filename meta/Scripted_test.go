package meta

import (
	"testing"

	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/timestep"
)

// visited is a state which records the set of satisfied subtasks
type visited map[int]bool

func (v visited) Features() []float64 { return nil }

var checker = CheckerFunc(func(s environment.State, c Choice) bool {
	return s.(visited)[c.Subtask]
})

func TestScriptedFollowsPlan(t *testing.T) {
	plan := []Choice{{1, 3}, {2, 0}}
	s := NewScripted(plan, checker)

	tests := []struct {
		state visited
		want  Choice
	}{
		{visited{}, Choice{1, 3}},
		{visited{1: true}, Choice{2, 0}},
		{visited{2: true}, Choice{1, 3}},
		{visited{1: true, 2: true}, Choice{}},
	}

	states := make([]environment.State, len(tests))
	for i := range tests {
		states[i] = tests[i].state
	}

	have := s.Act(states, true)
	for i, test := range tests {
		if have[i] != test.want {
			t.Errorf("state %v: want(%v) have(%v)", test.state, test.want,
				have[i])
		}
	}
}

func TestScriptedTrainReportsIncompleteFraction(t *testing.T) {
	s := NewScripted([]Choice{{1, 0}}, checker)

	if err, _ := s.Train(); err != 0 {
		t.Errorf("no episodes: want(0) have(%v)", err)
	}

	s.Experience(timestep.Episode{{S2: visited{1: true}}})
	s.Experience(timestep.Episode{{S2: visited{}}})
	s.Experience(nil)

	err, trainErr := s.Train()
	if trainErr != nil {
		t.Fatal(trainErr)
	}
	if err != 0.5 {
		t.Errorf("want(0.5) have(%v)", err)
	}

	if err, _ := s.Train(); err != 0 {
		t.Errorf("train should reset counts: have(%v)", err)
	}
}
