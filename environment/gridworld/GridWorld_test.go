package gridworld

import (
	"testing"

	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/meta"
)

func newTestWorld(t *testing.T) *GridWorld {
	g, err := New(
		3, 3,
		Point{0, 0},
		[]Point{{2, 0}, {0, 2}},
		[][]int{{0}, {0, 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name      string
		home      Point
		landmarks []Point
		tasks     [][]int
	}{
		{"home outside", Point{3, 0}, []Point{{1, 1}}, [][]int{{0}}},
		{"landmark at home", Point{0, 0}, []Point{{0, 0}}, [][]int{{0}}},
		{"unknown landmark", Point{0, 0}, []Point{{1, 1}}, [][]int{{1}}},
		{"no tasks", Point{0, 0}, []Point{{1, 1}}, nil},
		{"empty task", Point{0, 0}, []Point{{1, 1}}, [][]int{{}}},
	}

	for _, test := range tests {
		if _, err := New(3, 3, test.home, test.landmarks,
			test.tasks); err == nil {
			t.Errorf("%v: expected error", test.name)
		}
	}
}

func TestFeatures(t *testing.T) {
	g := newTestWorld(t)
	s, err := g.Start(0)
	if err != nil {
		t.Fatal(err)
	}

	f := s.Features()
	if len(f) != g.NFeatures() {
		t.Fatalf("features: want(%v) have(%v)", g.NFeatures(), len(f))
	}
	if f[0] != 1 {
		t.Error("home position not set")
	}
	for i := 1; i < len(f); i++ {
		if f[i] != 0 {
			t.Errorf("feature %v: want(0) have(%v)", i, f[i])
		}
	}
}

func TestStepWalls(t *testing.T) {
	g := newTestWorld(t)
	s, _ := g.Start(0)

	for _, a := range []int{Left, Down} {
		step, err := g.Step(s, a)
		if err != nil {
			t.Fatal(err)
		}
		if p := step.State.(*State).Position(); p != 0 {
			t.Errorf("action %v: moved through wall to %v", a, p)
		}
	}

	if _, err := g.Step(s, numActions); err == nil {
		t.Error("expected illegal action error")
	}
}

func TestCompleteTask(t *testing.T) {
	g := newTestWorld(t)
	s, err := g.Start(0)
	if err != nil {
		t.Fatal(err)
	}
	start := s.(*State)

	// Right twice to landmark 0, then left twice home
	state := start
	actions := []int{Right, Right, Left, Left}
	for i, a := range actions {
		step, err := g.Step(state, a)
		if err != nil {
			t.Fatal(err)
		}
		state = step.State.(*State)

		last := i == len(actions)-1
		if step.Last() != last {
			t.Errorf("step %v: last want(%v) have(%v)", i, last, step.Last())
		}
		if last && step.Reward != 1 {
			t.Errorf("final reward: want(1) have(%v)", step.Reward)
		}
		if !last && step.Reward != 0 {
			t.Errorf("step %v: reward want(0) have(%v)", i, step.Reward)
		}
		if step.Number != i+1 {
			t.Errorf("step %v: number want(%v) have(%v)", i, i+1, step.Number)
		}
	}

	if !state.Visited(0) || state.Visited(1) {
		t.Errorf("visited: have %v", state)
	}
	if start.Visited(0) {
		t.Error("stepping modified the previous state")
	}
}

func TestCurriculumPlan(t *testing.T) {
	g := newTestWorld(t)
	c := NewCurriculum(g)

	if c.NumTasks() != 2 || c.NumArgs() != 2 || c.NumSubtasks() != 3 {
		t.Fatalf("curriculum: have (%v, %v, %v)", c.NumTasks(),
			c.NumSubtasks(), c.NumArgs())
	}

	want := []meta.Choice{
		{Subtask: GoTo, Arg: 0},
		{Subtask: GoTo, Arg: 1},
		{Subtask: Home},
	}
	plan := c.Plan(1)
	if len(plan) != len(want) {
		t.Fatalf("plan: want(%v) have(%v)", want, plan)
	}
	for i := range want {
		if plan[i] != want[i] {
			t.Errorf("plan %v: want(%v) have(%v)", i, want[i], plan[i])
		}
	}

	s, _ := g.Start(1)
	ctrl := c.NewController(1)
	if ch := ctrl.Act([]environment.State{s}, true)[0]; ch != want[0] {
		t.Errorf("first choice: want(%v) have(%v)", want[0], ch)
	}
}
