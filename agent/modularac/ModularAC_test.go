package modularac

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/samuelfneumann/modularac/agent"
	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/meta"
	"github.com/samuelfneumann/modularac/network"
	"github.com/samuelfneumann/modularac/solver"
	"github.com/samuelfneumann/modularac/timestep"
)

const (
	testActions  = 2
	testFeatures = 3
)

type vec []float64

func (v vec) Features() []float64 { return v }

type testWorld struct{}

func (testWorld) NActions() int  { return testActions }
func (testWorld) NFeatures() int { return testFeatures }

// testController chooses first when a rollout is initialised and next
// on every other step
type testController struct {
	first, next meta.Choice
	err         float64

	episodes []timestep.Episode
	trained  int
}

func (c *testController) Act(states []environment.State,
	init bool) []meta.Choice {
	out := make([]meta.Choice, len(states))
	for i := range out {
		if init {
			out[i] = c.first
		} else {
			out[i] = c.next
		}
	}
	return out
}

func (c *testController) Experience(ep timestep.Episode) {
	c.episodes = append(c.episodes, ep)
}

func (c *testController) Train() (float64, error) {
	c.trained++
	return c.err, nil
}

type testCurriculum struct {
	subtasks, args int
	controllers    []*testController
}

func (c *testCurriculum) NumTasks() int    { return len(c.controllers) }
func (c *testCurriculum) NumSubtasks() int { return c.subtasks }
func (c *testCurriculum) NumArgs() int     { return c.args }
func (c *testCurriculum) NewController(task int) meta.Controller {
	return c.controllers[task]
}

func newCurriculum(tasks int) *testCurriculum {
	c := &testCurriculum{subtasks: 3, args: 3}
	for i := 0; i < tasks; i++ {
		c.controllers = append(c.controllers, &testController{
			first: meta.Choice{Subtask: 1},
			next:  meta.Choice{Subtask: 1},
		})
	}
	return c
}

func testConfig(t *testing.T) Config {
	c := DefaultConfig()
	c.Hidden = 8
	c.Embed = 4
	c.UpdateSize = 4
	c.BatchSize = 4
	c.Seed = 1
	c.ExperimentDir = t.TempDir()
	return c
}

func newTestModel(t *testing.T, c Config, cur Curriculum) *ModularAC {
	m, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	m.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := m.Prepare(testWorld{}, cur); err != nil {
		t.Fatal(err)
	}
	return m
}

func transition(task, subtask, arg, a int, r float64) timestep.Transition {
	m := timestep.MetaState{Task: task, Subtask: subtask, Arg: arg}
	return timestep.Transition{
		S1: vec{1, 0, 0},
		M1: m,
		A:  a,
		S2: vec{0, 1, 0},
		M2: m,
		R:  r,
	}
}

// snapshot copies the values of the parameters keys
func snapshot(t *testing.T, s *network.Store,
	keys []network.Key) map[network.Key][]float64 {
	out := make(map[network.Key][]float64, len(keys))
	for _, k := range keys {
		data, err := s.Data(k)
		if err != nil {
			t.Fatal(err)
		}
		out[k] = append([]float64(nil), data...)
	}
	return out
}

func changed(t *testing.T, s *network.Store,
	before map[network.Key][]float64) bool {
	for k, old := range before {
		data, err := s.Data(k)
		if err != nil {
			t.Fatal(err)
		}
		for i := range old {
			if old[i] != data[i] {
				return true
			}
		}
	}
	return false
}

func TestClassify(t *testing.T) {
	const n = 4
	tests := []struct {
		a    int
		kind ActionKind
		in   bool
	}{
		{0, Primitive, true},
		{n - 1, Primitive, true},
		{n, Terminate, true},
		{n + 1, Switch, false},
		{n + 5, Switch, false},
	}

	for _, test := range tests {
		a := Classify(test.a, n)
		if a.Kind != test.kind {
			t.Errorf("classify(%v): want(%v) have(%v)", test.a, test.kind,
				a.Kind)
		}
		if a.InModuleSpace() != test.in {
			t.Errorf("classify(%v): in module space want(%v) have(%v)",
				test.a, test.in, a.InModuleSpace())
		}
		if test.a <= n+1 && a.Index(n) != test.a {
			t.Errorf("index: want(%v) have(%v)", test.a, a.Index(n))
		}
	}
}

func TestUnsupportedBaseline(t *testing.T) {
	c := testConfig(t)
	c.Baseline = "advantage"

	_, err := New(c)
	if !errors.Is(err, ErrUnsupportedBaseline) {
		t.Errorf("want ErrUnsupportedBaseline, have %v", err)
	}
}

func TestPrepareTwice(t *testing.T) {
	cur := newCurriculum(1)
	m := newTestModel(t, testConfig(t), cur)

	err := m.Prepare(testWorld{}, cur)
	if !errors.Is(err, ErrAlreadyPrepared) {
		t.Errorf("want ErrAlreadyPrepared, have %v", err)
	}
}

func TestActBeforeInit(t *testing.T) {
	m := newTestModel(t, testConfig(t), newCurriculum(1))

	_, _, err := m.Act([]environment.State{vec{1, 0, 0}})
	if !errors.Is(err, ErrNotInitialised) {
		t.Errorf("want ErrNotInitialised, have %v", err)
	}
}

func TestExperienceBeforePrepare(t *testing.T) {
	m, err := New(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}

	err = m.Experience(timestep.Episode{transition(0, 1, 0, 0, 1)})
	if !errors.Is(err, ErrNotPrepared) {
		t.Errorf("want ErrNotPrepared, have %v", err)
	}
}

func TestTerminateBias(t *testing.T) {
	c := testConfig(t)
	m := newTestModel(t, c, newCurriculum(1))

	for subtask := 0; subtask < 3; subtask++ {
		key, ok := m.reg.actors[subtask].net.OutputBias()
		if !ok {
			t.Fatalf("actor %v has no output bias", subtask)
		}
		bias, err := m.Store().Data(key)
		if err != nil {
			t.Fatal(err)
		}
		if len(bias) != testActions+1 {
			t.Fatalf("actor %v: want(%v) outputs have(%v)", subtask,
				testActions+1, len(bias))
		}

		for i, b := range bias[:len(bias)-1] {
			if b != 0 {
				t.Errorf("actor %v: bias %v: want(0) have(%v)", subtask, i, b)
			}
		}
		if last := bias[len(bias)-1]; last != -c.TerminateBias {
			t.Errorf("actor %v: terminate bias: want(%v) have(%v)", subtask,
				-c.TerminateBias, last)
		}
	}
}

func TestSharing(t *testing.T) {
	tests := []struct {
		baseline string

		// Whether the critics of each pair are the same
		acrossTasks, acrossModules bool
	}{
		{BaselineCommon, true, true},
		{BaselineTask, false, true},
		{BaselineState, false, false},
	}

	for _, test := range tests {
		c := testConfig(t)
		c.Baseline = test.baseline
		m := newTestModel(t, c, newCurriculum(2))

		p01, _ := m.reg.pair(0, 1)
		p11, _ := m.reg.pair(1, 1)
		p02, _ := m.reg.pair(0, 2)

		if p01.actor != p11.actor {
			t.Errorf("%v: actor of subtask 1 not shared across tasks",
				test.baseline)
		}
		if p01.actor == p02.actor {
			t.Errorf("%v: actors of different subtasks are shared",
				test.baseline)
		}
		if (p01.critic == p11.critic) != test.acrossTasks {
			t.Errorf("%v: critic shared across tasks: want(%v)",
				test.baseline, test.acrossTasks)
		}
		if (p01.critic == p02.critic) != test.acrossModules {
			t.Errorf("%v: critic shared across modules: want(%v)",
				test.baseline, test.acrossModules)
		}
	}
}

func TestExperienceFiltersSwitches(t *testing.T) {
	cur := newCurriculum(1)
	m := newTestModel(t, testConfig(t), cur)

	ep := timestep.Episode{
		transition(0, 1, 0, testActions-1, 1),
		transition(0, 1, 0, testActions, 0),
		transition(0, 1, 0, testActions+1, 1),
	}
	if err := m.Experience(ep); err != nil {
		t.Fatal(err)
	}

	if m.Buffered() != 2 {
		t.Fatalf("buffered: want(2) have(%v)", m.Buffered())
	}
	want := []float64{1.81, 0.9}
	for i, r := range want {
		tr := m.experiences.At(i)
		if math.Abs(tr.R-r) > 1e-9 {
			t.Errorf("return %v: want(%v) have(%v)", i, r, tr.R)
		}
		if tr.A != ep[i].A {
			t.Errorf("transition %v out of order", i)
		}
	}

	got := cur.controllers[0].episodes
	if len(got) != 1 || len(got[0]) != 3 || got[0][2].R != 1 {
		t.Errorf("meta-controller should receive the unmodified episode, "+
			"have %v", got)
	}
}

func TestTrainNotReady(t *testing.T) {
	m := newTestModel(t, testConfig(t), newCurriculum(1))

	ep := timestep.Episode{
		transition(0, 1, 0, 0, 0),
		transition(0, 1, 0, 1, 0),
		transition(0, 1, 0, 0, 1),
	}
	if err := m.Experience(ep); err != nil {
		t.Fatal(err)
	}

	_, ok, err := m.Train(nil, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("train should not update with insufficient experience")
	}
	if m.Buffered() != 3 {
		t.Errorf("buffered: want(3) have(%v)", m.Buffered())
	}
	if m.Steps() != 1 {
		t.Errorf("steps: want(1) have(%v)", m.Steps())
	}
}

func TestTrainDrainsFilteredBuffer(t *testing.T) {
	cur := newCurriculum(2)
	cur.controllers[0].err = 0.5
	cur.controllers[1].err = 0.25
	m := newTestModel(t, testConfig(t), cur)

	var ep timestep.Episode
	for i := 0; i < 4; i++ {
		ep = append(ep, transition(0, 1, 0, i%testActions, 1))
	}
	ep = append(ep, transition(0, 2, 0, 0, 1), transition(0, 2, 0, 1, 1))
	if err := m.Experience(ep); err != nil {
		t.Fatal(err)
	}

	actor2 := snapshot(t, m.Store(), m.reg.ActorKeys(2))
	actor1 := snapshot(t, m.Store(), m.reg.ActorKeys(1))

	subtask := 1
	errs, ok, err := m.Train(&subtask, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("train should update with sufficient experience")
	}

	if m.Buffered() != 0 {
		t.Errorf("buffered: want(0) have(%v)", m.Buffered())
	}
	if m.Steps() != 2 {
		t.Errorf("steps: want(2) have(%v)", m.Steps())
	}
	if math.Abs(errs.Meta-0.375) > 1e-9 {
		t.Errorf("meta error: want(0.375) have(%v)", errs.Meta)
	}
	for i, c := range cur.controllers {
		if c.trained != 1 {
			t.Errorf("controller %v: trained want(1) have(%v)", i, c.trained)
		}
	}

	if !changed(t, m.Store(), actor1) {
		t.Error("actor of trained subtask was not updated")
	}
	if changed(t, m.Store(), actor2) {
		t.Error("actor of filtered subtask was updated")
	}
}

func TestTrainActorOnly(t *testing.T) {
	m := newTestModel(t, testConfig(t), newCurriculum(1))

	var ep timestep.Episode
	for i := 0; i < 4; i++ {
		ep = append(ep, transition(0, 1, 0, i%testActions, 1))
	}
	if err := m.Experience(ep); err != nil {
		t.Fatal(err)
	}

	actor := snapshot(t, m.Store(), m.reg.ActorKeys(1))
	keys, err := m.CriticKeys(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	critic := snapshot(t, m.Store(), keys)

	if _, ok, err := m.Train(nil, true, false); err != nil || !ok {
		t.Fatalf("train: ok(%v) err(%v)", ok, err)
	}

	if !changed(t, m.Store(), actor) {
		t.Error("actor was not updated")
	}
	if changed(t, m.Store(), critic) {
		t.Error("critic was updated")
	}
}

func TestTrainEmbeddingRows(t *testing.T) {
	c := testConfig(t)
	c.UseArgs = true
	m := newTestModel(t, c, newCurriculum(1))

	ep := timestep.Episode{
		transition(0, 1, 0, 0, 1),
		transition(0, 1, 2, 1, 1),
		transition(0, 1, 0, 1, 1),
		transition(0, 1, 2, 0, 1),
	}
	if err := m.Experience(ep); err != nil {
		t.Fatal(err)
	}

	key := m.reg.embed.Key()
	before := snapshot(t, m.Store(), []network.Key{key})[key]

	if _, ok, err := m.Train(nil, true, true); err != nil || !ok {
		t.Fatalf("train: ok(%v) err(%v)", ok, err)
	}

	after, err := m.Store().Data(key)
	if err != nil {
		t.Fatal(err)
	}
	dim := c.Embed
	rowChanged := func(row int) bool {
		for j := row * dim; j < (row+1)*dim; j++ {
			if before[j] != after[j] {
				return true
			}
		}
		return false
	}

	if rowChanged(1) {
		t.Error("embedding of unused argument was updated")
	}
	if !rowChanged(0) || !rowChanged(2) {
		t.Error("embeddings of used arguments were not updated")
	}
}

func TestActCutoffSwitches(t *testing.T) {
	c := testConfig(t)
	c.MaxSubtaskTimesteps = 1
	cur := newCurriculum(1)
	cur.controllers[0].next = meta.Choice{Subtask: 2, Arg: 1}
	m := newTestModel(t, c, cur)

	states := []environment.State{vec{1, 0, 0}}
	if err := m.Init(states, []int{0}); err != nil {
		t.Fatal(err)
	}
	if s := m.MetaStates()[0].Subtask; s != 1 {
		t.Fatalf("initial subtask: want(1) have(%v)", s)
	}

	actions, terminate, err := m.Act(states)
	if err != nil {
		t.Fatal(err)
	}
	if terminate[0] {
		t.Error("rollout should not terminate")
	}
	if a := Classify(actions[0], testActions); a.Kind != Switch {
		t.Errorf("action: want(Switch) have(%v)", a)
	}

	ms := m.MetaStates()[0]
	if ms.Subtask != 2 || ms.Arg != 1 {
		t.Errorf("meta-state: want subtask 2 arg 1, have %v", ms)
	}
}

func TestActSwitchToZeroTerminates(t *testing.T) {
	c := testConfig(t)
	c.MaxSubtaskTimesteps = 1
	cur := newCurriculum(1)
	cur.controllers[0].next = meta.Choice{}
	m := newTestModel(t, c, cur)

	states := []environment.State{vec{1, 0, 0}, vec{0, 0, 1}}
	if err := m.Init(states, []int{0, 0}); err != nil {
		t.Fatal(err)
	}

	actions, terminate, err := m.Act(states)
	if err != nil {
		t.Fatal(err)
	}
	for i := range states {
		if !terminate[i] {
			t.Errorf("rollout %v should terminate", i)
		}
		if actions[i] != testActions {
			t.Errorf("rollout %v: action want(%v) have(%v)", i, testActions,
				actions[i])
		}
	}
}

func TestActSingleRollout(t *testing.T) {
	m := newTestModel(t, testConfig(t), newCurriculum(1))

	states := []environment.State{vec{0, 1, 0}}
	if err := m.Init(states, []int{0}); err != nil {
		t.Fatal(err)
	}

	for step := 0; step < 5; step++ {
		actions, terminate, err := m.Act(states)
		if err != nil {
			t.Fatal(err)
		}
		if len(actions) != 1 || len(terminate) != 1 {
			t.Fatalf("want 1 action, have %v", len(actions))
		}
		if terminate[0] {
			t.Error("rollout should not terminate")
		}
		if actions[0] < 0 || actions[0] > testActions {
			t.Errorf("action %v outside of module action space", actions[0])
		}
	}
}

func TestCheckpoint(t *testing.T) {
	m := newTestModel(t, testConfig(t), newCurriculum(1))
	keys := m.Store().Keys()
	saved := snapshot(t, m.Store(), keys)

	if err := m.Save(); err != nil {
		t.Fatal(err)
	}

	for _, k := range keys {
		data, _ := m.Store().Data(k)
		for i := range data {
			data[i] += 1
		}
	}
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	if changed(t, m.Store(), saved) {
		t.Error("parameters not restored from checkpoint")
	}
}

func TestConfigJSON(t *testing.T) {
	data := []byte(`{
		"Type": "ModularAC",
		"Config": {"baseline": "task", "hidden": 16, "use_args": true}
	}`)

	var tc agent.TypedConfig
	if err := json.Unmarshal(data, &tc); err != nil {
		t.Fatal(err)
	}
	if tc.Type != agent.ModularActorCritic {
		t.Errorf("type: want(%v) have(%v)", agent.ModularActorCritic, tc.Type)
	}

	c, ok := tc.Config.(Config)
	if !ok {
		t.Fatalf("config: want Config have %T", tc.Config)
	}
	if c.Baseline != BaselineTask || c.Hidden != 16 || !c.UseArgs {
		t.Errorf("fields not decoded: %+v", c)
	}
	if c.Discount != DefaultDiscount || c.Embed != DefaultEmbed {
		t.Errorf("defaults not kept: %+v", c)
	}
	if c.Solver == nil || c.Solver.Type != solver.RMSProp {
		t.Errorf("solver: want RMSProp have %v", c.Solver)
	}
}

func TestConstructionDeterministic(t *testing.T) {
	c := testConfig(t)
	c.UseArgs = true
	first := newTestModel(t, c, newCurriculum(2))
	second := newTestModel(t, c, newCurriculum(2))

	keys := first.Store().Keys()
	if len(keys) != second.Store().Len() {
		t.Fatalf("parameters: want(%v) have(%v)", len(keys),
			second.Store().Len())
	}
	for _, k := range keys {
		a, _ := first.Store().Data(k)
		b, err := second.Store().Data(k)
		if err != nil {
			t.Fatal(err)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("%v[%v]: %v != %v for the same seed", k, i, a[i],
					b[i])
			}
		}
	}

	c.Seed = 2
	other := newTestModel(t, c, newCurriculum(2))
	if !changed(t, other.Store(), snapshot(t, first.Store(), keys)) {
		t.Error("different seeds constructed identical parameters")
	}
}

func TestInitFailureKeepsBatch(t *testing.T) {
	cur := newCurriculum(1)
	m := newTestModel(t, testConfig(t), cur)

	states := []environment.State{vec{1, 0, 0}, vec{0, 1, 0}}
	if err := m.Init(states, []int{0, 0}); err != nil {
		t.Fatal(err)
	}

	if err := m.Init(states[:1], []int{3}); err == nil {
		t.Error("expected error for task out of range")
	}
	cur.controllers[0].first = meta.Choice{Subtask: 7}
	if err := m.Init(states[:1], []int{0}); err == nil {
		t.Error("expected error for subtask out of range")
	}

	if n := len(m.MetaStates()); n != 2 {
		t.Errorf("rollouts: want(2) have(%v)", n)
	}
	if m.nextSeed != 2 {
		t.Errorf("next seed: want(2) have(%v)", m.nextSeed)
	}
	if _, _, err := m.Act(states); err != nil {
		t.Errorf("act after failed init: %v", err)
	}
}

func TestTrainRescalesGradient(t *testing.T) {
	const (
		stepSize = 0.5
		ret      = 5.0
	)
	c := testConfig(t)
	c.Baseline = BaselineCommon
	s, err := solver.NewVanilla(stepSize, 1, -1)
	if err != nil {
		t.Fatal(err)
	}
	c.Solver = s
	m := newTestModel(t, c, newCurriculum(1))

	for i := 0; i < c.UpdateSize; i++ {
		m.experiences.Add(transition(0, 1, 0, i%testActions, ret))
	}
	actor := snapshot(t, m.Store(), m.reg.ActorKeys(1))

	if _, ok, err := m.Train(nil, false, true); err != nil {
		t.Fatal(err)
	} else if !ok {
		t.Fatal("train should update with sufficient experience")
	}

	// The critic is a scalar b = 0 with loss Σ(r - b)², so the averaged
	// gradient is -2r and its squared norm 4r²
	g := -2 * ret
	want := -stepSize * g * math.Min(1, 1/(g*g))

	keys, err := m.CriticKeys(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := m.Store().Data(keys[0])
	if math.Abs(data[0]-want) > 1e-12 {
		t.Errorf("critic: want(%v) have(%v)", want, data[0])
	}
	if changed(t, m.Store(), actor) {
		t.Error("actor updated with actor updates disabled")
	}
}
