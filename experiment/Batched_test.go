package experiment

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/samuelfneumann/modularac/agent/modularac"
	"github.com/samuelfneumann/modularac/environment/gridworld"
	"github.com/samuelfneumann/modularac/experiment/checkpointer"
	"github.com/samuelfneumann/modularac/experiment/trackers"
)

func newTestRun(t *testing.T, c Config) (*Batched, *modularac.ModularAC,
	*trackers.EpisodeLength) {
	world, err := gridworld.New(
		3, 3,
		gridworld.Point{X: 0, Y: 0},
		[]gridworld.Point{{X: 2, Y: 0}, {X: 0, Y: 2}},
		[][]int{{0}, {1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	curriculum := gridworld.NewCurriculum(world)

	mc := modularac.DefaultConfig()
	mc.UseArgs = true
	mc.Hidden = 8
	mc.Embed = 4
	mc.UpdateSize = 8
	mc.BatchSize = 4
	mc.MaxSubtaskTimesteps = 5
	mc.ExperimentDir = t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	model, err := modularac.New(mc)
	if err != nil {
		t.Fatal(err)
	}
	model.WithLogger(logger)
	if err := model.Prepare(world, curriculum); err != nil {
		t.Fatal(err)
	}

	lengths := trackers.NewEpisodeLength("")
	b, err := NewBatched(world, model, curriculum.NumTasks(), c, lengths)
	if err != nil {
		t.Fatal(err)
	}
	b.WithLogger(logger)

	return b, model, lengths
}

func TestRun(t *testing.T) {
	c := Config{Rollouts: 2, MaxUpdates: 2, MaxEpisodeSteps: 10}
	b, model, lengths := newTestRun(t, c)

	saves := &countSaves{}
	cp, err := checkpointer.NewNStep(1, saves)
	if err != nil {
		t.Fatal(err)
	}
	b.RegisterCheckpointer(cp)

	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if b.Updates() != 2 {
		t.Errorf("updates: want(2) have(%v)", b.Updates())
	}
	if model.Steps() != 3 {
		t.Errorf("model steps: want(3) have(%v)", model.Steps())
	}
	if saves.n != 2 {
		t.Errorf("checkpoints: want(2) have(%v)", saves.n)
	}

	data := lengths.Data()
	if len(data) == 0 {
		t.Fatal("no episodes tracked")
	}
	for i, l := range data {
		if l <= 0 || l > float64(c.MaxEpisodeSteps) {
			t.Errorf("episode %v: length %v outside (0, %v]", i, l,
				c.MaxEpisodeSteps)
		}
	}
}

func TestRunWithProgress(t *testing.T) {
	c := Config{Rollouts: 2, MaxUpdates: 1, MaxEpisodeSteps: 10,
		Progress: true}
	b, model, _ := newTestRun(t, c)

	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if b.Updates() != 1 {
		t.Errorf("updates: want(1) have(%v)", b.Updates())
	}
	if model.Steps() != 2 {
		t.Errorf("model steps: want(2) have(%v)", model.Steps())
	}
}

func TestRunCancelled(t *testing.T) {
	c := Config{Rollouts: 1, MaxUpdates: 1, MaxEpisodeSteps: 10}
	b, _, _ := newTestRun(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Run(ctx); err != context.Canceled {
		t.Errorf("want context.Canceled, have %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []Config{
		{Rollouts: 0, MaxUpdates: 1, MaxEpisodeSteps: 1},
		{Rollouts: 1, MaxUpdates: 0, MaxEpisodeSteps: 1},
		{Rollouts: 1, MaxUpdates: 1, MaxEpisodeSteps: 0},
	}
	for i, c := range tests {
		if err := c.Validate(); err == nil {
			t.Errorf("config %v: expected error", i)
		}
	}
}

type countSaves struct {
	n int
}

func (c *countSaves) Save() error {
	c.n++
	return nil
}
