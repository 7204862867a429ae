package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/samuelfneumann/modularac/agent/modularac"
	"github.com/samuelfneumann/modularac/config"
	"github.com/samuelfneumann/modularac/environment/gridworld"
	"github.com/samuelfneumann/modularac/experiment"
	"github.com/samuelfneumann/modularac/experiment/checkpointer"
	"github.com/samuelfneumann/modularac/experiment/tracker"
	"github.com/samuelfneumann/modularac/experiment/trackers"
)

func main() {
	path := flag.String("config", "", "path to a YAML experiment config")
	flag.Parse()

	if err := run(*path); err != nil {
		fmt.Fprintf(os.Stderr, "modularac: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	c, err := config.Load(path)
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %v", c.LogLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	snapshot, err := c.Snapshot()
	if err != nil {
		return err
	}
	logger.Info("resolved config", "path", snapshot)

	// Create the world and its curriculum
	world, err := c.NewWorld()
	if err != nil {
		return err
	}
	curriculum := gridworld.NewCurriculum(world)
	logger.Info("created world", "world", world.String())

	// Create the model
	tc, err := c.ModelConfig()
	if err != nil {
		return err
	}
	m, err := tc.CreateModel()
	if err != nil {
		return err
	}
	model := m.(*modularac.ModularAC).WithLogger(logger)

	if err := model.Prepare(world, curriculum); err != nil {
		return err
	}
	if c.Resume {
		if err := model.Load(); err != nil {
			return err
		}
	}

	// Experiment
	e, err := experiment.NewBatched(world, model, curriculum.NumTasks(),
		c.ExperimentConfig())
	if err != nil {
		return err
	}
	e.WithLogger(logger)

	returns := trackers.NewReturn(filepath.Join(c.ExperimentDir,
		fmt.Sprintf("returns-%v.bin", e.ID())))
	e.Register(returns)
	for task := 0; task < curriculum.NumTasks(); task++ {
		filename := filepath.Join(c.ExperimentDir,
			fmt.Sprintf("lengths-%v-task%d.bin", e.ID(), task))
		e.Register(tracker.Register(trackers.NewEpisodeLength(filename),
			task))
	}

	if c.CheckpointEvery > 0 {
		cp, err := checkpointer.NewNStep(c.CheckpointEvery, model)
		if err != nil {
			return err
		}
		e.RegisterCheckpointer(cp)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer cancel()

	runErr := e.Run(ctx)
	if err := e.Save(); err != nil {
		return err
	}
	if err := model.Save(); err != nil {
		return err
	}
	if runErr != nil && runErr != context.Canceled {
		return runErr
	}

	logger.Info(
		"finished",
		"run", e.ID(),
		"updates", e.Updates(),
		"meanReturn", returns.Mean(100),
	)
	return nil
}
