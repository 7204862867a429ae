// Package experiment implements functionality for running an experiment
package experiment

import (
	"context"
	"fmt"

	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/experiment/tracker"
	"github.com/samuelfneumann/modularac/timestep"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments pass each completed episode to Trackers, which cache
// data in RAM to be later saved to disk. The Save() function will then
// take all cached data and save it to disk. This is usually performed
// after an experiment has been run. The Run() method will run batches
// of episodes until the maximum number of updates is reached or the
// context is cancelled. The RunBatch() function will run a single
// batch of episodes.
type Experiment interface {
	Run(ctx context.Context) error
	RunBatch() (bool, error) // Returns whether the model was updated

	// Save all tracked data to disk
	Save() error

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment. Useful if you want to track data only after a
	// specified event.
	Register(t tracker.Tracker)
}

// Environment is a World which can be simulated. Environments are
// stateless: every State holds all of its dynamic information, so a
// single Environment can simulate any number of rollouts.
type Environment interface {
	environment.World

	// Start returns the starting state of a task
	Start(task int) (environment.State, error)

	// Step takes a primitive action in a state
	Step(s environment.State, action int) (timestep.TimeStep, error)
}

// Config represents a configuration of an experiment.
type Config struct {
	// Rollouts is the number of episodes run in parallel in each batch
	Rollouts int

	// MaxUpdates is the number of model updates after which the
	// experiment ends
	MaxUpdates int

	// MaxEpisodeSteps truncates episodes which have not finished
	MaxEpisodeSteps int

	// Progress enables displaying a progress bar
	Progress bool
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	if c.Rollouts <= 0 {
		return fmt.Errorf("validate: rollouts must be positive, got %v",
			c.Rollouts)
	}
	if c.MaxUpdates <= 0 {
		return fmt.Errorf("validate: max updates must be positive, got %v",
			c.MaxUpdates)
	}
	if c.MaxEpisodeSteps <= 0 {
		return fmt.Errorf("validate: max episode steps must be positive, "+
			"got %v", c.MaxEpisodeSteps)
	}
	return nil
}
