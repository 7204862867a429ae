package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samuelfneumann/modularac/agent"
	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/experiment/checkpointer"
	"github.com/samuelfneumann/modularac/experiment/tracker"
	"github.com/samuelfneumann/modularac/timestep"
	"github.com/samuelfneumann/progressbar"
)

// Batched is an Experiment that runs a batch of episodes in parallel
// rollouts, passes each completed episode to the model, and then polls
// the model for an update.
//
// Tasks are assigned to rollouts round robin over every task of the
// curriculum.
type Batched struct {
	env    Environment
	model  agent.Model
	config Config
	nTasks int

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer

	id       string
	logger   *slog.Logger
	updates  int
	episodes int
}

// NewBatched creates and returns a new batched experiment of model in
// env over nTasks tasks. The model must already be prepared.
func NewBatched(env Environment, model agent.Model, nTasks int, c Config,
	t ...tracker.Tracker) (*Batched, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newbatched: %v", err)
	}
	if nTasks <= 0 {
		return nil, fmt.Errorf("newbatched: at least one task is required")
	}

	return &Batched{
		env:      env,
		model:    model,
		config:   c,
		nTasks:   nTasks,
		trackers: t,
		id:       uuid.New().String(),
		logger:   slog.Default(),
	}, nil
}

// WithLogger sets the logger of the experiment and returns the
// experiment
func (b *Batched) WithLogger(l *slog.Logger) *Batched {
	b.logger = l
	return b
}

// ID returns the unique id of the run
func (b *Batched) ID() string {
	return b.id
}

// Updates returns the number of model updates performed so far
func (b *Batched) Updates() int {
	return b.updates
}

// Register registers a tracker.Tracker with the experiment so that data
// generated during the experiment can be tracked and saved
func (b *Batched) Register(t tracker.Tracker) {
	b.trackers = append(b.trackers, t)
}

// RegisterCheckpointer registers a checkpointer.Checkpointer which is
// called after each update
func (b *Batched) RegisterCheckpointer(c checkpointer.Checkpointer) {
	b.checkpointers = append(b.checkpointers, c)
}

// RunBatch runs a single batch of episodes, records them with the model
// and the trackers, and polls the model for an update.
func (b *Batched) RunBatch() (bool, error) {
	episodes, err := b.rollout()
	if err != nil {
		return false, fmt.Errorf("runbatch: %v", err)
	}

	for _, ep := range episodes {
		if len(ep) == 0 {
			continue
		}
		if err := b.model.Experience(ep); err != nil {
			return false, fmt.Errorf("runbatch: %v", err)
		}
		b.track(ep)
	}
	b.episodes += len(episodes)

	errs, ok, err := b.model.Train(nil, true, true)
	if err != nil {
		return false, fmt.Errorf("runbatch: %v", err)
	}
	if !ok {
		return false, nil
	}

	b.updates++
	b.logger.Info(
		"update",
		"run", b.id,
		"update", b.updates,
		"episodes", b.episodes,
		"actor", errs.Actor,
		"critic", errs.Critic,
		"meta", errs.Meta,
	)

	for _, c := range b.checkpointers {
		if err := c.Checkpoint(b.updates); err != nil {
			return true, fmt.Errorf("runbatch: could not checkpoint: %v", err)
		}
	}
	return true, nil
}

// rollout runs one episode in each rollout until every rollout has
// terminated or MaxEpisodeSteps steps have been taken. Primitive actions
// are taken in the environment; any other action leaves the state
// unchanged and gives no reward.
func (b *Batched) rollout() ([]timestep.Episode, error) {
	n := b.config.Rollouts
	nActions := b.env.NActions()

	states := make([]environment.State, n)
	tasks := make([]int, n)
	for i := range states {
		tasks[i] = (b.episodes + i) % b.nTasks

		var err error
		if states[i], err = b.env.Start(tasks[i]); err != nil {
			return nil, fmt.Errorf("rollout: %v", err)
		}
	}
	if err := b.model.Init(states, tasks); err != nil {
		return nil, fmt.Errorf("rollout: %v", err)
	}

	episodes := make([]timestep.Episode, n)
	done := make([]bool, n)
	active := n
	for step := 0; active > 0 && step < b.config.MaxEpisodeSteps; step++ {
		before := b.model.MetaStates()
		actions, terminate, err := b.model.Act(states)
		if err != nil {
			return nil, fmt.Errorf("rollout: %v", err)
		}
		after := b.model.MetaStates()

		for i := range states {
			if done[i] {
				continue
			}

			next, reward, last := states[i], 0.0, terminate[i]
			if !terminate[i] && actions[i] < nActions {
				t, err := b.env.Step(states[i], actions[i])
				if err != nil {
					return nil, fmt.Errorf("rollout: %v", err)
				}
				next, reward, last = t.State, t.Reward, t.Last()
			}

			// A rollout which starts without a subtask has no module to
			// attribute its action to
			if before[i].Subtask != 0 {
				episodes[i] = append(episodes[i], timestep.Transition{
					S1: states[i],
					M1: before[i],
					A:  actions[i],
					S2: next,
					M2: after[i],
					R:  reward,
				})
			}

			states[i] = next
			if last {
				done[i] = true
				active--
			}
		}
	}

	return episodes, nil
}

// Run runs batches of episodes until MaxUpdates updates have been
// performed or ctx is cancelled
func (b *Batched) Run(ctx context.Context) error {
	if b.config.Progress {
		bar := progressbar.New(50, b.config.MaxUpdates,
			time.Second, true)
		bar.Display()
		defer bar.Close()

		b.RegisterCheckpointer(progress{bar})
	}

	for b.updates < b.config.MaxUpdates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := b.RunBatch(); err != nil {
			return fmt.Errorf("run: %v", err)
		}
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (b *Batched) Save() error {
	for _, t := range b.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// track tracks a completed episode by caching its data in each tracker
func (b *Batched) track(ep timestep.Episode) {
	for _, t := range b.trackers {
		t.Track(ep)
	}
}

// progress increments a progress bar on each update
type progress struct {
	bar *progressbar.ProgressBar
}

func (p progress) Checkpoint(int) error {
	p.bar.Increment()
	return nil
}

var _ Experiment = (*Batched)(nil)
