// Package modularac implements a modular actor-critic agent. The agent
// has one policy network per subtask, shared across every task that
// uses the subtask, and one or more critics according to a baseline
// mode. A meta-controller per task chooses which subtask to pursue.
//
// All parameters are owned by a single network.Store. Gradients from
// every (task, subtask) pair in a batch of experience are accumulated
// and applied in one synchronized update.
package modularac

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/samuelfneumann/modularac/agent"
	"github.com/samuelfneumann/modularac/buffer"
	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/gradient"
	"github.com/samuelfneumann/modularac/meta"
	"github.com/samuelfneumann/modularac/network"
	"github.com/samuelfneumann/modularac/timestep"
	"golang.org/x/exp/rand"
)

// ModularAC implements a modular actor-critic agent
type ModularAC struct {
	config Config
	id     string
	logger *slog.Logger

	// mu serializes access to the parameters and runtime state
	mu sync.Mutex

	world    environment.World
	metas    []meta.Controller
	nModules int
	nArgs    int

	reg         *registry
	accumulator *gradient.Accumulator
	experiences *buffer.Experience
	steps       int

	// Per-rollout runtime state
	subtask  []int
	arg      []int
	task     []int
	elapsed  []int
	randoms  []rand.Source
	nextSeed uint64

	prepared    bool
	initialised bool
}

// New returns a new, unprepared ModularAC
func New(c Config) (*ModularAC, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return &ModularAC{
		config:      c,
		id:          uuid.New().String(),
		logger:      slog.Default(),
		experiences: buffer.New(c.UpdateSize),
		steps:       1,
	}, nil
}

// WithLogger sets the logger of the model and returns the model
func (m *ModularAC) WithLogger(l *slog.Logger) *ModularAC {
	m.logger = l
	return m
}

// Prepare constructs every network and trainer of the model for the
// world and curriculum, and creates one meta-controller per task.
// Prepare may only be called once.
func (m *ModularAC) Prepare(world environment.World, c Curriculum) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.prepared {
		return fmt.Errorf("prepare: %w", ErrAlreadyPrepared)
	}

	nTasks, nModules := c.NumTasks(), c.NumSubtasks()
	if nTasks <= 0 || nModules <= 0 {
		return fmt.Errorf("prepare: curriculum must have at least one "+
			"task and subtask, got (%v, %v)", nTasks, nModules)
	}
	if m.config.UseArgs && c.NumArgs() <= 0 {
		return fmt.Errorf("prepare: arguments enabled but curriculum has "+
			"no arguments")
	}

	reg, err := newRegistry(m.config, world.NFeatures(), world.NActions(),
		nTasks, nModules, c.NumArgs())
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}

	m.metas = make([]meta.Controller, nTasks)
	for t := range m.metas {
		m.metas[t] = c.NewController(t)
	}

	m.world = world
	m.nModules = nModules
	m.nArgs = c.NumArgs()
	m.reg = reg
	m.accumulator = gradient.New(reg.store)
	m.prepared = true

	m.logger.Info(
		"prepared modular actor-critic",
		"model", m.id,
		"tasks", nTasks,
		"subtasks", nModules,
		"actions", world.NActions(),
		"features", world.NFeatures(),
		"baseline", m.config.Baseline,
		"parameters", reg.store.Len(),
	)
	return nil
}

// Init resets the per-rollout state of the model for a new batch of
// rollouts. Rollout i starts in states[i] and pursues task tasks[i]. The
// initial subtask of each rollout is chosen by its task's
// meta-controller, and each rollout is given a new random stream seeded
// from a global counter.
func (m *ModularAC) Init(states []environment.State, tasks []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prepared {
		return fmt.Errorf("init: %w", ErrNotPrepared)
	}
	if len(states) != len(tasks) {
		return fmt.Errorf("init: got %v states but %v tasks", len(states),
			len(tasks))
	}

	// Nothing is committed until every rollout is validated
	n := len(states)
	subtask := make([]int, n)
	arg := make([]int, n)
	for i := range states {
		if tasks[i] < 0 || tasks[i] >= len(m.metas) {
			return fmt.Errorf("init: task %v out of range [0, %v)", tasks[i],
				len(m.metas))
		}

		choices := m.metas[tasks[i]].Act(states[i:i+1], true)
		if len(choices) != 1 {
			return fmt.Errorf("init: meta-controller returned %v choices "+
				"for 1 state", len(choices))
		}
		if choices[0].Subtask < 0 || choices[0].Subtask >= m.nModules {
			return fmt.Errorf("init: meta-controller chose subtask %v out "+
				"of range [0, %v)", choices[0].Subtask, m.nModules)
		}
		subtask[i] = choices[0].Subtask
		arg[i] = choices[0].Arg
	}

	if err := m.reg.buildPolicies(n); err != nil {
		return fmt.Errorf("init: %v", err)
	}

	m.subtask = subtask
	m.arg = arg
	m.task = append([]int(nil), tasks...)
	m.elapsed = make([]int, n)
	m.randoms = make([]rand.Source, n)
	for i := range m.randoms {
		m.randoms[i] = rand.NewSource(m.nextSeed)
		m.nextSeed++
	}
	m.initialised = true
	return nil
}

// MetaStates returns the current meta-state of each rollout
func (m *ModularAC) MetaStates() []timestep.MetaState {
	out := make([]timestep.MetaState, len(m.subtask))
	for i := range out {
		out[i] = timestep.MetaState{
			Subtask: m.subtask[i],
			Arg:     m.arg[i],
			Task:    m.task[i],
		}
	}
	return out
}

// Steps returns the global step counter, which starts at 1 and is
// incremented after each update
func (m *ModularAC) Steps() int {
	return m.steps
}

// Buffered returns the number of transitions awaiting an update
func (m *ModularAC) Buffered() int {
	return m.experiences.Len()
}

// Store returns the Store holding every parameter of the model
func (m *ModularAC) Store() *network.Store {
	if m.reg == nil {
		return nil
	}
	return m.reg.store
}

// ActorKeys returns the keys of the parameters of the actor of a
// subtask
func (m *ModularAC) ActorKeys(subtask int) ([]network.Key, error) {
	if !m.prepared {
		return nil, fmt.Errorf("actorkeys: %w", ErrNotPrepared)
	}
	if subtask < 0 || subtask >= m.nModules {
		return nil, fmt.Errorf("actorkeys: subtask %v out of range", subtask)
	}
	return m.reg.ActorKeys(subtask), nil
}

// CriticKeys returns the keys of the parameters of the critic of a
// (task, subtask)
func (m *ModularAC) CriticKeys(task, subtask int) ([]network.Key, error) {
	if !m.prepared {
		return nil, fmt.Errorf("critickeys: %w", ErrNotPrepared)
	}
	if _, err := m.reg.pair(task, subtask); err != nil {
		return nil, fmt.Errorf("critickeys: %v", err)
	}
	return m.reg.CriticKeys(task, subtask), nil
}

// ID returns the unique id of the model, used to attribute logs
func (m *ModularAC) ID() string {
	return m.id
}

// Config returns the configuration of the model
func (m *ModularAC) Config() Config {
	return m.config
}

var _ agent.Model = (*ModularAC)(nil)
