// Package agent defines the interface of a modular agent and its
// configurations
package agent

import (
	"fmt"

	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/meta"
	"github.com/samuelfneumann/modularac/timestep"
)

// Curriculum describes the tasks, subtasks, and subtask arguments that a
// modular agent is trained on, and creates the meta-controller of each
// task.
type Curriculum interface {
	// NumTasks returns the number of tasks, with ids 0, 1, ..., n-1
	NumTasks() int

	// NumSubtasks returns the number of subtasks, with ids
	// 0, 1, ..., n-1. Subtask 0 is reserved for "no subtask".
	NumSubtasks() int

	// NumArgs returns the number of distinct subtask arguments
	NumArgs() int

	// NewController returns a new meta-controller for the given task
	NewController(task int) meta.Controller
}

// Errors packages together the errors reported by a training step
type Errors struct {
	Actor  float64
	Critic float64
	Meta   float64
}

func (e Errors) String() string {
	return fmt.Sprintf("Actor: %.5f  |  Critic: %.5f  |  Meta: %.5f",
		e.Actor, e.Critic, e.Meta)
}

// Model is a hierarchical agent which acts in a batch of parallel
// rollouts. A Model chooses subtasks with a meta-controller per task and
// primitive actions with a policy per subtask.
//
// The lifecycle of a Model is Prepare once, then for each batch of
// rollouts Init followed by repeated calls to Act. Completed episodes are
// passed to Experience, and Train is polled to update the Model.
type Model interface {
	// Prepare constructs the Model for a world and curriculum
	Prepare(environment.World, Curriculum) error

	// Init resets the Model for a new batch of rollouts, where rollout
	// i begins in states[i] and pursues task tasks[i]
	Init(states []environment.State, tasks []int) error

	// Act returns an action for each rollout and whether the rollout
	// has terminated
	Act(states []environment.State) ([]int, []bool, error)

	// MetaStates returns the current meta-state of each rollout
	MetaStates() []timestep.MetaState

	// Experience records a completed episode
	Experience(timestep.Episode) error

	// Train performs an update if enough experience has been recorded,
	// returning whether an update occurred. If action is non-nil, only
	// experience from that subtask is trained on.
	Train(action *int, updateActor, updateCritic bool) (Errors, bool, error)

	// Save and Load checkpoint the Model's parameters
	Save() error
	Load() error
}
