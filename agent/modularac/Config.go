package modularac

import (
	"encoding/json"
	"fmt"

	"github.com/samuelfneumann/modularac/agent"
	"github.com/samuelfneumann/modularac/initwfn"
	"github.com/samuelfneumann/modularac/solver"
)

// Baseline modes determine the granularity of the critics
const (
	// BaselineTask uses one learned scalar per task, shared by every
	// module of the task
	BaselineTask = "task"

	// BaselineState uses one linear value function of the input per
	// (task, module) pair
	BaselineState = "state"

	// BaselineCommon uses a single learned scalar for every task and
	// module
	BaselineCommon = "common"
)

// Default hyperparameters
const (
	DefaultHidden        = 128
	DefaultEmbed         = 64
	DefaultDiscount      = 0.9
	DefaultUpdateSize    = 2000
	DefaultBatchSize     = 2000
	DefaultTerminateBias = 3.0
	DefaultEntropyReg    = 0.001
	DefaultStepSize      = 0.001
)

func init() {
	agent.Register(agent.ModularActorCritic, Config{})
}

// Config implements a configuration of a ModularAC model
type Config struct {
	UseArgs             bool   `json:"use_args"`
	Baseline            string `json:"baseline"`
	MaxSubtaskTimesteps int    `json:"max_subtask_timesteps"`
	ExperimentDir       string `json:"experiment_dir"`

	Hidden        int     `json:"hidden"`
	Embed         int     `json:"embed"`
	Discount      float64 `json:"discount"`
	UpdateSize    int     `json:"update_size"`
	BatchSize     int     `json:"batch_size"`
	TerminateBias float64 `json:"terminate_bias"`
	EntropyReg    float64 `json:"entropy_reg"`
	Seed          int64   `json:"seed"`

	Solver  *solver.Solver   `json:"solver"`
	InitWFn *initwfn.InitWFn `json:"init_wfn"`
}

// DefaultConfig returns the default configuration of a ModularAC model
func DefaultConfig() Config {
	s, err := solver.NewDefaultRMSProp(DefaultStepSize, 1)
	if err != nil {
		panic(fmt.Sprintf("defaultconfig: %v", err))
	}
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		panic(fmt.Sprintf("defaultconfig: %v", err))
	}

	return Config{
		UseArgs:             false,
		Baseline:            BaselineState,
		MaxSubtaskTimesteps: 15,
		ExperimentDir:       ".",
		Hidden:              DefaultHidden,
		Embed:               DefaultEmbed,
		Discount:            DefaultDiscount,
		UpdateSize:          DefaultUpdateSize,
		BatchSize:           DefaultBatchSize,
		TerminateBias:       DefaultTerminateBias,
		EntropyReg:          DefaultEntropyReg,
		Solver:              s,
		InitWFn:             init,
	}
}

// UnmarshalJSON implements the json.Unmarshaler interface. Fields
// missing from data keep their default values.
func (c *Config) UnmarshalJSON(data []byte) error {
	type config Config
	defaults := config(DefaultConfig())
	if err := json.Unmarshal(data, &defaults); err != nil {
		return err
	}
	*c = Config(defaults)
	return nil
}

// CreateModel implements the agent.Config interface
func (c Config) CreateModel() (agent.Model, error) {
	return New(c)
}

// Type implements the agent.Config interface
func (c Config) Type() agent.Type {
	return agent.ModularActorCritic
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	switch c.Baseline {
	case BaselineTask, BaselineState, BaselineCommon:
	default:
		return fmt.Errorf("validate: %w: %q", ErrUnsupportedBaseline,
			c.Baseline)
	}

	if c.MaxSubtaskTimesteps <= 0 {
		return fmt.Errorf("validate: max subtask timesteps must be "+
			"positive, got %v", c.MaxSubtaskTimesteps)
	}
	if c.Hidden <= 0 {
		return fmt.Errorf("validate: hidden size must be positive, got %v",
			c.Hidden)
	}
	if c.UseArgs && c.Embed <= 0 {
		return fmt.Errorf("validate: embedding size must be positive, "+
			"got %v", c.Embed)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1], got %v",
			c.Discount)
	}
	if c.UpdateSize <= 0 || c.BatchSize <= 0 {
		return fmt.Errorf("validate: update and batch sizes must be "+
			"positive, got (%v, %v)", c.UpdateSize, c.BatchSize)
	}
	if c.Solver == nil {
		return fmt.Errorf("validate: no solver")
	}
	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer")
	}

	return nil
}
