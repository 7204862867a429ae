// Package config loads the configuration of an experiment from a YAML
// file. Any value may be overridden by an environment variable with
// the prefix MODULARAC_ and the key path joined by underscores, for
// example MODULARAC_MODEL_BASELINE.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samuelfneumann/modularac/agent"
	"github.com/samuelfneumann/modularac/agent/modularac"
	"github.com/samuelfneumann/modularac/environment/gridworld"
	"github.com/samuelfneumann/modularac/experiment"
	"github.com/samuelfneumann/modularac/initwfn"
	"github.com/samuelfneumann/modularac/solver"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables which override
// configuration values
const EnvPrefix = "MODULARAC"

// SnapshotFile is the name of the file in the experiment directory that
// the resolved configuration is written to
const SnapshotFile = "config.yaml"

// Config is the configuration of an experiment
type Config struct {
	ExperimentDir string `mapstructure:"experiment_dir" yaml:"experiment_dir"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`

	Rollouts        int  `mapstructure:"rollouts" yaml:"rollouts"`
	MaxUpdates      int  `mapstructure:"max_updates" yaml:"max_updates"`
	MaxEpisodeSteps int  `mapstructure:"max_episode_steps" yaml:"max_episode_steps"`
	CheckpointEvery int  `mapstructure:"checkpoint_every" yaml:"checkpoint_every"`
	Resume          bool `mapstructure:"resume" yaml:"resume"`
	Progress        bool `mapstructure:"progress" yaml:"progress"`

	Model Model `mapstructure:"model" yaml:"model"`
	World World `mapstructure:"world" yaml:"world"`
}

// Model is the configuration of the modular actor-critic
type Model struct {
	UseArgs             bool    `mapstructure:"use_args" yaml:"use_args"`
	Baseline            string  `mapstructure:"baseline" yaml:"baseline"`
	MaxSubtaskTimesteps int     `mapstructure:"max_subtask_timesteps" yaml:"max_subtask_timesteps"`
	Hidden              int     `mapstructure:"hidden" yaml:"hidden"`
	Embed               int     `mapstructure:"embed" yaml:"embed"`
	Discount            float64 `mapstructure:"discount" yaml:"discount"`
	UpdateSize          int     `mapstructure:"update_size" yaml:"update_size"`
	BatchSize           int     `mapstructure:"batch_size" yaml:"batch_size"`
	TerminateBias       float64 `mapstructure:"terminate_bias" yaml:"terminate_bias"`
	EntropyReg          float64 `mapstructure:"entropy_reg" yaml:"entropy_reg"`
	StepSize            float64 `mapstructure:"step_size" yaml:"step_size"`
	Seed                int64   `mapstructure:"seed" yaml:"seed"`
}

// World is the configuration of the grid world. Positions are [x, y]
// pairs.
type World struct {
	Rows      int     `mapstructure:"rows" yaml:"rows"`
	Cols      int     `mapstructure:"cols" yaml:"cols"`
	Home      []int   `mapstructure:"home" yaml:"home"`
	Landmarks [][]int `mapstructure:"landmarks" yaml:"landmarks"`
	Tasks     [][]int `mapstructure:"tasks" yaml:"tasks"`
}

// defaults are the default configuration values, keyed by path
var defaults = map[string]interface{}{
	"experiment_dir":    ".",
	"log_level":         "info",
	"rollouts":          16,
	"max_updates":       100,
	"max_episode_steps": 100,
	"checkpoint_every":  10,
	"resume":            false,
	"progress":          false,

	"model.use_args":              false,
	"model.baseline":              modularac.BaselineState,
	"model.max_subtask_timesteps": 15,
	"model.hidden":                modularac.DefaultHidden,
	"model.embed":                 modularac.DefaultEmbed,
	"model.discount":              modularac.DefaultDiscount,
	"model.update_size":           modularac.DefaultUpdateSize,
	"model.batch_size":            modularac.DefaultBatchSize,
	"model.terminate_bias":        modularac.DefaultTerminateBias,
	"model.entropy_reg":           modularac.DefaultEntropyReg,
	"model.step_size":             modularac.DefaultStepSize,
	"model.seed":                  0,

	"world.rows":      5,
	"world.cols":      5,
	"world.home":      []int{0, 0},
	"world.landmarks": [][]int{{4, 0}, {0, 4}, {4, 4}},
	"world.tasks":     [][]int{{0}, {1}, {0, 2}, {1, 2}},
}

// Load loads a Config from the YAML file at path. If path is empty,
// only defaults and environment overrides are used. Variables in a .env
// file in the working directory, if one exists, are loaded into the
// environment first.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load: could not load .env: %v", err)
	}

	vp := viper.New()
	for k, v := range defaults {
		vp.SetDefault(k, v)
	}
	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if path != "" {
		vp.SetConfigFile(path)
		vp.SetConfigType("yaml")
		if err := vp.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("load: could not read %v: %v", path,
				err)
		}
	}

	var c Config
	if err := vp.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("load: could not decode config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: %v", err)
	}
	return c, nil
}

// Validate checks a Config for errors which are not caught when
// constructing the model, world, or experiment
func (c Config) Validate() error {
	if c.ExperimentDir == "" {
		return fmt.Errorf("validate: no experiment directory")
	}
	if c.CheckpointEvery < 0 {
		return fmt.Errorf("validate: checkpoint interval must be "+
			"non-negative, got %v", c.CheckpointEvery)
	}
	if len(c.World.Home) != 2 {
		return fmt.Errorf("validate: home must be an [x, y] pair, got %v",
			c.World.Home)
	}
	for i, l := range c.World.Landmarks {
		if len(l) != 2 {
			return fmt.Errorf("validate: landmark %v must be an [x, y] "+
				"pair, got %v", i, l)
		}
	}
	return nil
}

// ModelConfig returns the typed configuration of the modular
// actor-critic
func (c Config) ModelConfig() (agent.TypedConfig, error) {
	s, err := solver.NewDefaultRMSProp(c.Model.StepSize, 1)
	if err != nil {
		return agent.TypedConfig{}, fmt.Errorf("modelconfig: %v", err)
	}
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		return agent.TypedConfig{}, fmt.Errorf("modelconfig: %v", err)
	}

	mc := modularac.Config{
		UseArgs:             c.Model.UseArgs,
		Baseline:            c.Model.Baseline,
		MaxSubtaskTimesteps: c.Model.MaxSubtaskTimesteps,
		ExperimentDir:       c.ExperimentDir,
		Hidden:              c.Model.Hidden,
		Embed:               c.Model.Embed,
		Discount:            c.Model.Discount,
		UpdateSize:          c.Model.UpdateSize,
		BatchSize:           c.Model.BatchSize,
		TerminateBias:       c.Model.TerminateBias,
		EntropyReg:          c.Model.EntropyReg,
		Seed:                c.Model.Seed,
		Solver:              s,
		InitWFn:             init,
	}
	if err := mc.Validate(); err != nil {
		return agent.TypedConfig{}, fmt.Errorf("modelconfig: %w", err)
	}
	return agent.NewTypedConfig(mc), nil
}

// ExperimentConfig returns the configuration of the experiment loop
func (c Config) ExperimentConfig() experiment.Config {
	return experiment.Config{
		Rollouts:        c.Rollouts,
		MaxUpdates:      c.MaxUpdates,
		MaxEpisodeSteps: c.MaxEpisodeSteps,
		Progress:        c.Progress,
	}
}

// NewWorld constructs the grid world
func (c Config) NewWorld() (*gridworld.GridWorld, error) {
	home := gridworld.Point{X: c.World.Home[0], Y: c.World.Home[1]}
	landmarks := make([]gridworld.Point, len(c.World.Landmarks))
	for i, l := range c.World.Landmarks {
		landmarks[i] = gridworld.Point{X: l[0], Y: l[1]}
	}

	w, err := gridworld.New(c.World.Rows, c.World.Cols, home, landmarks,
		c.World.Tasks)
	if err != nil {
		return nil, fmt.Errorf("newworld: %v", err)
	}
	return w, nil
}

// Snapshot writes the resolved configuration to the experiment
// directory and returns the path written
func (c Config) Snapshot() (string, error) {
	if err := os.MkdirAll(c.ExperimentDir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot: %v", err)
	}

	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("snapshot: could not encode config: %v", err)
	}

	path := filepath.Join(c.ExperimentDir, SnapshotFile)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("snapshot: %v", err)
	}
	return path, nil
}
