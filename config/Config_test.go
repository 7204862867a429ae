package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/modularac/agent/modularac"
	"gopkg.in/yaml.v3"
)

const testYAML = `
experiment_dir: %s
rollouts: 4
model:
  use_args: true
  hidden: 32
world:
  rows: 4
  cols: 3
  home: [1, 1]
  landmarks: [[0, 0], [2, 3]]
  tasks: [[1], [0, 1]]
`

func writeConfig(t *testing.T) (string, string) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiment.yaml")
	data := []byte(fmt.Sprintf(testYAML, dir))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func TestLoad(t *testing.T) {
	path, dir := writeConfig(t)
	t.Setenv("MODULARAC_MODEL_BASELINE", modularac.BaselineTask)

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if c.ExperimentDir != dir || c.Rollouts != 4 {
		t.Errorf("top-level values not read: %+v", c)
	}
	if !c.Model.UseArgs || c.Model.Hidden != 32 {
		t.Errorf("model values not read: %+v", c.Model)
	}
	if c.Model.Baseline != modularac.BaselineTask {
		t.Errorf("baseline: want(%v) have(%v)", modularac.BaselineTask,
			c.Model.Baseline)
	}
	if c.Model.Discount != modularac.DefaultDiscount {
		t.Errorf("discount: want default (%v) have(%v)",
			modularac.DefaultDiscount, c.Model.Discount)
	}
	if c.MaxUpdates != 100 {
		t.Errorf("max updates: want default (100) have(%v)", c.MaxUpdates)
	}

	w, err := c.NewWorld()
	if err != nil {
		t.Fatal(err)
	}
	if w.NumTasks() != 2 || w.NumLandmarks() != 2 {
		t.Errorf("world: want 2 tasks and landmarks, have %v", w)
	}
	if r, cols := w.Dims(); r != 4 || cols != 3 {
		t.Errorf("dims: want (4, 3) have (%v, %v)", r, cols)
	}
}

func TestModelConfig(t *testing.T) {
	path, dir := writeConfig(t)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	tc, err := c.ModelConfig()
	if err != nil {
		t.Fatal(err)
	}
	mc, ok := tc.Config.(modularac.Config)
	if !ok {
		t.Fatalf("config: want modularac.Config have %T", tc.Config)
	}
	if mc.ExperimentDir != dir || mc.Hidden != 32 || !mc.UseArgs {
		t.Errorf("model config not built from file: %+v", mc)
	}
	if mc.Solver == nil || mc.InitWFn == nil {
		t.Error("model config has no solver or initializer")
	}

	c.Model.Baseline = "none"
	if _, err := c.ModelConfig(); err == nil {
		t.Error("expected error for unsupported baseline")
	}
}

func TestSnapshot(t *testing.T) {
	path, _ := writeConfig(t)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	out, err := c.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	var got Config
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Model != c.Model || got.Rollouts != c.Rollouts {
		t.Errorf("snapshot: want(%+v) have(%+v)", c, got)
	}
	if len(got.World.Tasks) != len(c.World.Tasks) {
		t.Errorf("snapshot tasks: want(%v) have(%v)", c.World.Tasks,
			got.World.Tasks)
	}
}

func TestValidate(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	c.World.Home = []int{1}
	if err := c.Validate(); err == nil {
		t.Error("expected error for invalid home")
	}
}
