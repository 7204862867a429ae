package modularac

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// CheckpointFile is the name of the file in the experiment directory
// that parameters are saved to
const CheckpointFile = "modular_ac.chk"

// CheckpointPath returns the path of the model's checkpoint file
func (m *ModularAC) CheckpointPath() string {
	return filepath.Join(m.config.ExperimentDir, CheckpointFile)
}

// Save saves every parameter of the model to its checkpoint file
func (m *ModularAC) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prepared {
		return fmt.Errorf("save: %w", ErrNotPrepared)
	}

	if err := os.MkdirAll(m.config.ExperimentDir, 0o755); err != nil {
		return fmt.Errorf("save: %v", err)
	}

	path := m.CheckpointPath()
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: could not create checkpoint: %v", err)
	}
	defer file.Close()

	enc := gob.NewEncoder(file)
	if err := enc.Encode(m.reg.store); err != nil {
		return fmt.Errorf("save: could not encode parameters: %v", err)
	}
	if err := enc.Encode(m.steps); err != nil {
		return fmt.Errorf("save: could not encode steps: %v", err)
	}

	m.logger.Info("saved checkpoint", "model", m.id, "path", path)
	return file.Close()
}

// Load restores every parameter of the model from its checkpoint file.
// Parameters are overwritten in place, so every network of the model
// sees the restored values.
func (m *ModularAC) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prepared {
		return fmt.Errorf("load: %w", ErrNotPrepared)
	}

	path := m.CheckpointPath()
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load: could not open checkpoint: %v", err)
	}
	defer file.Close()

	dec := gob.NewDecoder(file)
	if err := dec.Decode(m.reg.store); err != nil {
		return fmt.Errorf("load: could not decode parameters: %v", err)
	}
	if err := dec.Decode(&m.steps); err != nil {
		return fmt.Errorf("load: could not decode steps: %v", err)
	}

	m.logger.Info("loaded checkpoint", "model", m.id, "path", path)
	return nil
}
