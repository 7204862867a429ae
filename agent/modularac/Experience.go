package modularac

import (
	"fmt"

	"github.com/samuelfneumann/modularac/buffer"
	"github.com/samuelfneumann/modularac/timestep"
)

// Experience records a completed episode. The reward of each transition
// is replaced by its discounted return, computed backward from the end
// of the episode over every transition. Only transitions whose action is
// in the module action space are then kept for training, in time order;
// Switch transitions still contribute to the returns of earlier
// transitions.
//
// The unmodified episode is passed to the meta-controller of the task
// the episode originated from.
func (m *ModularAC) Experience(ep timestep.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prepared {
		return fmt.Errorf("experience: %w", ErrNotPrepared)
	}
	if len(ep) == 0 {
		return fmt.Errorf("experience: empty episode")
	}

	task := ep.Task()
	if task < 0 || task >= len(m.metas) {
		return fmt.Errorf("experience: task %v out of range [0, %v)", task,
			len(m.metas))
	}

	n := m.world.NActions()
	for _, t := range buffer.Label(ep, m.config.Discount) {
		if Classify(t.A, n).InModuleSpace() {
			m.experiences.Add(t)
		}
	}

	m.metas[task].Experience(ep)
	return nil
}
