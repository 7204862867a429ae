package modularac

import (
	"fmt"

	"github.com/samuelfneumann/modularac/agent"
	"github.com/samuelfneumann/modularac/buffer"
	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/gradient"
	"github.com/samuelfneumann/modularac/network"
	"github.com/samuelfneumann/modularac/timestep"
	"gonum.org/v1/gonum/stat"
)

// Train performs a single synchronized update of every parameter.
//
// Each meta-controller is trained first and their errors averaged. The
// first UpdateSize buffered transitions, optionally only those taken in
// subtask *action, are then partitioned by (task, subtask) and split
// into batches of at most BatchSize. For each batch the critic and then
// the actor of the partition compute their losses and gradients, which
// are summed per parameter. The summed gradients are divided by
// UpdateSize, rescaled by min(1, 1/‖g‖²), and applied in one solver
// step. The buffer is then drained, even of transitions that were not
// selected.
//
// If fewer than UpdateSize transitions qualify, no update is performed,
// the buffer is left unchanged, and ok is false.
func (m *ModularAC) Train(action *int, updateActor,
	updateCritic bool) (errs agent.Errors, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prepared {
		return agent.Errors{}, false, fmt.Errorf("train: %w", ErrNotPrepared)
	}

	metaErrs := make([]float64, len(m.metas))
	for i, c := range m.metas {
		if metaErrs[i], err = c.Train(); err != nil {
			return agent.Errors{}, false, fmt.Errorf("train: meta-controller "+
				"%v: %v", i, err)
		}
	}
	metaErr := stat.Mean(metaErrs, nil)

	var keep func(timestep.Transition) bool
	if action != nil {
		subtask := *action
		keep = func(t timestep.Transition) bool {
			return t.M1.Subtask == subtask
		}
	}

	batch, err := m.experiences.Select(m.config.UpdateSize, keep)
	if buffer.IsInsufficientSamples(err) {
		m.logger.Debug(
			"insufficient experience to train",
			"model", m.id,
			"buffered", m.experiences.Len(),
			"want", m.config.UpdateSize,
		)
		return agent.Errors{}, false, nil
	} else if err != nil {
		return agent.Errors{}, false, fmt.Errorf("train: %v", err)
	}

	m.accumulator.Zero()
	var actorErr, criticErr float64
	for _, part := range partition(batch) {
		pair, err := m.reg.pair(part.task, part.subtask)
		if err != nil {
			return agent.Errors{}, false, fmt.Errorf("train: %v", err)
		}

		for start := 0; start < len(part.transitions); start +=
			m.config.BatchSize {
			end := start + m.config.BatchSize
			if end > len(part.transitions) {
				end = len(part.transitions)
			}

			a, c, err := m.trainBatch(pair, part.transitions[start:end],
				updateActor, updateCritic)
			if err != nil {
				return agent.Errors{}, false, fmt.Errorf("train: task %v "+
					"subtask %v: %v", part.task, part.subtask, err)
			}
			actorErr += a
			criticErr += c
		}
	}

	updateSize := float64(m.config.UpdateSize)
	m.accumulator.Scale(1 / updateSize)
	norm := m.accumulator.SquaredNorm()
	rescale := gradient.Rescale(norm)
	m.accumulator.Scale(rescale)

	if err := m.config.Solver.Step(m.accumulator.Model()); err != nil {
		return agent.Errors{}, false, fmt.Errorf("train: could not step "+
			"solver: %v", err)
	}

	m.experiences.Drain()
	m.steps++

	errs = agent.Errors{
		Actor:  actorErr / updateSize,
		Critic: criticErr / updateSize,
		Meta:   metaErr,
	}
	m.logger.Info(
		"updated modular actor-critic",
		"model", m.id,
		"step", m.steps,
		"actor", errs.Actor,
		"critic", errs.Critic,
		"meta", errs.Meta,
		"squaredNorm", norm,
		"rescale", rescale,
	)
	return errs, true, nil
}

// trainBatch computes the critic and actor losses and gradients on a
// batch of transitions from a single (task, subtask), and accumulates
// the gradients. The summed losses are returned.
func (m *ModularAC) trainBatch(pair trainerPair, batch []timestep.Transition,
	updateActor, updateCritic bool) (float64, float64, error) {
	states := make([]environment.State, len(batch))
	args := make([]int, len(batch))
	actions := make([]int, len(batch))
	returns := make([]float64, len(batch))
	for i, t := range batch {
		states[i] = t.S1
		args[i] = t.M1.Arg
		actions[i] = t.A
		returns[i] = t.R
	}

	values, criticErr, criticGrads, err := pair.critic.run(states, args,
		returns)
	if err != nil {
		return 0, 0, fmt.Errorf("critic: %v", err)
	}

	advantages := make([]float64, len(batch))
	for i := range advantages {
		advantages[i] = returns[i] - values[i]
	}

	actorErr, actorGrads, err := pair.actor.run(states, args, actions,
		advantages)
	if err != nil {
		return 0, 0, fmt.Errorf("actor: %v", err)
	}

	if updateActor {
		if err := m.accumulate(pair.actor.actor.Keys(), actorGrads,
			args); err != nil {
			return 0, 0, fmt.Errorf("actor: %v", err)
		}
	}
	if updateCritic {
		if err := m.accumulate(pair.critic.critic.Keys(), criticGrads,
			args); err != nil {
			return 0, 0, fmt.Errorf("critic: %v", err)
		}
	}

	return actorErr, criticErr, nil
}

// accumulate adds gradients of the parameters keys to the accumulator.
// Gradients of the argument embedding are added sparsely, to the rows
// of the arguments in the batch only.
func (m *ModularAC) accumulate(keys []network.Key, grads [][]float64,
	args []int) error {
	if len(keys) != len(grads) {
		return fmt.Errorf("accumulate: %v gradients for %v parameters",
			len(grads), len(keys))
	}

	for i, k := range keys {
		if k.Kind != network.Embedding {
			if err := m.accumulator.AddDense(k, grads[i]); err != nil {
				return fmt.Errorf("accumulate: %v", err)
			}
			continue
		}

		dim := m.reg.embed.Dim()
		rows := uniqueArgs(args, m.reg.embed.Vocab())
		err := m.accumulator.AddRows(k, rows, gradient.Gather(grads[i], dim,
			rows))
		if err != nil {
			return fmt.Errorf("accumulate: %v", err)
		}
	}
	return nil
}

// uniqueArgs returns the distinct arguments in [0, vocab) in order of
// first appearance
func uniqueArgs(args []int, vocab int) []int {
	seen := make(map[int]bool, len(args))
	rows := make([]int, 0, len(args))
	for _, a := range args {
		if a < 0 || a >= vocab || seen[a] {
			continue
		}
		seen[a] = true
		rows = append(rows, a)
	}
	return rows
}

// part is the transitions of a single (task, subtask)
type part struct {
	task, subtask int
	transitions   []timestep.Transition
}

// partition splits transitions by the (task, subtask) of their first
// meta-state, in order of first appearance
func partition(transitions []timestep.Transition) []part {
	index := make(map[group]int)
	parts := make([]part, 0)
	for _, t := range transitions {
		k := group{t.M1.Task, t.M1.Subtask}
		i, ok := index[k]
		if !ok {
			i = len(parts)
			index[k] = i
			parts = append(parts, part{task: k.task, subtask: k.subtask})
		}
		parts[i].transitions = append(parts[i].transitions, t)
	}
	return parts
}
