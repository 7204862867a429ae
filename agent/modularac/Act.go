package modularac

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/meta"
	"gonum.org/v1/gonum/stat/distuv"
)

// group is a key of rollouts pursuing the same subtask of the same task
type group struct {
	task, subtask int
}

// Act returns an action for each rollout and whether the rollout has
// terminated.
//
// The meta-controller of each rollout's task is queried for a candidate
// subtask in every step. Rollouts are grouped by (task, subtask) so that
// each actor is evaluated once per group. A rollout's policy samples an
// action with the rollout's random stream, unless the rollout has spent
// MaxSubtaskTimesteps steps in its subtask, in which case the subtask is
// ended with a Switch. Whenever the chosen action ends the subtask, the
// candidate subtask becomes the rollout's subtask. A rollout whose
// subtask is 0 is terminated and receives the action
// world.NActions().
func (m *ModularAC) Act(states []environment.State) ([]int, []bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prepared {
		return nil, nil, fmt.Errorf("act: %w", ErrNotPrepared)
	}
	if !m.initialised {
		return nil, nil, fmt.Errorf("act: %w", ErrNotInitialised)
	}
	if len(states) != len(m.subtask) {
		return nil, nil, fmt.Errorf("act: got %v states for %v rollouts",
			len(states), len(m.subtask))
	}

	n := m.world.NActions()
	candidates := make([]meta.Choice, len(states))
	for i := range states {
		choices := m.metas[m.task[i]].Act(states[i:i+1], false)
		if len(choices) != 1 {
			return nil, nil, fmt.Errorf("act: meta-controller returned %v "+
				"choices for 1 state", len(choices))
		}
		candidates[i] = choices[0]
	}

	mstates := m.MetaStates()
	for i := range m.elapsed {
		m.elapsed[i]++
	}

	groups := make(map[group][]int)
	order := make([]group, 0)
	for i := range states {
		k := group{m.task[i], m.subtask[i]}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	actions := make([]int, len(states))
	terminate := make([]bool, len(states))
	for i := range actions {
		actions[i] = n
		terminate[i] = true
	}

	for _, k := range order {
		if k.subtask == 0 {
			continue
		}
		indices := groups[k]

		p, err := m.reg.policy(k.subtask)
		if err != nil {
			return nil, nil, fmt.Errorf("act: %v", err)
		}

		groupStates := make([]environment.State, len(indices))
		groupArgs := make([]int, len(indices))
		for j, i := range indices {
			groupStates[j] = states[i]
			groupArgs[j] = mstates[i].Arg
		}

		logProbs, err := p.logProbs(groupStates, groupArgs)
		if err != nil {
			return nil, nil, fmt.Errorf("act: subtask %v: %v", k.subtask, err)
		}

		for j, i := range indices {
			var a Action
			if m.elapsed[i] >= m.config.MaxSubtaskTimesteps {
				a = Action{Kind: Switch}
			} else {
				a = Classify(m.sample(i, logProbs[j]), n)
			}

			if a.Kind != Primitive {
				m.elapsed[i] = 0
				m.subtask[i] = candidates[i].Subtask
				m.arg[i] = candidates[i].Arg
			}

			terminate[i] = m.subtask[i] == 0
			if terminate[i] {
				actions[i] = n
			} else {
				actions[i] = a.Index(n)
			}
		}
	}

	return actions, terminate, nil
}

// sample samples an action from a categorical distribution with the
// given log-probabilities using the random stream of rollout i
func (m *ModularAC) sample(i int, logProbs []float64) int {
	probs := make([]float64, len(logProbs))
	for j, lp := range logProbs {
		probs[j] = math.Exp(lp)
	}

	dist := distuv.NewCategorical(probs, m.randoms[i])
	return int(dist.Rand())
}
