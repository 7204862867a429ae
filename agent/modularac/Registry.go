package modularac

import (
	"fmt"

	"github.com/samuelfneumann/modularac/agent"
	"github.com/samuelfneumann/modularac/network"
	G "gorgonia.org/gorgonia"
)

// Curriculum describes the tasks and subtasks a ModularAC is trained on
type Curriculum = agent.Curriculum

// trainerPair holds references to the trainers of one (task, module)
// pair. The actor trainer is shared by every task of the module; the
// critic trainer is shared according to the baseline mode.
type trainerPair struct {
	actor  *actorTrainer
	critic *criticTrainer
}

// registry owns every actor, critic, and trainer of a ModularAC and the
// Store holding their parameters.
type registry struct {
	store    *network.Store
	embed    *network.Embed
	features int

	actors  []*Actor
	critics [][]*Critic // critics[task][module]

	actorTrainers  []*actorTrainer
	criticTrainers map[*Critic]*criticTrainer
	pairs          [][]trainerPair // pairs[task][module]

	// policies are inference graphs of each actor, built for a fixed
	// number of rollouts
	policies []*policy
	rollouts int
}

// newRegistry constructs the networks for nTasks tasks and nModules
// modules in a world with nActions primitive actions
func newRegistry(c Config, features, nActions, nTasks, nModules,
	nArgs int) (*registry, error) {
	r := &registry{
		store:          network.NewStore(),
		features:       features,
		actors:         make([]*Actor, nModules),
		critics:        make([][]*Critic, nTasks),
		actorTrainers:  make([]*actorTrainer, nModules),
		criticTrainers: make(map[*Critic]*criticTrainer),
		pairs:          make([][]trainerPair, nTasks),
	}
	init := c.InitWFn.Seeded(uint64(c.Seed))

	var err error
	if c.UseArgs {
		if r.embed, err = network.NewEmbed(r.store, 0, nArgs, c.Embed,
			init); err != nil {
			return nil, fmt.Errorf("newregistry: %v", err)
		}
	}

	// One actor per module, with one extra output for terminate
	for m := 0; m < nModules; m++ {
		if r.actors[m], err = newActor(r.store, m, features, c.Hidden,
			nActions+1, init, r.embed); err != nil {
			return nil, fmt.Errorf("newregistry: %v", err)
		}
	}

	if err := r.buildCritics(c, init); err != nil {
		return nil, fmt.Errorf("newregistry: %v", err)
	}

	// Decrement the terminate bias only after every parameter has been
	// initialized
	for _, actor := range r.actors {
		if err := actor.DecrementTerminateBias(r.store,
			c.TerminateBias); err != nil {
			return nil, fmt.Errorf("newregistry: %v", err)
		}
	}

	if err := r.buildTrainers(c); err != nil {
		return nil, fmt.Errorf("newregistry: %v", err)
	}

	return r, nil
}

// buildCritics constructs the critics of each (task, module) pair
// according to the baseline mode
func (r *registry) buildCritics(c Config, init G.InitWFn) error {
	nModules := len(r.actors)

	var common *Critic
	if c.Baseline == BaselineCommon {
		var err error
		if common, err = newScalarCritic(r.store, 0); err != nil {
			return err
		}
	}

	for t := range r.critics {
		r.critics[t] = make([]*Critic, nModules)

		var task *Critic
		if c.Baseline == BaselineTask {
			var err error
			if task, err = newScalarCritic(r.store, t); err != nil {
				return err
			}
		}

		for m := 0; m < nModules; m++ {
			switch c.Baseline {
			case BaselineCommon:
				r.critics[t][m] = common
			case BaselineTask:
				r.critics[t][m] = task
			case BaselineState:
				critic, err := newStateCritic(r.store, t*nModules+m,
					r.features, init, r.embed)
				if err != nil {
					return err
				}
				r.critics[t][m] = critic
			default:
				return fmt.Errorf("buildcritics: %w: %q",
					ErrUnsupportedBaseline, c.Baseline)
			}
		}
	}
	return nil
}

// buildTrainers constructs one actor trainer per module, one critic
// trainer per critic, and the trainer pair of each (task, module)
func (r *registry) buildTrainers(c Config) error {
	for m, actor := range r.actors {
		trainer, err := newActorTrainer(r.store, actor, c.BatchSize,
			r.features, c.EntropyReg)
		if err != nil {
			return fmt.Errorf("buildtrainers: actor %v: %v", m, err)
		}
		r.actorTrainers[m] = trainer
	}

	for t := range r.critics {
		r.pairs[t] = make([]trainerPair, len(r.actors))
		for m, critic := range r.critics[t] {
			trainer, ok := r.criticTrainers[critic]
			if !ok {
				var err error
				trainer, err = newCriticTrainer(r.store, critic, c.BatchSize,
					r.features)
				if err != nil {
					return fmt.Errorf("buildtrainers: critic %v: %v",
						critic.ID(), err)
				}
				r.criticTrainers[critic] = trainer
			}

			r.pairs[t][m] = trainerPair{
				actor:  r.actorTrainers[m],
				critic: trainer,
			}
		}
	}
	return nil
}

// pair returns the trainer pair of a (task, module)
func (r *registry) pair(task, module int) (trainerPair, error) {
	if task < 0 || task >= len(r.pairs) {
		return trainerPair{}, fmt.Errorf("pair: task %v out of range "+
			"[0, %v)", task, len(r.pairs))
	}
	if module < 0 || module >= len(r.pairs[task]) {
		return trainerPair{}, fmt.Errorf("pair: module %v out of range "+
			"[0, %v)", module, len(r.pairs[task]))
	}
	return r.pairs[task][module], nil
}

// policy returns the inference graph of the actor of module
func (r *registry) policy(module int) (*policy, error) {
	if module < 0 || module >= len(r.policies) {
		return nil, fmt.Errorf("policy: module %v out of range [0, %v)",
			module, len(r.policies))
	}
	return r.policies[module], nil
}

// buildPolicies builds the inference graph of every actor for the given
// number of rollouts. Graphs are reused if the number of rollouts has
// not changed.
func (r *registry) buildPolicies(rollouts int) error {
	if r.policies != nil && r.rollouts == rollouts {
		return nil
	}

	policies := make([]*policy, len(r.actors))
	for m, actor := range r.actors {
		p, err := newPolicy(r.store, actor, rollouts, r.features)
		if err != nil {
			return fmt.Errorf("buildpolicies: actor %v: %v", m, err)
		}
		policies[m] = p
	}
	r.policies = policies
	r.rollouts = rollouts
	return nil
}

// ActorKeys returns the keys of the parameters of the actor of module
func (r *registry) ActorKeys(module int) []network.Key {
	return r.actors[module].Keys()
}

// CriticKeys returns the keys of the parameters of the critic of a
// (task, module)
func (r *registry) CriticKeys(task, module int) []network.Key {
	return r.critics[task][module].Keys()
}
