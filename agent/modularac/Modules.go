package modularac

import (
	"fmt"

	"github.com/samuelfneumann/modularac/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Actor is the policy of a single subtask. It is shared by every task
// which uses the subtask.
type Actor struct {
	module int
	net    *network.MLP
	embed  *network.Embed
}

// newActor allocates a new actor for module m in s. The actor outputs
// log-probabilities over actions actions.
func newActor(s *network.Store, m, features, hidden, actions int,
	init G.InitWFn, embed *network.Embed) (*Actor, error) {
	inputs := features
	if embed != nil {
		inputs += embed.Dim()
	}

	net, err := network.NewMLP(
		s, network.Actor, m, inputs,
		[]int{hidden, actions},
		[]bool{true, true},
		init,
		[]*network.Activation{network.ReLU(), network.Identity()},
	)
	if err != nil {
		return nil, fmt.Errorf("newactor: %v", err)
	}

	return &Actor{module: m, net: net, embed: embed}, nil
}

// DecrementTerminateBias lowers the bias of the final output unit, the
// terminate action, by amount.
func (a *Actor) DecrementTerminateBias(s *network.Store,
	amount float64) error {
	key, ok := a.net.OutputBias()
	if !ok {
		return fmt.Errorf("decrementterminatebias: actor %v has no output "+
			"bias", a.module)
	}

	bias, err := s.Data(key)
	if err != nil {
		return fmt.Errorf("decrementterminatebias: %v", err)
	}
	bias[len(bias)-1] -= amount
	return nil
}

// fwd adds the forward pass of the actor to the graph of in. The log
// probabilities of each action and the learnable nodes are returned.
func (a *Actor) fwd(s *network.Store, in *inputs) (*G.Node, G.Nodes, error) {
	logits, learnables, err := a.net.Fwd(s, in.x)
	if err != nil {
		return nil, nil, err
	}
	if in.table != nil {
		learnables = append(learnables, in.table)
	}

	logProbs, err := network.LogSoftmax(logits)
	if err != nil {
		return nil, nil, err
	}
	return logProbs, learnables, nil
}

// Keys returns the keys of the actor's parameters, in the same order as
// the learnables of the actor's forward pass
func (a *Actor) Keys() []network.Key {
	keys := a.net.Keys()
	if a.embed != nil {
		keys = append(keys, a.embed.Key())
	}
	return keys
}

// Module returns the id of the subtask of the actor
func (a *Actor) Module() int {
	return a.module
}

// Critic estimates the value of states of one or more (task, module)
// pairs. A Critic is either a single learned scalar, which does not
// depend on the state, or a linear function of the input.
type Critic struct {
	id    int
	net   *network.MLP
	bias  *network.Key
	embed *network.Embed
}

// newScalarCritic allocates a new critic which predicts a single
// learned scalar for every state.
func newScalarCritic(s *network.Store, id int) (*Critic, error) {
	key := network.Key{Kind: network.Critic, Module: id, Param: "b"}
	if _, err := s.Add(key, G.Zeroes(), 1, 1); err != nil {
		return nil, fmt.Errorf("newscalarcritic: %v", err)
	}
	return &Critic{id: id, bias: &key}, nil
}

// newStateCritic allocates a new critic which is a linear function of
// the input.
func newStateCritic(s *network.Store, id, features int, init G.InitWFn,
	embed *network.Embed) (*Critic, error) {
	inputs := features
	if embed != nil {
		inputs += embed.Dim()
	}

	net, err := network.NewMLP(
		s, network.Critic, id, inputs,
		[]int{1},
		[]bool{true},
		init,
		[]*network.Activation{network.Identity()},
	)
	if err != nil {
		return nil, fmt.Errorf("newstatecritic: %v", err)
	}
	return &Critic{id: id, net: net, embed: embed}, nil
}

// fwd adds the forward pass of the critic to the graph of in. The value
// of each row of the input, as a vector, and the learnable nodes are
// returned.
func (c *Critic) fwd(s *network.Store, in *inputs) (*G.Node, G.Nodes,
	error) {
	var value *G.Node
	var learnables G.Nodes

	if c.bias != nil {
		bias, err := s.Node(in.g, *c.bias)
		if err != nil {
			return nil, nil, err
		}
		ones := G.NewMatrix(
			in.g,
			tensor.Float64,
			G.WithShape(in.capacity, 1),
			G.WithName("ones"),
			G.WithInit(G.Ones()),
		)
		if value, err = G.Mul(ones, bias); err != nil {
			return nil, nil, err
		}
		learnables = G.Nodes{bias}
	} else {
		var err error
		if value, learnables, err = c.net.Fwd(s, in.x); err != nil {
			return nil, nil, err
		}
		if in.table != nil {
			learnables = append(learnables, in.table)
		}
	}

	value, err := G.Reshape(value, tensor.Shape{in.capacity})
	if err != nil {
		return nil, nil, err
	}
	return value, learnables, nil
}

// Keys returns the keys of the critic's parameters, in the same order
// as the learnables of the critic's forward pass
func (c *Critic) Keys() []network.Key {
	if c.bias != nil {
		return []network.Key{*c.bias}
	}

	keys := c.net.Keys()
	if c.embed != nil {
		keys = append(keys, c.embed.Key())
	}
	return keys
}

// ID returns the id of the critic
func (c *Critic) ID() int {
	return c.id
}
