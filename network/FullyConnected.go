package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network. The layer holds only the keys of its parameters; the
// parameters themselves live in a Store and are bound into a graph
// each time the layer is added to one.
type fcLayer struct {
	weights Key
	bias    *Key
	act     *Activation
	in, out int
}

// newfcLayer allocates the parameters of a new fcLayer in the Store
func newfcLayer(s *Store, kind Kind, module, index, in, out int,
	bias bool, init G.InitWFn, act *Activation) (*fcLayer, error) {
	l := &fcLayer{
		weights: Key{kind, module, fmt.Sprintf("w%d", index)},
		act:     act,
		in:      in,
		out:     out,
	}
	if _, err := s.Add(l.weights, init, in, out); err != nil {
		return nil, fmt.Errorf("newfclayer: %v", err)
	}

	if bias {
		b := Key{kind, module, fmt.Sprintf("b%d", index)}
		if _, err := s.Add(b, G.Zeroes(), 1, out); err != nil {
			return nil, fmt.Errorf("newfclayer: %v", err)
		}
		l.bias = &b
	}

	return l, nil
}

// fwd adds the forward pass of the fcLayer to the computational graph
// of x, binding the layer's parameters from s. The learnable nodes
// created are returned with the output.
func (f *fcLayer) fwd(s *Store, x *G.Node) (*G.Node, G.Nodes, error) {
	g := x.Graph()
	learnables := make(G.Nodes, 0, 2)

	weights, err := s.Node(g, f.weights)
	if err != nil {
		return nil, nil, err
	}
	learnables = append(learnables, weights)
	if x, err = G.Mul(x, weights); err != nil {
		return nil, nil, err
	}

	if f.bias != nil {
		bias, err := s.Node(g, *f.bias)
		if err != nil {
			return nil, nil, err
		}
		learnables = append(learnables, bias)

		// Broadcast the bias weights to all samples along the batch
		// dimension
		if x, err = G.BroadcastAdd(x, bias, nil, []byte{0}); err != nil {
			return nil, nil, err
		}
	}

	if x, err = f.act.fwd(x); err != nil {
		return nil, nil, err
	}
	return x, learnables, nil
}

// Keys returns the keys of the layer's parameters
func (f *fcLayer) Keys() []Key {
	if f.bias == nil {
		return []Key{f.weights}
	}
	return []Key{f.weights, *f.bias}
}
