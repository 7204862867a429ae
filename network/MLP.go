package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// MLP implements a multi-layered perceptron whose parameters are owned
// by a Store. An MLP is constructed once and may then be added to any
// number of computational graphs with Fwd; every graph shares the same
// parameters.
type MLP struct {
	kind     Kind
	module   int
	features int
	layers   []*fcLayer
}

// NewMLP creates a new MLP and allocates its parameters in s under the
// given module kind and id.
//
// For index i, sizes[i] is the number of nodes in layer i, biases[i] is
// true if layer i contains a bias unit, and activations[i] is the
// activation of layer i. The final entry of sizes is the output size of
// the network. Weights are initialized with init and biases with zeroes.
func NewMLP(s *Store, kind Kind, module, features int, sizes []int,
	biases []bool, init G.InitWFn, activations []*Activation) (*MLP, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("newmlp: at least one layer is required")
	}

	// Ensure we have one activation per layer
	if len(sizes) != len(activations) {
		msg := "newmlp: invalid number of activations\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(sizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(sizes) != len(biases) {
		msg := "newmlp: invalid number of biases\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(sizes), len(biases))
	}

	m := &MLP{
		kind:     kind,
		module:   module,
		features: features,
		layers:   make([]*fcLayer, len(sizes)),
	}

	in := features
	for i, out := range sizes {
		l, err := newfcLayer(s, kind, module, i, in, out, biases[i], init,
			activations[i])
		if err != nil {
			return nil, fmt.Errorf("newmlp: could not create layer %v: %v",
				i, err)
		}
		m.layers[i] = l
		in = out
	}

	return m, nil
}

// Fwd adds the forward pass of the MLP on input to the input's graph.
// The output node and the learnable nodes bound into the graph are
// returned.
func (m *MLP) Fwd(s *Store, input *G.Node) (*G.Node, G.Nodes, error) {
	if !input.IsMatrix() {
		return nil, nil, fmt.Errorf("fwd: input must be a matrix")
	}
	if f := input.Shape()[1]; f != m.features {
		return nil, nil, fmt.Errorf("fwd: invalid shape for input to neural "+
			"net: \n\twant(%v) \n\thave(%v)", m.features, f)
	}

	pred := input
	learnables := make(G.Nodes, 0, 2*len(m.layers))
	for i, l := range m.layers {
		var nodes G.Nodes
		var err error
		if pred, nodes, err = l.fwd(s, pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, nil, fmt.Errorf(msg, i, err)
		}
		learnables = append(learnables, nodes...)
	}

	return pred, learnables, nil
}

// Keys returns the keys of all parameters of the MLP, in the same order
// as the learnables returned by Fwd.
func (m *MLP) Keys() []Key {
	keys := make([]Key, 0, 2*len(m.layers))
	for _, l := range m.layers {
		keys = append(keys, l.Keys()...)
	}
	return keys
}

// Features returns the number of input features of the MLP
func (m *MLP) Features() int {
	return m.features
}

// Outputs returns the number of outputs of the MLP
func (m *MLP) Outputs() int {
	return m.layers[len(m.layers)-1].out
}

// OutputBias returns the key of the bias of the final layer, if the
// final layer has a bias unit.
func (m *MLP) OutputBias() (Key, bool) {
	b := m.layers[len(m.layers)-1].bias
	if b == nil {
		return Key{}, false
	}
	return *b, true
}
