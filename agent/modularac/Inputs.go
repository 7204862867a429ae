package modularac

import (
	"fmt"

	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// inputs holds the input nodes of a fixed-capacity graph. Batches
// smaller than the capacity are padded with rows of zeroes.
type inputs struct {
	g        *G.ExprGraph
	capacity int
	features int

	feats  *G.Node
	featsT *tensor.Dense

	args  *G.Node
	argsT *tensor.Dense
	table *G.Node

	// x is the input to the actors and critics: the argument embedding
	// concatenated with the features
	x *G.Node
}

// newInputs creates the input nodes in g. If embed is not nil, the
// argument of each row is embedded and prepended to the features.
func newInputs(g *G.ExprGraph, s *network.Store, capacity, features int,
	embed *network.Embed) (*inputs, error) {
	in := &inputs{
		g:        g,
		capacity: capacity,
		features: features,
		featsT: tensor.New(
			tensor.WithShape(capacity, features),
			tensor.WithBacking(make([]float64, capacity*features)),
		),
	}

	in.feats = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(capacity, features),
		G.WithName("features"),
		G.WithInit(G.Zeroes()),
	)

	if embed == nil {
		in.x = in.feats
		return in, nil
	}

	in.argsT = network.OneHot(nil, nil, capacity, embed.Vocab())
	in.args = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(capacity, embed.Vocab()),
		G.WithName("args"),
		G.WithInit(G.Zeroes()),
	)

	embedded, table, err := embed.Fwd(s, in.args)
	if err != nil {
		return nil, fmt.Errorf("newinputs: %v", err)
	}
	in.table = table

	if in.x, err = G.Concat(1, embedded, in.feats); err != nil {
		return nil, fmt.Errorf("newinputs: %v", err)
	}
	return in, nil
}

// set sets the input nodes to the features of states and the arguments
// args. Only the first len(states) rows are used.
func (in *inputs) set(states []environment.State, args []int) error {
	if len(states) > in.capacity {
		return fmt.Errorf("set: batch of %v exceeds capacity %v",
			len(states), in.capacity)
	}

	data := zeroed(in.featsT)
	for i, s := range states {
		f := s.Features()
		if len(f) != in.features {
			return fmt.Errorf("set: invalid number of features in state %v"+
				"\n\twant(%v)\n\thave(%v)", i, in.features, len(f))
		}
		copy(data[i*in.features:(i+1)*in.features], f)
	}
	if err := G.Let(in.feats, in.featsT); err != nil {
		return fmt.Errorf("set: %v", err)
	}

	if in.args == nil {
		return nil
	}
	network.OneHot(in.argsT, args, in.capacity, in.argsT.Shape()[1])
	if err := G.Let(in.args, in.argsT); err != nil {
		return fmt.Errorf("set: %v", err)
	}
	return nil
}

// newVectorInput returns a new input vector node of the given capacity
// with its backing tensor
func newVectorInput(g *G.ExprGraph, capacity int,
	name string) (*G.Node, *tensor.Dense) {
	t := tensor.New(
		tensor.WithShape(capacity),
		tensor.WithBacking(make([]float64, capacity)),
	)
	n := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(capacity),
		G.WithName(name),
		G.WithInit(G.Zeroes()),
	)
	return n, t
}

// newMatrixInput returns a new input matrix node of the given shape
// with its backing tensor
func newMatrixInput(g *G.ExprGraph, rows, cols int,
	name string) (*G.Node, *tensor.Dense) {
	t := tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(make([]float64, rows*cols)),
	)
	n := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(rows, cols),
		G.WithName(name),
		G.WithInit(G.Zeroes()),
	)
	return n, t
}

// zeroed sets every element of t to zero and returns its backing data
func zeroed(t *tensor.Dense) []float64 {
	data := t.Data().([]float64)
	for i := range data {
		data[i] = 0
	}
	return data
}
