// Package gradient implements the accumulation of gradients of many
// losses over the parameters of a network.Store, so that a single
// synchronized update can be applied to every parameter.
package gradient

import (
	"fmt"

	"github.com/samuelfneumann/modularac/network"
	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Accumulator sums gradients per parameter of a Store. Gradients may be
// accumulated densely, over the entire parameter, or sparsely, over
// only some rows of the parameter.
//
// An Accumulator is sized once at construction for every parameter in
// the Store at that time.
type Accumulator struct {
	store   *network.Store
	keys    []network.Key
	index   map[network.Key]int
	grads   []*tensor.Dense
	touched []bool

	model []G.ValueGrad
}

// New returns a new Accumulator over all parameters in s
func New(s *network.Store) *Accumulator {
	keys := s.Keys()
	a := &Accumulator{
		store:   s,
		keys:    keys,
		index:   make(map[network.Key]int, len(keys)),
		grads:   make([]*tensor.Dense, len(keys)),
		touched: make([]bool, len(keys)),
	}

	for i, k := range keys {
		param, _ := s.Get(k)
		a.index[k] = i
		a.grads[i] = tensor.New(
			tensor.WithShape(param.Shape().Clone()...),
			tensor.WithBacking(make([]float64, param.Shape().TotalSize())),
		)
	}

	return a
}

// grad returns the accumulated gradient buffer for k
func (a *Accumulator) grad(k network.Key) ([]float64, int, error) {
	i, ok := a.index[k]
	if !ok {
		return nil, -1, fmt.Errorf("no accumulator for parameter %v", k)
	}
	return a.grads[i].Data().([]float64), i, nil
}

// AddDense adds the gradient g to the accumulated gradient of k. The
// gradient must have the same number of elements as the parameter.
func (a *Accumulator) AddDense(k network.Key, g []float64) error {
	acc, i, err := a.grad(k)
	if err != nil {
		return fmt.Errorf("adddense: %v", err)
	}
	if len(g) != len(acc) {
		return fmt.Errorf("adddense: invalid gradient size for %v"+
			"\n\twant(%v)\n\thave(%v)", k, len(acc), len(g))
	}

	floats.Add(acc, g)
	a.touched[i] = true
	return nil
}

// AddRows adds a sparse gradient to the accumulated gradient of k,
// which must be a matrix. Row rows[j] of the accumulated gradient is
// incremented by row j of values, a row-major matrix with len(rows)
// rows. Rows not listed are left untouched.
func (a *Accumulator) AddRows(k network.Key, rows []int,
	values []float64) error {
	acc, i, err := a.grad(k)
	if err != nil {
		return fmt.Errorf("addrows: %v", err)
	}

	shape := a.grads[i].Shape()
	r, c := shape[0], shape[1]
	if len(values) != len(rows)*c {
		return fmt.Errorf("addrows: invalid gradient size for %v"+
			"\n\twant(%v)\n\thave(%v)", k, len(rows)*c, len(values))
	}

	for j, row := range rows {
		if row < 0 || row >= r {
			return fmt.Errorf("addrows: row %v out of range [0, %v) for %v",
				row, r, k)
		}
		floats.Add(acc[row*c:(row+1)*c], values[j*c:(j+1)*c])
	}
	a.touched[i] = true
	return nil
}

// Scale multiplies every accumulated gradient by c
func (a *Accumulator) Scale(c float64) {
	for _, g := range a.grads {
		floats.Scale(c, g.Data().([]float64))
	}
}

// SquaredNorm returns the squared L2 norm of the concatenation of all
// accumulated gradients.
func (a *Accumulator) SquaredNorm() float64 {
	var norm float64
	for _, g := range a.grads {
		data := g.Data().([]float64)
		norm += floats.Dot(data, data)
	}
	return norm
}

// Zero resets every accumulated gradient to zero
func (a *Accumulator) Zero() {
	for i, g := range a.grads {
		g.Zero()
		a.touched[i] = false
	}
}

// Touched returns whether any gradient was accumulated for k since
// the last call to Zero.
func (a *Accumulator) Touched(k network.Key) bool {
	i, ok := a.index[k]
	return ok && a.touched[i]
}

// Grad returns the accumulated gradient of k. The returned slice
// aliases the accumulator.
func (a *Accumulator) Grad(k network.Key) ([]float64, error) {
	acc, _, err := a.grad(k)
	if err != nil {
		return nil, fmt.Errorf("grad: %v", err)
	}
	return acc, nil
}

// Keys returns the keys of all accumulated parameters in the order used
// by Model.
func (a *Accumulator) Keys() []network.Key {
	keys := make([]network.Key, len(a.keys))
	copy(keys, a.keys)
	return keys
}

// Model returns each parameter of the Store paired with its accumulated
// gradient, suitable for a Gorgonia Solver. The slice is constructed on
// the first call and cached, so the order of parameters is the same
// across calls.
func (a *Accumulator) Model() []G.ValueGrad {
	if a.model == nil {
		a.model = make([]G.ValueGrad, len(a.keys))
		for i, k := range a.keys {
			param, _ := a.store.Get(k)
			a.model[i] = paramGrad{key: k, value: param, grad: a.grads[i]}
		}
	}
	return a.model
}

// paramGrad pairs a parameter with its accumulated gradient
type paramGrad struct {
	key   network.Key
	value *tensor.Dense
	grad  *tensor.Dense
}

// Value implements the G.ValueGrad interface
func (p paramGrad) Value() G.Value {
	return p.value
}

// Grad implements the G.ValueGrad interface
func (p paramGrad) Grad() (G.Value, error) {
	return p.grad, nil
}

// Name returns the name of the parameter
func (p paramGrad) Name() string {
	return p.key.String()
}
