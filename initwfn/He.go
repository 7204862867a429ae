package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// HeUConfig configures He uniform initialization. Weights are drawn
// from U(-w, w) with w = Gain * sqrt(3 / fanIn). Use a Gain of sqrt(2)
// for weights feeding ReLU units.
type HeUConfig struct {
	Gain float64
}

// NewHeU returns a new He uniform weight initializer
func NewHeU(gain float64) (*InitWFn, error) {
	return newInitWFn(HeUConfig{Gain: gain})
}

// Type returns HeU
func (h HeUConfig) Type() Type {
	return HeU
}

// Create returns a He uniform InitWFn drawing from src
func (h HeUConfig) Create(src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		w := h.Gain * math.Sqrt(3/float64(heFanIn(s...)))
		return uniform(-w, w, src)(dt, s...)
	}
}

// HeNConfig configures He normal initialization, with weights drawn
// from N(0, σ²) and σ = Gain * sqrt(1 / fanIn).
type HeNConfig struct {
	Gain float64
}

// NewHeN returns a new He normal weight initializer
func NewHeN(gain float64) (*InitWFn, error) {
	return newInitWFn(HeNConfig{Gain: gain})
}

// Type returns HeN
func (h HeNConfig) Type() Type {
	return HeN
}

// Create returns a He normal InitWFn drawing from src
func (h HeNConfig) Create(src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		stddev := h.Gain / math.Sqrt(float64(heFanIn(s...)))
		return normal(0, stddev, src)(dt, s...)
	}
}
