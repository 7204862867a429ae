package initwfn

import (
	"math"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GlorotUConfig configures Glorot uniform initialization. Weights are
// drawn from U(-w, w) with w = Gain * sqrt(6 / (fanIn + fanOut)).
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot uniform weight initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// Type returns GlorotU
func (g GlorotUConfig) Type() Type {
	return GlorotU
}

// Create returns a Glorot uniform InitWFn drawing from src. The bounds
// are computed from the shape of each tensor initialized.
func (g GlorotUConfig) Create(src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		w := g.Gain * math.Sqrt(6/float64(glorotFans(s...)))
		return uniform(-w, w, src)(dt, s...)
	}
}

// GlorotNConfig configures Glorot normal initialization. Weights are
// drawn from N(0, σ²) with σ = Gain * sqrt(2 / (fanIn + fanOut)).
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot normal weight initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

// Type returns GlorotN
func (g GlorotNConfig) Type() Type {
	return GlorotN
}

// Create returns a Glorot normal InitWFn drawing from src
func (g GlorotNConfig) Create(src rand.Source) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		stddev := g.Gain * math.Sqrt(2/float64(glorotFans(s...)))
		return normal(0, stddev, src)(dt, s...)
	}
}
