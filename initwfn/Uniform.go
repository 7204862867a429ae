package initwfn

import (
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// UniformConfig configures a weight initializer that draws weights
// from U(Low, High)
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) (*InitWFn, error) {
	return newInitWFn(UniformConfig{Low: low, High: high})
}

// Type returns Uniform
func (u UniformConfig) Type() Type {
	return Uniform
}

// Create returns a uniform InitWFn drawing from src
func (u UniformConfig) Create(src rand.Source) G.InitWFn {
	return uniform(u.Low, u.High, src)
}
