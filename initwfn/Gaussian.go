package initwfn

import (
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// GaussianConfig configures a weight initializer that draws weights
// from N(Mean, StdDev²)
type GaussianConfig struct {
	Mean, StdDev float64
}

// NewGaussian returns a new gaussian weight initializer
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	return newInitWFn(GaussianConfig{Mean: mean, StdDev: stddev})
}

// Type returns Gaussian
func (u GaussianConfig) Type() Type {
	return Gaussian
}

// Create returns a gaussian InitWFn drawing from src
func (u GaussianConfig) Create(src rand.Source) G.InitWFn {
	return normal(u.Mean, u.StdDev, src)
}
