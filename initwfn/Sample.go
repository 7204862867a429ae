package initwfn

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// glorotFans returns the summed fan in and fan out of a weight of shape
// s. A vector is treated as a column vector, and dimensions past the
// second form a receptive field.
func glorotFans(s ...int) int {
	switch len(s) {
	case 0:
		return 1
	case 1:
		return 1 + s[0]
	}

	field := 1
	for _, v := range s[2:] {
		field *= v
	}
	return (s[0] + s[1]) * field
}

// heFanIn returns the fan in of a weight of shape s
func heFanIn(s ...int) int {
	switch len(s) {
	case 0, 1:
		return 1
	case 2:
		return s[0]
	}

	fanIn := 1
	for _, v := range s[1:] {
		fanIn *= v
	}
	return fanIn
}

// sample returns an InitWFn that fills a tensor with successive draws
// of rnd. Dtypes other than Float64 and Float32 produce nil.
func sample(rnd func() float64) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		size := tensor.Shape(s).TotalSize()

		switch dt {
		case tensor.Float64:
			values := make([]float64, size)
			for i := range values {
				values[i] = rnd()
			}
			return values

		case tensor.Float32:
			values := make([]float32, size)
			for i := range values {
				values[i] = float32(rnd())
			}
			return values

		default:
			return nil
		}
	}
}

func uniform(low, high float64, src rand.Source) G.InitWFn {
	return sample(distuv.Uniform{Min: low, Max: high, Src: src}.Rand)
}

func normal(mean, stddev float64, src rand.Source) G.InitWFn {
	return sample(distuv.Normal{Mu: mean, Sigma: stddev, Src: src}.Rand)
}
