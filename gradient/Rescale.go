package gradient

// Rescale returns the factor by which gradients with the given squared
// global norm are scaled before an update: min(1, 1/squaredNorm).
//
// The factor divides by the squared norm rather than the norm.
func Rescale(squaredNorm float64) float64 {
	if squaredNorm <= 1 {
		return 1
	}
	return 1 / squaredNorm
}

// Gather returns the rows of a row-major matrix m with cols columns,
// concatenated in the order given.
func Gather(m []float64, cols int, rows []int) []float64 {
	out := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		out = append(out, m[r*cols:(r+1)*cols]...)
	}
	return out
}
