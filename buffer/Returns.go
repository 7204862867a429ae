package buffer

import "github.com/samuelfneumann/modularac/timestep"

// DiscountedReturns returns the discounted return from each reward in
// rewards, computed strictly backward from the last reward:
//
//	G_i = r_i + γ r_{i+1} + γ² r_{i+2} + ...
func DiscountedReturns(rewards []float64, discount float64) []float64 {
	returns := make([]float64, len(rewards))

	var running float64
	for i := len(rewards) - 1; i >= 0; i-- {
		running = running*discount + rewards[i]
		returns[i] = running
	}
	return returns
}

// Label returns a copy of ep with the reward of each transition
// replaced by its discounted return. The argument episode is not
// modified.
func Label(ep timestep.Episode, discount float64) timestep.Episode {
	rewards := make([]float64, len(ep))
	for i, t := range ep {
		rewards[i] = t.R
	}

	returns := DiscountedReturns(rewards, discount)
	labelled := make(timestep.Episode, len(ep))
	for i, t := range ep {
		labelled[i] = t.WithReward(returns[i])
	}
	return labelled
}
