// Package trackers implements Trackers of episodic performance
package trackers

import (
	"github.com/samuelfneumann/modularac/experiment/tracker"
	"github.com/samuelfneumann/modularac/timestep"
	"gonum.org/v1/gonum/stat"
)

// Return tracks and saves the undiscounted episodic return in an
// experiment.
type Return struct {
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track caches the return of an episode
func (r *Return) Track(ep timestep.Episode) {
	r.episodeReturns = append(r.episodeReturns, ep.Return())
}

// Mean returns the mean return of the last n episodes tracked. If
// fewer than n episodes were tracked, the mean over all of them is
// returned.
func (r *Return) Mean(n int) float64 {
	if len(r.episodeReturns) == 0 {
		return 0
	}
	start := len(r.episodeReturns) - n
	if start < 0 {
		start = 0
	}
	return stat.Mean(r.episodeReturns[start:], nil)
}

// Data returns the tracked returns
func (r *Return) Data() []float64 {
	return append([]float64(nil), r.episodeReturns...)
}

// Save saves the data tracked by the Return Tracker to disk.
func (r *Return) Save() error {
	return tracker.Save(r.filename, r.episodeReturns)
}

var _ tracker.Tracker = (*Return)(nil)
