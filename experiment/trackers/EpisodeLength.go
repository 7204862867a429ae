package trackers

import (
	"github.com/samuelfneumann/modularac/experiment/tracker"
	"github.com/samuelfneumann/modularac/timestep"
)

// EpisodeLength tracks and saves the lengths of episodes in an
// experiment, counting every transition including subtask switches.
type EpisodeLength struct {
	episodeLengths []float64
	filename       string
}

// NewEpisodeLength returns a new EpisodeLength tracker which will save
// its data at the specified location filename
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// Track caches the length of an episode
func (e *EpisodeLength) Track(ep timestep.Episode) {
	e.episodeLengths = append(e.episodeLengths, float64(len(ep)))
}

// Data returns the tracked episode lengths
func (e *EpisodeLength) Data() []float64 {
	return append([]float64(nil), e.episodeLengths...)
}

// Save saves the data tracked by the EpisodeLength Tracker to disk.
func (e *EpisodeLength) Save() error {
	return tracker.Save(e.filename, e.episodeLengths)
}

var _ tracker.Tracker = (*EpisodeLength)(nil)
