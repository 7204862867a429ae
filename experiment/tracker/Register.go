package tracker

import "github.com/samuelfneumann/modularac/timestep"

// registeredTracker registers a task with some Tracker so that the
// Tracker tracks data from episodes of the registered task only.
// registeredTracker itself is a Tracker.
//
// This may be useful if an experiment is run on many tasks at once but
// the performance on each task should be saved separately.
type registeredTracker struct {
	Tracker
	task int
}

// Register registers a new Tracker with a task, to track data from
// episodes of the registered task only. Register returns a copy of the
// argument Tracker that is registered with the argument task.
//
// Note: the underlying concrete type of the registered Tracker is
// lost when registering a task with a Tracker.
func Register(t Tracker, task int) Tracker {
	return &registeredTracker{t, task}
}

// Track calls Track() on the embedded Tracker if the episode originated
// from the registered task
func (r *registeredTracker) Track(ep timestep.Episode) {
	if ep.Task() == r.task {
		r.Tracker.Track(ep)
	}
}
