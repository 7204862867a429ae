// Package checkpointer implements functionality for periodically
// saving models during an experiment
package checkpointer

// Saver is an object which can save itself to disk
type Saver interface {
	Save() error
}

// Checkpointer checkpoints a Saver based on the number of updates
// performed in an experiment
type Checkpointer interface {
	Checkpoint(updates int) error
}
