package checkpointer

import "fmt"

// nStep implements checkpointing every N updates
type nStep struct {
	interval int
	object   Saver // Object to save
}

// NewNStep returns a checkpointer that checkpoints every n updates.
func NewNStep(n int, object Saver) (Checkpointer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("newnstep: interval must be positive, got %v",
			n)
	}
	return &nStep{
		interval: n,
		object:   object,
	}, nil
}

// Checkpoint checkpoints the Checkpointer's tracked object by calling
// its Save() method
func (n *nStep) Checkpoint(updates int) error {
	if updates%n.interval == 0 {
		return n.object.Save()
	}
	return nil
}
