package checkpointer

import "testing"

type counter struct {
	saves int
}

func (c *counter) Save() error {
	c.saves++
	return nil
}

func TestNStep(t *testing.T) {
	c := &counter{}
	n, err := NewNStep(3, c)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 10; i++ {
		if err := n.Checkpoint(i); err != nil {
			t.Fatal(err)
		}
	}
	if c.saves != 3 {
		t.Errorf("saves: want(3) have(%v)", c.saves)
	}

	if _, err := NewNStep(0, c); err == nil {
		t.Error("expected error for zero interval")
	}
}
