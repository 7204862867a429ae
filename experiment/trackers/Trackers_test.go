package trackers

import (
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/modularac/experiment/tracker"
	"github.com/samuelfneumann/modularac/timestep"
)

func episode(task int, rewards ...float64) timestep.Episode {
	ep := make(timestep.Episode, len(rewards))
	for i, r := range rewards {
		ep[i].M1.Task = task
		ep[i].R = r
	}
	return ep
}

func TestReturn(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	r := NewReturn(filename)

	r.Track(episode(0, 0, 0, 1))
	r.Track(episode(1, 1, 1))
	r.Track(episode(0))

	want := []float64{1, 2, 0}
	if err := r.Save(); err != nil {
		t.Fatal(err)
	}
	data, err := tracker.LoadData(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != len(want) {
		t.Fatalf("returns: want(%v) have(%v)", want, data)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("return %v: want(%v) have(%v)", i, want[i], data[i])
		}
	}

	if m := r.Mean(2); m != 1 {
		t.Errorf("mean: want(1) have(%v)", m)
	}
	if m := r.Mean(10); m != 1 {
		t.Errorf("mean: want(1) have(%v)", m)
	}
}

func TestRegister(t *testing.T) {
	lengths := NewEpisodeLength(filepath.Join(t.TempDir(), "lengths.bin"))
	tr := tracker.Register(lengths, 1)

	tr.Track(episode(0, 0, 0, 0))
	tr.Track(episode(1, 0, 0))
	tr.Track(episode(2, 0))

	data := lengths.Data()
	if len(data) != 1 || data[0] != 2 {
		t.Errorf("lengths: want([2]) have(%v)", data)
	}
}
