package initwfn

import (
	"encoding/json"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gorgonia.org/tensor"
)

func TestUnmarshalJSON(t *testing.T) {
	var w InitWFn
	data := []byte(`{"Type": "Constant", "Config": {"Value": 0.5}}`)
	if err := json.Unmarshal(data, &w); err != nil {
		t.Fatal(err)
	}
	if w.Type != Constant {
		t.Errorf("type: want(%v) have(%v)", Constant, w.Type)
	}

	values := w.InitWFn()(tensor.Float64, 2, 2).([]float64)
	for i, v := range values {
		if v != 0.5 {
			t.Errorf("value %v: want(0.5) have(%v)", i, v)
		}
	}

	if err := json.Unmarshal([]byte(`{"Type": "Orthogonal"}`),
		&w); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestSeededReproducible(t *testing.T) {
	glorotU, _ := NewGlorotU(1.0)
	glorotN, _ := NewGlorotN(1.0)
	heU, _ := NewHeU(math.Sqrt2)
	heN, _ := NewHeN(math.Sqrt2)
	gaussian, _ := NewGaussian(0, 0.1)
	uniform, _ := NewUniform(-1, 1)

	tests := []*InitWFn{glorotU, glorotN, heU, heN, gaussian, uniform}
	for _, w := range tests {
		init := w.Seeded(7)
		first := init(tensor.Float64, 3, 4).([]float64)
		second := init(tensor.Float64, 4, 2).([]float64)

		again := w.Seeded(7)
		if !floats.Equal(first, again(tensor.Float64, 3, 4).([]float64)) {
			t.Errorf("%v: first draw differs for the same seed", w.Type)
		}
		if !floats.Equal(second, again(tensor.Float64, 4, 2).([]float64)) {
			t.Errorf("%v: second draw differs for the same seed", w.Type)
		}

		other := w.Seeded(8)(tensor.Float64, 3, 4).([]float64)
		if floats.Equal(first, other) {
			t.Errorf("%v: different seeds gave the same weights", w.Type)
		}
	}
}

func TestGlorotUBounds(t *testing.T) {
	w, err := NewGlorotU(2.0)
	if err != nil {
		t.Fatal(err)
	}

	bound := 2.0 * math.Sqrt(6.0/float64(10+30))
	values := w.Seeded(1)(tensor.Float64, 10, 30).([]float64)
	if len(values) != 300 {
		t.Fatalf("size: want(300) have(%v)", len(values))
	}
	for i, v := range values {
		if math.Abs(v) > bound {
			t.Errorf("value %v: %v outside [-%v, %v]", i, v, bound, bound)
		}
	}

	if values := w.Seeded(1)(tensor.Float32, 2, 2); values == nil {
		t.Error("float32 initialization returned nil")
	}
	if values := w.Seeded(1)(tensor.Int, 2, 2); values != nil {
		t.Errorf("int initialization: want nil have %T", values)
	}
}
