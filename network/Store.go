package network

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Kind denotes the kind of module that owns a parameter
type Kind int

const (
	Actor Kind = iota
	Critic
	Embedding
)

func (k Kind) String() string {
	switch k {
	case Actor:
		return "actor"
	case Critic:
		return "critic"
	case Embedding:
		return "embed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Key uniquely identifies a parameter in a Store by the kind of module
// that owns it, the id of that module, and the name of the parameter
// within the module.
type Key struct {
	Kind   Kind
	Module int
	Param  string
}

func (k Key) String() string {
	return fmt.Sprintf("%v_%d/%s", k.Kind, k.Module, k.Param)
}

// Less returns whether k sorts before other
func (k Key) Less(other Key) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	if k.Module != other.Module {
		return k.Module < other.Module
	}
	return k.Param < other.Param
}

// Store is an arena that owns every learnable parameter of a model. All
// computational graphs that use a parameter bind the same tensor from
// the Store, so an update to a parameter is seen by every graph.
type Store struct {
	params map[Key]*tensor.Dense
	keys   []Key
}

// NewStore returns a new, empty Store
func NewStore() *Store {
	return &Store{
		params: make(map[Key]*tensor.Dense),
	}
}

// Add allocates a new parameter of the given shape, initialized with
// init, and adds it to the Store.
func (s *Store) Add(k Key, init G.InitWFn, shape ...int) (*tensor.Dense,
	error) {
	if _, ok := s.params[k]; ok {
		return nil, fmt.Errorf("add: parameter %v already exists", k)
	}
	if len(shape) != 2 {
		return nil, fmt.Errorf("add: parameters must be matrices, got shape "+
			"%v for %v", shape, k)
	}

	backing, ok := init(tensor.Float64, shape...).([]float64)
	if !ok {
		return nil, fmt.Errorf("add: initializer for %v did not produce "+
			"float64 values", k)
	}

	t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
	s.params[k] = t
	s.insertKey(k)

	return t, nil
}

// insertKey adds k to the sorted list of keys
func (s *Store) insertKey(k Key) {
	i := sort.Search(len(s.keys), func(i int) bool {
		return !s.keys[i].Less(k)
	})
	s.keys = append(s.keys, Key{})
	copy(s.keys[i+1:], s.keys[i:])
	s.keys[i] = k
}

// Get returns the parameter stored under k
func (s *Store) Get(k Key) (*tensor.Dense, bool) {
	t, ok := s.params[k]
	return t, ok
}

// Data returns the backing data of the parameter stored under k. The
// returned slice aliases the parameter.
func (s *Store) Data(k Key) ([]float64, error) {
	t, ok := s.params[k]
	if !ok {
		return nil, fmt.Errorf("data: no parameter %v", k)
	}
	return t.Data().([]float64), nil
}

// Keys returns the keys of all parameters in the Store in a stable,
// sorted order.
func (s *Store) Keys() []Key {
	keys := make([]Key, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Len returns the number of parameters in the Store
func (s *Store) Len() int {
	return len(s.keys)
}

// Node returns a new learnable node in g which is bound to the
// parameter stored under k.
func (s *Store) Node(g *G.ExprGraph, k Key) (*G.Node, error) {
	t, ok := s.params[k]
	if !ok {
		return nil, fmt.Errorf("node: no parameter %v", k)
	}

	return G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(t.Shape()...),
		G.WithName(k.String()),
		G.WithValue(t),
	), nil
}

// storedParam is the serialized form of a single parameter
type storedParam struct {
	Key   Key
	Shape []int
	Data  []float64
}

// GobEncode implements the gob.GobEncoder interface
func (s *Store) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	if err := enc.Encode(len(s.keys)); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode number of "+
			"parameters: %v", err)
	}

	for _, k := range s.keys {
		t := s.params[k]
		p := storedParam{
			Key:   k,
			Shape: []int(t.Shape().Clone()),
			Data:  t.Data().([]float64),
		}
		if err := enc.Encode(p); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode %v: %v", k,
				err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface.
//
// Parameters that already exist in the Store are overwritten in place
// so that graphs bound to them see the decoded values. Parameters that
// do not yet exist are added.
func (s *Store) GobDecode(in []byte) error {
	if s.params == nil {
		s.params = make(map[Key]*tensor.Dense)
	}
	dec := gob.NewDecoder(bytes.NewReader(in))

	var n int
	if err := dec.Decode(&n); err != nil {
		return fmt.Errorf("gobdecode: could not decode number of "+
			"parameters: %v", err)
	}

	for i := 0; i < n; i++ {
		var p storedParam
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("gobdecode: could not decode parameter %v: %v",
				i, err)
		}

		t, ok := s.params[p.Key]
		if !ok {
			s.params[p.Key] = tensor.New(
				tensor.WithShape(p.Shape...),
				tensor.WithBacking(p.Data),
			)
			s.insertKey(p.Key)
			continue
		}

		if !t.Shape().Eq(tensor.Shape(p.Shape)) {
			return fmt.Errorf("gobdecode: shape mismatch for %v"+
				"\n\twant(%v)\n\thave(%v)", p.Key, t.Shape(), p.Shape)
		}
		copy(t.Data().([]float64), p.Data)
	}

	return nil
}
