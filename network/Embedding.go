package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Embed is a learnable lookup table which maps integer ids in
// [0, Vocab) to vectors of length Dim. A lookup is computed as the
// product of a one-hot matrix of ids and the table, so the gradient of
// the table is non-zero only in the rows of the ids looked up.
type Embed struct {
	table Key
	vocab int
	dim   int
}

// NewEmbed creates a new embedding table and allocates it in s
func NewEmbed(s *Store, module, vocab, dim int, init G.InitWFn) (*Embed,
	error) {
	if vocab <= 0 || dim <= 0 {
		return nil, fmt.Errorf("newembed: vocabulary and dimension must be "+
			"positive, got (%v, %v)", vocab, dim)
	}

	e := &Embed{
		table: Key{Embedding, module, "table"},
		vocab: vocab,
		dim:   dim,
	}
	if _, err := s.Add(e.table, init, vocab, dim); err != nil {
		return nil, fmt.Errorf("newembed: %v", err)
	}

	return e, nil
}

// Fwd adds the lookup of ids to the graph of ids, where ids is a
// one-hot matrix of shape (batch, Vocab). The output node of shape
// (batch, Dim) and the learnable table node are returned.
func (e *Embed) Fwd(s *Store, ids *G.Node) (*G.Node, *G.Node, error) {
	if !ids.IsMatrix() || ids.Shape()[1] != e.vocab {
		return nil, nil, fmt.Errorf("fwd: ids must be a one-hot matrix "+
			"with %v columns, got shape %v", e.vocab, ids.Shape())
	}

	table, err := s.Node(ids.Graph(), e.table)
	if err != nil {
		return nil, nil, fmt.Errorf("fwd: %v", err)
	}

	out, err := G.Mul(ids, table)
	if err != nil {
		return nil, nil, fmt.Errorf("fwd: %v", err)
	}
	return out, table, nil
}

// Key returns the key of the embedding table
func (e *Embed) Key() Key {
	return e.table
}

// Vocab returns the size of the vocabulary
func (e *Embed) Vocab() int {
	return e.vocab
}

// Dim returns the dimension of each embedding vector
func (e *Embed) Dim() int {
	return e.dim
}

// OneHot fills dst, a (len(ids), vocab) row-major matrix, with the
// one-hot encoding of ids. Ids outside [0, vocab) are encoded as rows
// of zeroes. If dst is nil, a new tensor is allocated.
func OneHot(dst *tensor.Dense, ids []int, rows, vocab int) *tensor.Dense {
	if dst == nil {
		dst = tensor.New(
			tensor.WithShape(rows, vocab),
			tensor.WithBacking(make([]float64, rows*vocab)),
		)
	}

	data := dst.Data().([]float64)
	for i := range data {
		data[i] = 0
	}
	for i, id := range ids {
		if id >= 0 && id < vocab {
			data[i*vocab+id] = 1
		}
	}
	return dst
}
