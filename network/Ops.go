package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis. The maximum is subtracted before
// exponentiating for numerical stability.
func LogSumExp(logits *G.Node, along int) (*G.Node, error) {
	max, err := G.Max(logits, along)
	if err != nil {
		return nil, fmt.Errorf("logsumexp: %v", err)
	}

	exponent, err := G.BroadcastSub(logits, max, nil, []byte{1})
	if err != nil {
		return nil, fmt.Errorf("logsumexp: %v", err)
	}

	exponent, err = G.Exp(exponent)
	if err != nil {
		return nil, fmt.Errorf("logsumexp: %v", err)
	}

	sum, err := G.Sum(exponent, along)
	if err != nil {
		return nil, fmt.Errorf("logsumexp: %v", err)
	}

	log, err := G.Log(sum)
	if err != nil {
		return nil, fmt.Errorf("logsumexp: %v", err)
	}

	return G.Add(max, log)
}

// LogSoftmax returns the log of the softmax of a (batch, n) matrix of
// logits, computed row-wise.
func LogSoftmax(logits *G.Node) (*G.Node, error) {
	if !logits.IsMatrix() {
		return nil, fmt.Errorf("logsoftmax: logits must be a matrix")
	}

	lse, err := LogSumExp(logits, 1)
	if err != nil {
		return nil, fmt.Errorf("logsoftmax: %v", err)
	}

	return G.BroadcastSub(logits, lse, nil, []byte{1})
}
