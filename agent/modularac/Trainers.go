package modularac

import (
	"fmt"

	"github.com/samuelfneumann/modularac/environment"
	"github.com/samuelfneumann/modularac/network"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// minCapacity is the smallest number of rows in any graph
const minCapacity = 2

// policy is an inference graph of an actor, used to select actions
type policy struct {
	actor   *Actor
	in      *inputs
	vm      G.VM
	logProb G.Value
}

// newPolicy builds a new inference graph of actor with capacity rows
func newPolicy(s *network.Store, actor *Actor, capacity, features int) (
	*policy, error) {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	g := G.NewGraph()

	in, err := newInputs(g, s, capacity, features, actor.embed)
	if err != nil {
		return nil, fmt.Errorf("newpolicy: %v", err)
	}

	logProbs, _, err := actor.fwd(s, in)
	if err != nil {
		return nil, fmt.Errorf("newpolicy: %v", err)
	}

	p := &policy{actor: actor, in: in}
	G.Read(logProbs, &p.logProb)
	p.vm = G.NewTapeMachine(g)

	return p, nil
}

// logProbs returns the log-probabilities of each action in each state,
// one row per state.
func (p *policy) logProbs(states []environment.State,
	args []int) ([][]float64, error) {
	if err := p.in.set(states, args); err != nil {
		return nil, fmt.Errorf("logprobs: %v", err)
	}
	if err := p.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("logprobs: %v", err)
	}
	defer p.vm.Reset()

	data := p.logProb.Data().([]float64)
	actions := len(data) / p.in.capacity

	out := make([][]float64, len(states))
	for i := range out {
		out[i] = make([]float64, actions)
		copy(out[i], data[i*actions:(i+1)*actions])
	}
	return out, nil
}

// actorTrainer is a training graph of an actor. The objective is the
// advantage-weighted log-likelihood of the chosen actions plus an
// entropy regularizer:
//
//	-Σ log π(a|s) A + β Σ π(·|s) log π(·|s)
//
// Advantages are inputs to the graph, so no gradient flows into the
// critic.
type actorTrainer struct {
	actor    *Actor
	in       *inputs
	vm       G.VM
	nActions int

	actionMask  *G.Node
	actionMaskT *tensor.Dense
	advantage   *G.Node
	advantageT  *tensor.Dense
	rowMask     *G.Node
	rowMaskT    *tensor.Dense

	loss  G.Value
	grads []G.Value
}

// newActorTrainer builds a new training graph of actor with capacity
// rows and entropy regularization entropyReg
func newActorTrainer(s *network.Store, actor *Actor, capacity, features int,
	entropyReg float64) (*actorTrainer, error) {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	g := G.NewGraph()

	in, err := newInputs(g, s, capacity, features, actor.embed)
	if err != nil {
		return nil, fmt.Errorf("newactortrainer: %v", err)
	}

	logProbs, learnables, err := actor.fwd(s, in)
	if err != nil {
		return nil, fmt.Errorf("newactortrainer: %v", err)
	}
	nActions := logProbs.Shape()[1]

	actionMask, actionMaskT := newMatrixInput(g, capacity, nActions,
		"actionMask")
	rowMask, rowMaskT := newMatrixInput(g, capacity, nActions, "rowMask")
	advantage, advantageT := newVectorInput(g, capacity, "advantage")

	// Log-likelihood of chosen actions weighted by advantage
	chosen := G.Must(G.HadamardProd(actionMask, logProbs))
	chosen = G.Must(G.Sum(chosen, 1))
	pg := G.Must(G.Sum(G.Must(G.HadamardProd(chosen, advantage))))

	// Negative entropy of each valid row
	probs := G.Must(G.Exp(logProbs))
	negEntropy := G.Must(G.HadamardProd(probs, logProbs))
	negEntropy = G.Must(G.HadamardProd(rowMask, negEntropy))
	negEntropy = G.Must(G.Sum(negEntropy))

	beta := G.NewConstant(entropyReg, G.WithName("entropyReg"))
	loss := G.Must(G.Add(
		G.Must(G.Neg(pg)),
		G.Must(G.Mul(beta, negEntropy)),
	))

	grads, err := G.Grad(loss, learnables...)
	if err != nil {
		return nil, fmt.Errorf("newactortrainer: could not compute "+
			"gradient: %v", err)
	}

	t := &actorTrainer{
		actor:       actor,
		in:          in,
		nActions:    nActions,
		actionMask:  actionMask,
		actionMaskT: actionMaskT,
		advantage:   advantage,
		advantageT:  advantageT,
		rowMask:     rowMask,
		rowMaskT:    rowMaskT,
		grads:       make([]G.Value, len(grads)),
	}
	G.Read(loss, &t.loss)
	for i := range grads {
		G.Read(grads[i], &t.grads[i])
	}
	t.vm = G.NewTapeMachine(g)

	return t, nil
}

// run computes the loss of the actor on a batch and the gradient of
// the loss with respect to each of the actor's parameters, in the order
// of Actor.Keys.
func (t *actorTrainer) run(states []environment.State, args, actions []int,
	advantages []float64) (float64, [][]float64, error) {
	if err := t.in.set(states, args); err != nil {
		return 0, nil, fmt.Errorf("run: %v", err)
	}

	actionMask := zeroed(t.actionMaskT)
	rowMask := zeroed(t.rowMaskT)
	advantage := zeroed(t.advantageT)
	for i, a := range actions {
		if a < 0 || a >= t.nActions {
			return 0, nil, fmt.Errorf("run: action %v outside of module "+
				"action space [0, %v)", a, t.nActions)
		}
		actionMask[i*t.nActions+a] = 1
		for j := 0; j < t.nActions; j++ {
			rowMask[i*t.nActions+j] = 1
		}
		advantage[i] = advantages[i]
	}

	if err := G.Let(t.actionMask, t.actionMaskT); err != nil {
		return 0, nil, fmt.Errorf("run: %v", err)
	}
	if err := G.Let(t.rowMask, t.rowMaskT); err != nil {
		return 0, nil, fmt.Errorf("run: %v", err)
	}
	if err := G.Let(t.advantage, t.advantageT); err != nil {
		return 0, nil, fmt.Errorf("run: %v", err)
	}

	if err := t.vm.RunAll(); err != nil {
		return 0, nil, fmt.Errorf("run: %v", err)
	}
	defer t.vm.Reset()

	return scalar(t.loss), copyValues(t.grads), nil
}

// criticTrainer is a training graph of a critic. The objective is the
// squared advantage Σ (r - v(s))².
type criticTrainer struct {
	critic *Critic
	in     *inputs
	vm     G.VM

	returns  *G.Node
	returnsT *tensor.Dense
	rowMask  *G.Node
	rowMaskT *tensor.Dense

	value G.Value
	loss  G.Value
	grads []G.Value
}

// newCriticTrainer builds a new training graph of critic with capacity
// rows
func newCriticTrainer(s *network.Store, critic *Critic, capacity,
	features int) (*criticTrainer, error) {
	if capacity < minCapacity {
		capacity = minCapacity
	}
	g := G.NewGraph()

	in, err := newInputs(g, s, capacity, features, critic.embed)
	if err != nil {
		return nil, fmt.Errorf("newcritictrainer: %v", err)
	}

	value, learnables, err := critic.fwd(s, in)
	if err != nil {
		return nil, fmt.Errorf("newcritictrainer: %v", err)
	}

	returns, returnsT := newVectorInput(g, capacity, "returns")
	rowMask, rowMaskT := newVectorInput(g, capacity, "rowMask")

	advantage := G.Must(G.Sub(returns, value))
	advantage = G.Must(G.HadamardProd(rowMask, advantage))
	loss := G.Must(G.Sum(G.Must(G.Square(advantage))))

	grads, err := G.Grad(loss, learnables...)
	if err != nil {
		return nil, fmt.Errorf("newcritictrainer: could not compute "+
			"gradient: %v", err)
	}

	t := &criticTrainer{
		critic:   critic,
		in:       in,
		returns:  returns,
		returnsT: returnsT,
		rowMask:  rowMask,
		rowMaskT: rowMaskT,
		grads:    make([]G.Value, len(grads)),
	}
	G.Read(value, &t.value)
	G.Read(loss, &t.loss)
	for i := range grads {
		G.Read(grads[i], &t.grads[i])
	}
	t.vm = G.NewTapeMachine(g)

	return t, nil
}

// run computes the values of states, the loss of the critic on a batch,
// and the gradient of the loss with respect to each of the critic's
// parameters, in the order of Critic.Keys.
func (t *criticTrainer) run(states []environment.State, args []int,
	returns []float64) ([]float64, float64, [][]float64, error) {
	if err := t.in.set(states, args); err != nil {
		return nil, 0, nil, fmt.Errorf("run: %v", err)
	}

	returnsD := zeroed(t.returnsT)
	rowMask := zeroed(t.rowMaskT)
	for i, r := range returns {
		returnsD[i] = r
		rowMask[i] = 1
	}

	if err := G.Let(t.returns, t.returnsT); err != nil {
		return nil, 0, nil, fmt.Errorf("run: %v", err)
	}
	if err := G.Let(t.rowMask, t.rowMaskT); err != nil {
		return nil, 0, nil, fmt.Errorf("run: %v", err)
	}

	if err := t.vm.RunAll(); err != nil {
		return nil, 0, nil, fmt.Errorf("run: %v", err)
	}
	defer t.vm.Reset()

	values := make([]float64, len(states))
	copy(values, t.value.Data().([]float64))

	return values, scalar(t.loss), copyValues(t.grads), nil
}

// scalar returns the float64 held by a scalar Value
func scalar(v G.Value) float64 {
	switch data := v.Data().(type) {
	case float64:
		return data
	case []float64:
		return data[0]
	default:
		panic(fmt.Sprintf("scalar: unexpected value type %T", data))
	}
}

// copyValues copies the data of each Value
func copyValues(values []G.Value) [][]float64 {
	out := make([][]float64, len(values))
	for i, v := range values {
		data := v.Data().([]float64)
		out[i] = make([]float64, len(data))
		copy(out[i], data)
	}
	return out
}
