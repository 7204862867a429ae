package modularac

import "fmt"

// ActionKind classifies an index in a module's action space
type ActionKind int

const (
	// Primitive actions are taken in the world
	Primitive ActionKind = iota

	// Terminate ends the current subtask. It is chosen by the module's
	// policy and is part of the module's action space.
	Terminate

	// Switch ends the current subtask without being chosen by the
	// module's policy, for example when a subtask reaches its timestep
	// limit. It is outside the module's action space.
	Switch
)

func (k ActionKind) String() string {
	switch k {
	case Primitive:
		return "Primitive"
	case Terminate:
		return "Terminate"
	default:
		return "Switch"
	}
}

// Action is an action of a module in a world with some number of
// primitive actions n. Primitive actions have indices [0, n), Terminate
// has index n, and Switch has index n+1.
type Action struct {
	Kind ActionKind
	ID   int
}

// Classify returns the Action with index a in a world with n primitive
// actions
func Classify(a, n int) Action {
	switch {
	case a < n:
		return Action{Primitive, a}
	case a == n:
		return Action{Kind: Terminate}
	default:
		return Action{Kind: Switch}
	}
}

// Index returns the index of the Action in a world with n primitive
// actions
func (a Action) Index(n int) int {
	switch a.Kind {
	case Primitive:
		return a.ID
	case Terminate:
		return n
	default:
		return n + 1
	}
}

// InModuleSpace returns whether the Action can be chosen by a module's
// policy, and so can be trained on
func (a Action) InModuleSpace() bool {
	return a.Kind != Switch
}

func (a Action) String() string {
	if a.Kind == Primitive {
		return fmt.Sprintf("%v(%v)", a.Kind, a.ID)
	}
	return a.Kind.String()
}
