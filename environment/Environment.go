// Package environment outlines the interfaces that worlds and their
// states must satisfy to be driven by a modular agent
package environment

// World describes the static properties of an environment that an agent
// needs to construct its networks.
type World interface {
	// NActions returns the number of primitive actions in the world
	NActions() int

	// NFeatures returns the width of the feature vector of each State
	NFeatures() int
}

// State is a single, immutable observation of a World
type State interface {
	// Features returns the feature vector of the state. The returned
	// slice has length World.NFeatures() and should not be modified.
	Features() []float64
}
