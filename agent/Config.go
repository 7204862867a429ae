package agent

// Config represents a configuration for creating a Model
type Config interface {
	// CreateModel creates the Model that the config describes
	CreateModel() (Model, error)

	// Type returns the Type of Model described by the Config
	Type() Type

	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error
}
