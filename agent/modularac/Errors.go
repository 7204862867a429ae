package modularac

import "errors"

var (
	// ErrUnsupportedBaseline is returned when a Config names an unknown
	// baseline mode
	ErrUnsupportedBaseline = errors.New("unsupported baseline")

	// ErrAlreadyPrepared is returned when Prepare is called more than
	// once
	ErrAlreadyPrepared = errors.New("model already prepared")

	// ErrNotPrepared is returned when a model is used before Prepare
	ErrNotPrepared = errors.New("model not prepared")

	// ErrNotInitialised is returned when Act is called before Init
	ErrNotInitialised = errors.New("model not initialised")
)
