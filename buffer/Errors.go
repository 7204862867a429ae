package buffer

import "errors"

// BufferError implements errors unique to an experience buffer
type BufferError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *BufferError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *BufferError) Unwrap() error {
	return e.Err
}

var errInsufficientSamples = errors.New("insufficient samples in buffer")

// IsInsufficientSamples returns whether or not an error reports that
// too few transitions in the buffer satisfied a selection.
func IsInsufficientSamples(err error) bool {
	return errors.Is(err, errInsufficientSamples)
}
