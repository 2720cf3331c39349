package tether

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a message, option, or session identifier
	// failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNotConnected indicates a transport operation that needs a live
	// connection was called before Connect or after Disconnect.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates Connect was called on a live transport.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)
