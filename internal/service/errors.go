package service

import "errors"

// Error taxonomy of the analysis pipeline. Handlers map these onto the
// public API's wire codes; anything unrecognized maps to "internal".
var (
	// ErrInvalidArgument marks client input that fails validation before any
	// processing. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrModelUnavailable marks exhaustion of both model tiers. The request
	// fails; no empty result is fabricated at this layer.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrStorage marks a failed primary result write. The analysis is
	// considered lost, since the client holds no durable copy.
	ErrStorage = errors.New("storage failure")

	// ErrNotFound marks a record absent from the caller's namespace.
	ErrNotFound = errors.New("not found")
)
