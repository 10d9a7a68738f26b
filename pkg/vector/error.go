package vector

import "errors"

var (
	// ErrConnection is returned when the vector store cannot be reached.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is returned when an embedding does not have the
	// dimensionality the store was created with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
