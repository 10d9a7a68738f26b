package storage

import "errors"

// ErrNotFound matches every NotFoundError.
var ErrNotFound = errors.New("document not found")

// NotFoundError is returned when a document doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return ErrNotFound.Error()
	}

	return "document not found: " + e.ID
}

func (e NotFoundError) Unwrap() error {
	return ErrNotFound
}
