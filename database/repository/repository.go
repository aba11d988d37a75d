package repository

import "errors"

var (
	// ErrNotFound is returned when no document matches the id.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when a compare-and-set finds the document in an
	// unexpected state.
	ErrConflict = errors.New("document changed concurrently")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate document")
)
