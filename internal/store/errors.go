package store

import "errors"

var (
	// ErrNotFound is returned by point lookups when no document matches.
	ErrNotFound = errors.New("document not found")
)
