package repositories

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrBadReference indicates a write referenced a foreign hash or id that
	// does not exist. It is a client input error, not a storage bug.
	ErrBadReference = errors.New("bad reference")
)
