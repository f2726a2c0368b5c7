package domain

import "errors"

var (
	// ErrValidation signals caller-correctable input: a missing field, an
	// illegal status transition, insufficient inventory, a bad refund amount.
	ErrValidation = errors.New("order: validation failed")
	// ErrNotFound indicates the referenced order or product does not exist.
	ErrNotFound = errors.New("order: not found")
	// ErrConflict indicates a concurrent writer won a guarded update.
	ErrConflict = errors.New("order: conflict")
)
