package replica

import "errors"

var (
	// ErrNotFound is returned when no replica record exists for a
	// (PID, node) pair.
	ErrNotFound = errors.New("warrant: replica not found")

	// ErrDuplicate is returned when registering a replica for a
	// (PID, node) pair that already has one.
	ErrDuplicate = errors.New("warrant: replica already registered")

	// ErrInvalidStatusTransition is returned for a status change the
	// transition table forbids. The record is left unchanged.
	ErrInvalidStatusTransition = errors.New("warrant: invalid replica status transition")
)
