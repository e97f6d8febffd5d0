package object

import "errors"

var (
	// ErrNotFound is returned when an identifier was never created, or
	// resolves only to tombstoned records.
	ErrNotFound = errors.New("warrant: object not found")

	// ErrIdentifierConflict is returned when creating an object whose PID
	// already exists in any state. Identifiers are never reused, even
	// after deletion.
	ErrIdentifierConflict = errors.New("warrant: identifier already in use")

	// ErrAlreadyObsoleted is returned when an update targets a record
	// that already has a successor. At most one successor per version.
	ErrAlreadyObsoleted = errors.New("warrant: object already obsoleted")
)
