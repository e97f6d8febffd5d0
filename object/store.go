package object

import (
	"context"
)

// Store defines persistence operations for object records.
//
// Implementations must provide per-identifier atomicity for Obsolete: the
// obsoleted-by check-and-set, the successor insert, and the series
// rebinding happen as one unit, so that of two concurrent updates to the
// same record exactly one succeeds and the other observes
// ErrAlreadyObsoleted.
type Store interface {
	// CreateObject persists a new record. Returns ErrIdentifierConflict
	// if the PID exists in any state, including tombstones. Binds the
	// record's series ID to its PID when present.
	CreateObject(ctx context.Context, r *Record) error

	// GetObject retrieves a record by PID, including tombstones.
	// Returns ErrNotFound if the PID was never created.
	GetObject(ctx context.Context, pid string) (*Record, error)

	// Obsolete atomically marks oldPID as obsoleted by successor.PID,
	// creates the successor record, and rebinds the old record's series
	// ID to the successor. Returns ErrNotFound if oldPID is unknown,
	// ErrAlreadyObsoleted if oldPID already has a successor, and
	// ErrIdentifierConflict if successor.PID already exists.
	Obsolete(ctx context.Context, oldPID string, successor *Record) error

	// SetArchived sets the archived flag. Idempotent; archiving an
	// already-archived record succeeds without change. Returns
	// ErrNotFound for unknown or tombstoned PIDs.
	SetArchived(ctx context.Context, pid string) error

	// Tombstone marks a record deleted. The PID remains reserved.
	// Returns ErrNotFound if the PID was never created. Tombstoning a
	// tombstone succeeds without change.
	Tombstone(ctx context.Context, pid string) error

	// GetSeries returns the PID a series ID was last bound to.
	// Returns ErrNotFound for unknown series IDs.
	GetSeries(ctx context.Context, sid string) (string, error)

	// ListObjects returns records matching the filter. Tombstones are
	// excluded unless the filter requests them.
	ListObjects(ctx context.Context, filter *ListFilter) ([]*Record, error)

	// CountObjects returns the number of records matching the filter.
	CountObjects(ctx context.Context, filter *ListFilter) (int64, error)
}
