package eventlog

import (
	"context"
	"time"

	"github.com/datafed/warrant/id"
)

// Store defines persistence operations for the event log.
type Store interface {
	// CreateEvent persists a new event log entry.
	CreateEvent(ctx context.Context, e *Entry) error

	// GetEvent retrieves an event log entry by ID.
	GetEvent(ctx context.Context, eventID id.EventID) (*Entry, error)

	// ListEvents returns entries matching the filter.
	ListEvents(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountEvents returns the number of entries matching the filter.
	CountEvents(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeEvents removes entries older than the given time.
	PurgeEvents(ctx context.Context, before time.Time) (int64, error)

	// DeleteEventsByObject removes all entries for an object.
	DeleteEventsByObject(ctx context.Context, pid string) error
}
