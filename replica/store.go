package replica

import (
	"context"
	"time"
)

// Store defines persistence operations for replica records.
//
// UpdateReplicaStatus must check the transition table and write the new
// status as one atomic step per (PID, node) pair: a forbidden transition
// fails with ErrInvalidStatusTransition and leaves the record unchanged.
// Updates to different pairs are independent.
type Store interface {
	// RegisterReplica persists a new replica record. Returns
	// ErrDuplicate if a record for (PID, node) already exists.
	RegisterReplica(ctx context.Context, r *Record) error

	// GetReplica retrieves the record for a (PID, node) pair.
	GetReplica(ctx context.Context, pid, nodeID string) (*Record, error)

	// UpdateReplicaStatus transitions a replica's status and refreshes
	// its verification timestamp. Returns ErrNotFound if no record
	// exists and ErrInvalidStatusTransition for illegal transitions.
	UpdateReplicaStatus(ctx context.Context, pid, nodeID string, status Status, verifiedAt time.Time) error

	// ListReplicas returns replica records matching the filter.
	ListReplicas(ctx context.Context, filter *ListFilter) ([]*Record, error)

	// CountReplicas returns the number of records matching the filter.
	CountReplicas(ctx context.Context, filter *ListFilter) (int64, error)

	// ListReplicasByObject returns all replica records for an object.
	ListReplicasByObject(ctx context.Context, pid string) ([]*Record, error)

	// DeleteReplicasByObject removes all replica records for an object.
	DeleteReplicasByObject(ctx context.Context, pid string) error
}
