// Package replica defines per-node replica records and the replication
// status transition table.
package replica

import (
	"fmt"
	"time"

	"github.com/datafed/warrant/id"
)

// Status is the replication state of one node's copy of an object.
// Values are the federation's System Metadata vocabulary and round-trip
// through XML and storage unchanged.
type Status string

const (
	// StatusQueued means replication to the node has been scheduled.
	StatusQueued Status = "queued"

	// StatusRequested means the node has been asked to pull the object.
	StatusRequested Status = "requested"

	// StatusCompleted means the node holds a verified copy.
	StatusCompleted Status = "completed"

	// StatusInvalidated means a completed copy failed an integrity check.
	StatusInvalidated Status = "invalidated"

	// StatusFailed means the replication attempt did not complete.
	StatusFailed Status = "failed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRequested, StatusCompleted, StatusInvalidated, StatusFailed:
		return true
	default:
		return false
	}
}

// ParseStatus parses a System Metadata replication status string.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("replica: unknown replication status %q", v)
	}
	return s, nil
}

// CanTransition reports whether a status change is legal. Transitions
// move forward along queued < requested < completed and may skip steps,
// with two exceptions: failed replicas may be re-queued, and completed
// replicas may be invalidated after a failed integrity check. A failed
// attempt may be recorded from queued or requested. A same-status update
// is legal and serves to refresh the verification timestamp.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusQueued:
		return to == StatusRequested || to == StatusCompleted || to == StatusFailed
	case StatusRequested:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted:
		return to == StatusInvalidated
	case StatusFailed:
		return to == StatusQueued
	default: // invalidated is terminal
		return false
	}
}

// Record tracks one member node's copy of an object. At most one record
// exists per (PID, node) pair.
type Record struct {
	ID           id.ReplicaID `json:"id" db:"id"`
	PID          string       `json:"pid" db:"pid"`
	NodeID       string       `json:"node_id" db:"node_id"`
	Status       Status       `json:"status" db:"status"`
	LastVerified time.Time    `json:"last_verified" db:"last_verified"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// ListFilter contains filters for listing replica records.
type ListFilter struct {
	PID            string     `json:"pid,omitempty"`
	NodeID         string     `json:"node_id,omitempty"`
	Status         Status     `json:"status,omitempty"`
	VerifiedAfter  *time.Time `json:"verified_after,omitempty"`
	VerifiedBefore *time.Time `json:"verified_before,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Offset         int        `json:"offset,omitempty"`
}
