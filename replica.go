package warrant

import (
	"context"
	"sort"
	"time"

	"github.com/datafed/warrant/replica"
)

// Tracker maintains per-node replica status for objects. Status writes go
// through the transition table enforced by the store; the tracker adds
// timestamp stamping and the staleness view.
type Tracker struct {
	store      replica.Store
	clock      func() time.Time
	staleAfter time.Duration
}

// NewTracker returns a tracker over the given store. staleAfter bounds
// how old a verification may be for CompleteReplicas.
func NewTracker(s replica.Store, clock func() time.Time, staleAfter time.Duration) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{store: s, clock: clock, staleAfter: staleAfter}
}

// Register records a new replication target in the QUEUED state. One
// record per (PID, node) pair.
func (t *Tracker) Register(ctx context.Context, pid, nodeID string) (*replica.Record, error) {
	now := t.clock()
	r := &replica.Record{
		PID:          pid,
		NodeID:       nodeID,
		Status:       replica.StatusQueued,
		LastVerified: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := t.store.RegisterReplica(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateStatus transitions a replica and refreshes its verification
// timestamp. Writing the current status back is a legal no-op transition
// used by audits to record a fresh verification.
func (t *Tracker) UpdateStatus(ctx context.Context, pid, nodeID string, status replica.Status) error {
	return t.store.UpdateReplicaStatus(ctx, pid, nodeID, status, t.clock())
}

// Get retrieves the replica record for a (PID, node) pair.
func (t *Tracker) Get(ctx context.Context, pid, nodeID string) (*replica.Record, error) {
	return t.store.GetReplica(ctx, pid, nodeID)
}

// CompleteReplicas returns the node IDs holding a COMPLETED replica of
// the object whose last verification is within the staleness bound. The
// result is sorted for stable output.
func (t *Tracker) CompleteReplicas(ctx context.Context, pid string) ([]string, error) {
	recs, err := t.store.ListReplicasByObject(ctx, pid)
	if err != nil {
		return nil, err
	}
	cutoff := t.clock().Add(-t.staleAfter)
	nodes := make([]string, 0, len(recs))
	for _, r := range recs {
		if r.Status != replica.StatusCompleted {
			continue
		}
		if t.staleAfter > 0 && r.LastVerified.Before(cutoff) {
			continue
		}
		nodes = append(nodes, r.NodeID)
	}
	sort.Strings(nodes)
	return nodes, nil
}
