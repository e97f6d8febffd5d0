package warrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/datafed/warrant/object"
)

// maxChainHops bounds the obsolescence chain walk during series
// resolution. The chain is acyclic by construction, so the bound only
// guards against corrupted data.
const maxChainHops = 1000

// StateMachine drives object lifecycle transitions against a store. The
// store provides atomicity for the obsolescence check-and-set; the state
// machine validates transitions and stamps record metadata.
type StateMachine struct {
	store object.Store
	clock func() time.Time
}

// NewStateMachine returns a state machine over the given store.
func NewStateMachine(s object.Store, clock func() time.Time) *StateMachine {
	if clock == nil {
		clock = time.Now
	}
	return &StateMachine{store: s, clock: clock}
}

// Create ingests a new object version. The record enters the ACTIVE
// state. Identifiers are permanent: a PID that was ever used, even by a
// since-deleted object, cannot be claimed again.
func (m *StateMachine) Create(ctx context.Context, r *object.Record) error {
	if err := validateNewRecord(r); err != nil {
		return err
	}
	now := m.clock()
	r.CreatedAt = now
	r.ModifiedAt = now
	if r.SerialVersion == 0 {
		r.SerialVersion = 1
	}
	return m.store.CreateObject(ctx, r)
}

// Update creates a successor version of oldPID. The old record moves to
// OBSOLETED and its series ID, if any, rebinds to the successor in the
// same atomic step. Of two concurrent updates to the same record exactly
// one wins; the loser gets ErrAlreadyObsoleted.
func (m *StateMachine) Update(ctx context.Context, oldPID string, successor *object.Record) (*object.Record, error) {
	if err := validateNewRecord(successor); err != nil {
		return nil, err
	}
	if successor.PID == oldPID {
		return nil, fmt.Errorf("%w: successor reuses %q", object.ErrIdentifierConflict, oldPID)
	}

	old, err := m.store.GetObject(ctx, oldPID)
	if err != nil {
		return nil, err
	}
	switch object.StateOf(old) {
	case object.StateDeleted:
		return nil, fmt.Errorf("%w: %q is deleted", object.ErrNotFound, oldPID)
	case object.StateObsoleted:
		return nil, fmt.Errorf("%w: %q", object.ErrAlreadyObsoleted, oldPID)
	}

	now := m.clock()
	successor.Obsoletes = oldPID
	if successor.SeriesID == "" {
		successor.SeriesID = old.SeriesID
	}
	successor.SerialVersion = old.SerialVersion + 1
	successor.CreatedAt = now
	successor.ModifiedAt = now

	// The store re-checks obsolescence under its own lock; the state
	// check above only gives callers an early, friendlier failure.
	if err := m.store.Obsolete(ctx, oldPID, successor); err != nil {
		return nil, err
	}
	return successor, nil
}

// Archive marks an object archived. Legal from ACTIVE and OBSOLETED,
// idempotent from ARCHIVED. Archived objects keep serving metadata and
// policy but their content is withdrawn.
func (m *StateMachine) Archive(ctx context.Context, pid string) error {
	r, err := m.store.GetObject(ctx, pid)
	if err != nil {
		return err
	}
	if object.StateOf(r) == object.StateDeleted {
		return fmt.Errorf("%w: %q is deleted", object.ErrNotFound, pid)
	}
	return m.store.SetArchived(ctx, pid)
}

// Delete tombstones an object. Legal from any live state and idempotent
// on tombstones. The identifier stays reserved forever.
func (m *StateMachine) Delete(ctx context.Context, pid string) error {
	return m.store.Tombstone(ctx, pid)
}

// Get retrieves a record by PID, including tombstones.
func (m *StateMachine) Get(ctx context.Context, pid string) (*object.Record, error) {
	return m.store.GetObject(ctx, pid)
}

// State reports the lifecycle state of a PID.
func (m *StateMachine) State(ctx context.Context, pid string) (object.State, error) {
	r, err := m.store.GetObject(ctx, pid)
	if err != nil {
		return "", err
	}
	return object.StateOf(r), nil
}

// Resolve maps an identifier to a record. A PID resolves to its exact
// version, whatever its state. A series ID resolves to the head of the
// obsolescence chain: the walk starts at the bound version and advances
// while the current record is obsoleted or deleted, returning the first
// ACTIVE or ARCHIVED version. Returns ErrNotFound if the whole chain is
// gone.
func (m *StateMachine) Resolve(ctx context.Context, identifier string) (*object.Record, error) {
	if r, err := m.store.GetObject(ctx, identifier); err == nil {
		return r, nil
	} else if err != nil && !isNotFound(err) {
		return nil, err
	}

	pid, err := m.store.GetSeries(ctx, identifier)
	if err != nil {
		return nil, err
	}

	for hops := 0; hops < maxChainHops; hops++ {
		r, err := m.store.GetObject(ctx, pid)
		if err != nil {
			return nil, err
		}
		switch object.StateOf(r) {
		case object.StateActive, object.StateArchived:
			return r, nil
		}
		if r.ObsoletedBy == "" {
			return nil, fmt.Errorf("%w: series %q ends at deleted %q", object.ErrNotFound, identifier, pid)
		}
		pid = r.ObsoletedBy
	}
	return nil, fmt.Errorf("%w: series %q chain exceeds %d hops", object.ErrNotFound, identifier, maxChainHops)
}

func validateNewRecord(r *object.Record) error {
	if r == nil || r.PID == "" {
		return errors.New("warrant: record requires a pid")
	}
	if r.RightsHolder == "" {
		return fmt.Errorf("warrant: record %q requires a rights holder", r.PID)
	}
	return nil
}

func isNotFound(err error) bool { return errors.Is(err, object.ErrNotFound) }
