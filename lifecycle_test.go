package warrant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/store/memory"
)

func testRecord(pid, sid string) *object.Record {
	return &object.Record{
		PID:          pid,
		SeriesID:     sid,
		FormatID:     "eml://ecoinformatics.org/eml-2.1.1",
		Checksum:     object.Checksum{Algorithm: "SHA-256", Value: "abc123"},
		Size:         42,
		RightsHolder: "cn=alice",
	}
}

func newTestStateMachine() *StateMachine {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return NewStateMachine(memory.New(), func() time.Time { return base })
}

func TestStateMachineCreateDefaults(t *testing.T) {
	ctx := context.Background()
	m := newTestStateMachine()

	r := testRecord("pid-1", "")
	if err := m.Create(ctx, r); err != nil {
		t.Fatal(err)
	}
	if r.SerialVersion != 1 {
		t.Fatalf("expected serial version 1, got %d", r.SerialVersion)
	}
	if r.CreatedAt.IsZero() || !r.CreatedAt.Equal(r.ModifiedAt) {
		t.Fatalf("expected stamped timestamps, got %v / %v", r.CreatedAt, r.ModifiedAt)
	}

	state, err := m.State(ctx, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if state != object.StateActive {
		t.Fatalf("expected active, got %s", state)
	}
}

func TestStateMachineCreateValidation(t *testing.T) {
	ctx := context.Background()
	m := newTestStateMachine()

	if err := m.Create(ctx, &object.Record{RightsHolder: "cn=alice"}); err == nil {
		t.Fatal("expected error for missing pid")
	}
	if err := m.Create(ctx, &object.Record{PID: "pid-1"}); err == nil {
		t.Fatal("expected error for missing rights holder")
	}
}

func TestStateMachineUpdateChain(t *testing.T) {
	ctx := context.Background()
	m := newTestStateMachine()

	v1 := testRecord("pid-1", "sid-1")
	if err := m.Create(ctx, v1); err != nil {
		t.Fatal(err)
	}

	v2, err := m.Update(ctx, "pid-1", testRecord("pid-2", ""))
	if err != nil {
		t.Fatal(err)
	}
	if v2.Obsoletes != "pid-1" {
		t.Fatalf("expected obsoletes pid-1, got %q", v2.Obsoletes)
	}
	if v2.SeriesID != "sid-1" {
		t.Fatalf("successor must inherit the series, got %q", v2.SeriesID)
	}
	if v2.SerialVersion != 2 {
		t.Fatalf("expected serial version 2, got %d", v2.SerialVersion)
	}

	old, err := m.Get(ctx, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if object.StateOf(old) != object.StateObsoleted {
		t.Fatalf("expected obsoleted, got %s", object.StateOf(old))
	}

	// Obsoleting again loses.
	if _, err := m.Update(ctx, "pid-1", testRecord("pid-3", "")); !errors.Is(err, object.ErrAlreadyObsoleted) {
		t.Fatalf("expected ErrAlreadyObsoleted, got %v", err)
	}

	// A successor cannot reuse the old PID.
	if _, err := m.Update(ctx, "pid-2", testRecord("pid-2", "")); !errors.Is(err, object.ErrIdentifierConflict) {
		t.Fatalf("expected ErrIdentifierConflict, got %v", err)
	}
}

func TestStateMachineArchiveAndDelete(t *testing.T) {
	ctx := context.Background()
	m := newTestStateMachine()

	if err := m.Create(ctx, testRecord("pid-1", "")); err != nil {
		t.Fatal(err)
	}

	if err := m.Archive(ctx, "pid-1"); err != nil {
		t.Fatal(err)
	}
	// Archiving again is a no-op.
	if err := m.Archive(ctx, "pid-1"); err != nil {
		t.Fatal(err)
	}
	state, _ := m.State(ctx, "pid-1")
	if state != object.StateArchived {
		t.Fatalf("expected archived, got %s", state)
	}

	if err := m.Delete(ctx, "pid-1"); err != nil {
		t.Fatal(err)
	}
	// Tombstoning a tombstone succeeds.
	if err := m.Delete(ctx, "pid-1"); err != nil {
		t.Fatal(err)
	}
	state, _ = m.State(ctx, "pid-1")
	if state != object.StateDeleted {
		t.Fatalf("expected deleted, got %s", state)
	}

	// Archiving a tombstone fails.
	if err := m.Archive(ctx, "pid-1"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStateMachineResolveSeries(t *testing.T) {
	ctx := context.Background()
	m := newTestStateMachine()

	if err := m.Create(ctx, testRecord("pid-1", "sid-1")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Update(ctx, "pid-1", testRecord("pid-2", "")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Update(ctx, "pid-2", testRecord("pid-3", "")); err != nil {
		t.Fatal(err)
	}

	// A series ID resolves to the chain head.
	head, err := m.Resolve(ctx, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if head.PID != "pid-3" {
		t.Fatalf("expected pid-3, got %q", head.PID)
	}

	// An exact PID resolves to that version, whatever its state.
	v1, err := m.Resolve(ctx, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if v1.PID != "pid-1" || object.StateOf(v1) != object.StateObsoleted {
		t.Fatalf("expected obsoleted pid-1, got %q (%s)", v1.PID, object.StateOf(v1))
	}

	// An archived head still resolves.
	if err := m.Archive(ctx, "pid-3"); err != nil {
		t.Fatal(err)
	}
	head, err = m.Resolve(ctx, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if head.PID != "pid-3" {
		t.Fatalf("expected archived pid-3, got %q", head.PID)
	}

	// A tombstoned head makes the series unresolvable.
	if err := m.Delete(ctx, "pid-3"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Resolve(ctx, "sid-1"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := m.Resolve(ctx, "unknown"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown identifier, got %v", err)
	}
}
