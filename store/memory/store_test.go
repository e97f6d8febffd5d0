package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/datafed/warrant/eventlog"
	"github.com/datafed/warrant/id"
	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/policy"
	"github.com/datafed/warrant/replica"
	"github.com/datafed/warrant/store"
)

// Compile-time check that *Store implements store.Store.
var _ store.Store = (*Store)(nil)

func newRecord(pid, sid string) *object.Record {
	now := time.Now()
	return &object.Record{
		PID:           pid,
		SeriesID:      sid,
		FormatID:      "application/octet-stream",
		Checksum:      object.Checksum{Algorithm: "SHA-256", Value: "abc"},
		Size:          42,
		Submitter:     "cn=submitter",
		RightsHolder:  "cn=owner",
		SerialVersion: 1,
		CreatedAt:     now,
		ModifiedAt:    now,
	}
}

func TestObjectCreateGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := newRecord("pid-1", "sid-1")
	if err := s.CreateObject(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetObject(ctx, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.RightsHolder != "cn=owner" {
		t.Fatalf("expected cn=owner, got %s", got.RightsHolder)
	}

	// PID reuse is a conflict.
	if err := s.CreateObject(ctx, newRecord("pid-1", "")); !errors.Is(err, object.ErrIdentifierConflict) {
		t.Fatalf("expected ErrIdentifierConflict, got %v", err)
	}

	// SID reuse on create is a conflict too.
	if err := s.CreateObject(ctx, newRecord("pid-2", "sid-1")); !errors.Is(err, object.ErrIdentifierConflict) {
		t.Fatalf("expected ErrIdentifierConflict for sid reuse, got %v", err)
	}

	if _, err := s.GetObject(ctx, "missing"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestObsoleteRebindsSeries(t *testing.T) {
	ctx := context.Background()
	s := New()

	old := newRecord("pid-1", "sid-1")
	if err := s.CreateObject(ctx, old); err != nil {
		t.Fatal(err)
	}

	succ := newRecord("pid-2", "sid-1")
	succ.Obsoletes = "pid-1"
	succ.SerialVersion = 2
	if err := s.Obsolete(ctx, "pid-1", succ); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetObject(ctx, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ObsoletedBy != "pid-2" {
		t.Fatalf("expected obsoleted by pid-2, got %q", got.ObsoletedBy)
	}
	if object.StateOf(got) != object.StateObsoleted {
		t.Fatalf("expected obsoleted state, got %s", object.StateOf(got))
	}

	pid, err := s.GetSeries(ctx, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if pid != "pid-2" {
		t.Fatalf("series should rebind to pid-2, got %q", pid)
	}

	// Second obsolete of the same record fails.
	again := newRecord("pid-3", "sid-1")
	if err := s.Obsolete(ctx, "pid-1", again); !errors.Is(err, object.ErrAlreadyObsoleted) {
		t.Fatalf("expected ErrAlreadyObsoleted, got %v", err)
	}
}

func TestConcurrentObsoleteOneWinner(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateObject(ctx, newRecord("pid-1", "")); err != nil {
		t.Fatal(err)
	}

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			succ := newRecord("succ-"+string(rune('a'+n)), "")
			succ.Obsoletes = "pid-1"
			errs[n] = s.Obsolete(ctx, "pid-1", succ)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else if !errors.Is(err, object.ErrAlreadyObsoleted) {
			t.Fatalf("unexpected loser error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestTombstoneReservesPID(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateObject(ctx, newRecord("pid-1", "")); err != nil {
		t.Fatal(err)
	}
	if err := s.Tombstone(ctx, "pid-1"); err != nil {
		t.Fatal(err)
	}
	// Idempotent.
	if err := s.Tombstone(ctx, "pid-1"); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetObject(ctx, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if object.StateOf(got) != object.StateDeleted {
		t.Fatalf("expected deleted, got %s", object.StateOf(got))
	}

	// The identifier stays reserved.
	if err := s.CreateObject(ctx, newRecord("pid-1", "")); !errors.Is(err, object.ErrIdentifierConflict) {
		t.Fatalf("expected ErrIdentifierConflict, got %v", err)
	}

	// Archiving a tombstone fails.
	if err := s.SetArchived(ctx, "pid-1"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListObjectsFilters(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := newRecord("pid-a", "")
	a.FormatID = "text/csv"
	b := newRecord("pid-b", "")
	c := newRecord("pid-c", "")
	for _, r := range []*object.Record{a, b, c} {
		if err := s.CreateObject(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Tombstone(ctx, "pid-c"); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListObjects(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("tombstones should be excluded, got %d records", len(list))
	}

	list, err = s.ListObjects(ctx, &object.ListFilter{IncludeDeleted: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 with tombstones, got %d", len(list))
	}

	count, err := s.CountObjects(ctx, &object.ListFilter{FormatID: "text/csv"})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 csv record, got %d", count)
	}
}

func TestAccessPolicyReplace(t *testing.T) {
	ctx := context.Background()
	s := New()

	rules := []policy.Rule{
		{ID: id.NewRuleID(), Subjects: []string{"cn=alice"}, Permission: policy.PermissionRead},
		{ID: id.NewRuleID(), Subjects: []string{"cn=bob"}, Permission: policy.PermissionWrite},
	}
	if err := s.SetAccessPolicy(ctx, "pid-1", rules); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAccessPolicy(ctx, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(got))
	}

	// Replace drops the old set entirely.
	if err := s.SetAccessPolicy(ctx, "pid-1", rules[:1]); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetAccessPolicy(ctx, "pid-1")
	if len(got) != 1 {
		t.Fatalf("expected 1 rule after replace, got %d", len(got))
	}

	// Missing policy is an empty slice, not an error.
	got, err = s.GetAccessPolicy(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty policy, got %d rules", len(got))
	}

	count, err := s.CountRules(ctx, &policy.ListFilter{Subject: "cn=alice"})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 rule for alice, got %d", count)
	}
}

func TestReplicaTransitions(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	rec := &replica.Record{
		PID:          "pid-1",
		NodeID:       "urn:node:A",
		Status:       replica.StatusQueued,
		LastVerified: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.RegisterReplica(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterReplica(ctx, rec); !errors.Is(err, replica.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	steps := []replica.Status{replica.StatusRequested, replica.StatusCompleted}
	for _, st := range steps {
		if err := s.UpdateReplicaStatus(ctx, "pid-1", "urn:node:A", st, time.Now()); err != nil {
			t.Fatalf("transition to %s: %v", st, err)
		}
	}

	// Completed cannot go back to queued.
	err := s.UpdateReplicaStatus(ctx, "pid-1", "urn:node:A", replica.StatusQueued, time.Now())
	if !errors.Is(err, replica.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}

	// Same-status write refreshes the verification timestamp.
	later := now.Add(time.Hour)
	if err := s.UpdateReplicaStatus(ctx, "pid-1", "urn:node:A", replica.StatusCompleted, later); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetReplica(ctx, "pid-1", "urn:node:A")
	if err != nil {
		t.Fatal(err)
	}
	if !got.LastVerified.Equal(later) {
		t.Fatalf("expected refreshed verification, got %v", got.LastVerified)
	}

	if err := s.DeleteReplicasByObject(ctx, "pid-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetReplica(ctx, "pid-1", "urn:node:A"); !errors.Is(err, replica.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEventLogQueryAndPurge(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Now()

	entries := []*eventlog.Entry{
		{ID: id.NewEventID(), PID: "pid-1", Type: eventlog.TypeCreate, Subject: "cn=alice", CreatedAt: base},
		{ID: id.NewEventID(), PID: "pid-1", Type: eventlog.TypeRead, Subject: "cn=bob", CreatedAt: base.Add(time.Minute)},
		{ID: id.NewEventID(), PID: "pid-2", Type: eventlog.TypeRead, Subject: "cn=bob", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := s.CreateEvent(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListEvents(ctx, &eventlog.QueryFilter{PID: "pid-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 events for pid-1, got %d", len(list))
	}
	if list[0].Type != eventlog.TypeCreate {
		t.Fatalf("expected chronological order, got %s first", list[0].Type)
	}

	purged, err := s.PurgeEvents(ctx, base.Add(30*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged, got %d", purged)
	}

	count, err := s.CountEvents(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 remaining, got %d", count)
	}
}
