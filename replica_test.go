package warrant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/datafed/warrant/replica"
	"github.com/datafed/warrant/store/memory"
)

// testClock is a manually advanced clock for staleness tests.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker(staleAfter time.Duration) (*Tracker, *testClock) {
	clk := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewTracker(memory.New(), clk.Now, staleAfter), clk
}

func TestTrackerRegisterQueued(t *testing.T) {
	ctx := context.Background()
	tr, clk := newTestTracker(0)

	rec, err := tr.Register(ctx, "pid-1", "urn:node:A")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != replica.StatusQueued {
		t.Fatalf("expected queued, got %s", rec.Status)
	}
	if !rec.LastVerified.Equal(clk.Now()) {
		t.Fatalf("expected verification stamp %v, got %v", clk.Now(), rec.LastVerified)
	}

	if _, err := tr.Register(ctx, "pid-1", "urn:node:A"); !errors.Is(err, replica.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestTrackerTransitions(t *testing.T) {
	ctx := context.Background()
	tr, clk := newTestTracker(0)

	if _, err := tr.Register(ctx, "pid-1", "urn:node:A"); err != nil {
		t.Fatal(err)
	}

	// Forward moves may skip steps: queued goes straight to completed.
	if err := tr.UpdateStatus(ctx, "pid-1", "urn:node:A", replica.StatusCompleted); err != nil {
		t.Fatalf("queued to completed: %v", err)
	}

	// A completed replica cannot be re-queued.
	err := tr.UpdateStatus(ctx, "pid-1", "urn:node:A", replica.StatusQueued)
	if !errors.Is(err, replica.ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}

	// Re-writing the current status refreshes the verification stamp.
	clk.Advance(time.Hour)
	if err := tr.UpdateStatus(ctx, "pid-1", "urn:node:A", replica.StatusCompleted); err != nil {
		t.Fatal(err)
	}
	rec, err := tr.Get(ctx, "pid-1", "urn:node:A")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.LastVerified.Equal(clk.Now()) {
		t.Fatalf("expected refreshed verification %v, got %v", clk.Now(), rec.LastVerified)
	}

	if err := tr.UpdateStatus(ctx, "pid-1", "urn:node:B", replica.StatusRequested); !errors.Is(err, replica.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown node, got %v", err)
	}
}

func TestTrackerFailedRequeue(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(0)

	if _, err := tr.Register(ctx, "pid-1", "urn:node:A"); err != nil {
		t.Fatal(err)
	}
	for _, s := range []replica.Status{replica.StatusFailed, replica.StatusQueued, replica.StatusRequested} {
		if err := tr.UpdateStatus(ctx, "pid-1", "urn:node:A", s); err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
	}
}

func TestTrackerCompleteReplicasStaleness(t *testing.T) {
	ctx := context.Background()
	tr, clk := newTestTracker(24 * time.Hour)

	for _, node := range []string{"urn:node:A", "urn:node:B"} {
		if _, err := tr.Register(ctx, "pid-1", node); err != nil {
			t.Fatal(err)
		}
		for _, s := range []replica.Status{replica.StatusRequested, replica.StatusCompleted} {
			if err := tr.UpdateStatus(ctx, "pid-1", node, s); err != nil {
				t.Fatal(err)
			}
		}
	}

	// Re-verify only node B after two days; A's verification goes stale.
	clk.Advance(48 * time.Hour)
	if err := tr.UpdateStatus(ctx, "pid-1", "urn:node:B", replica.StatusCompleted); err != nil {
		t.Fatal(err)
	}

	nodes, err := tr.CompleteReplicas(ctx, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0] != "urn:node:B" {
		t.Fatalf("expected only urn:node:B, got %v", nodes)
	}
}

func TestTrackerCompleteReplicasNoBound(t *testing.T) {
	ctx := context.Background()
	tr, clk := newTestTracker(0)

	if _, err := tr.Register(ctx, "pid-1", "urn:node:A"); err != nil {
		t.Fatal(err)
	}
	for _, s := range []replica.Status{replica.StatusRequested, replica.StatusCompleted} {
		if err := tr.UpdateStatus(ctx, "pid-1", "urn:node:A", s); err != nil {
			t.Fatal(err)
		}
	}

	// With no staleness bound an old verification still counts.
	clk.Advance(365 * 24 * time.Hour)
	nodes, err := tr.CompleteReplicas(ctx, "pid-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %v", nodes)
	}
}
