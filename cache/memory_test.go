package cache

import (
	"context"
	"testing"
	"time"

	"github.com/datafed/warrant"
	"github.com/datafed/warrant/identity"
)

func TestMemoryCacheHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(time.Minute))

	subjects := identity.NewSet("cn=alice", identity.Public)
	result := &warrant.AuthResult{Allowed: true, Decision: warrant.DecisionAllow}

	// Miss
	_, ok := c.Get(ctx, subjects, warrant.OperationRead, "doi:10.5063/F1")
	if ok {
		t.Fatal("expected cache miss")
	}

	// Set + Hit
	c.Set(ctx, subjects, warrant.OperationRead, "doi:10.5063/F1", result)
	got, ok := c.Get(ctx, subjects, warrant.OperationRead, "doi:10.5063/F1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !got.Allowed {
		t.Fatal("expected allowed")
	}

	// Different operation keys separately.
	if _, ok := c.Get(ctx, subjects, warrant.OperationUpdate, "doi:10.5063/F1"); ok {
		t.Fatal("expected miss for different operation")
	}
}

func TestMemoryCacheEqualSetsShareKey(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	a := identity.NewSet("cn=alice", identity.Public)
	b := identity.NewSet(identity.Public, "cn=alice")

	c.Set(ctx, a, warrant.OperationRead, "pid1", &warrant.AuthResult{Allowed: true})
	if _, ok := c.Get(ctx, b, warrant.OperationRead, "pid1"); !ok {
		t.Fatal("expected hit for equal subject set in different order")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithTTL(1 * time.Millisecond))

	subjects := identity.NewSet("cn=alice")
	c.Set(ctx, subjects, warrant.OperationRead, "pid1", &warrant.AuthResult{Allowed: true})
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get(ctx, subjects, warrant.OperationRead, "pid1")
	if ok {
		t.Fatal("expected cache miss after TTL expiry")
	}
}

func TestMemoryCacheInvalidateObject(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	alice := identity.NewSet("cn=alice")
	bob := identity.NewSet("cn=bob")

	c.Set(ctx, alice, warrant.OperationRead, "pid1", &warrant.AuthResult{Allowed: true})
	c.Set(ctx, bob, warrant.OperationUpdate, "pid1", &warrant.AuthResult{Allowed: false})
	c.Set(ctx, alice, warrant.OperationRead, "pid2", &warrant.AuthResult{Allowed: true})

	c.InvalidateObject(ctx, "pid1")

	if _, ok := c.Get(ctx, alice, warrant.OperationRead, "pid1"); ok {
		t.Fatal("pid1 read should be invalidated")
	}
	if _, ok := c.Get(ctx, bob, warrant.OperationUpdate, "pid1"); ok {
		t.Fatal("pid1 update should be invalidated")
	}
	if _, ok := c.Get(ctx, alice, warrant.OperationRead, "pid2"); !ok {
		t.Fatal("pid2 should still be cached")
	}
}

func TestMemoryCacheInvalidateSubject(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	alice := identity.NewSet("cn=alice", "cn=staff")
	bob := identity.NewSet("cn=bob")

	c.Set(ctx, alice, warrant.OperationRead, "pid1", &warrant.AuthResult{Allowed: true})
	c.Set(ctx, bob, warrant.OperationRead, "pid1", &warrant.AuthResult{Allowed: true})

	// Invalidating a group member hits every set that contains it.
	c.InvalidateSubject(ctx, "cn=staff")

	if _, ok := c.Get(ctx, alice, warrant.OperationRead, "pid1"); ok {
		t.Fatal("alice should be invalidated via group membership")
	}
	if _, ok := c.Get(ctx, bob, warrant.OperationRead, "pid1"); !ok {
		t.Fatal("bob should still be cached")
	}
}

func TestMemoryCacheMaxSize(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(WithMaxSize(2))

	subjects := identity.NewSet("cn=alice")
	for i := 0; i < 5; i++ {
		c.Set(ctx, subjects, warrant.OperationRead, string(rune('a'+i)), &warrant.AuthResult{Allowed: true})
	}

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	if size > 2 {
		t.Fatalf("expected max 2 entries, got %d", size)
	}
}
