// Package plugin defines the plugin system for Warrant.
// Plugins are notified of lifecycle events (authorization performed,
// object created, replica status changed, etc.) and can react — logging,
// metrics, federation notifications, etc.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/policy"
	"github.com/datafed/warrant/replica"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Authorization lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeAuthorize is called before an authorization request is evaluated.
// The req parameter is *warrant.AuthRequest (passed as any to avoid import cycle).
type BeforeAuthorize interface {
	OnBeforeAuthorize(ctx context.Context, req any) error
}

// AfterAuthorize is called after an authorization request completes.
// The req parameter is *warrant.AuthRequest; result is *warrant.AuthResult.
type AfterAuthorize interface {
	OnAfterAuthorize(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Object lifecycle hooks
// ──────────────────────────────────────────────────

// ObjectCreated is called after a new object version is ingested.
type ObjectCreated interface {
	OnObjectCreated(ctx context.Context, r *object.Record) error
}

// ObjectUpdated is called after a successor version obsoletes an object.
type ObjectUpdated interface {
	OnObjectUpdated(ctx context.Context, old, successor *object.Record) error
}

// ObjectArchived is called after an object is archived.
type ObjectArchived interface {
	OnObjectArchived(ctx context.Context, pid string) error
}

// ObjectDeleted is called after an object is tombstoned.
type ObjectDeleted interface {
	OnObjectDeleted(ctx context.Context, pid string) error
}

// ──────────────────────────────────────────────────
// Policy lifecycle hooks
// ──────────────────────────────────────────────────

// PolicyChanged is called after an object's access rules are replaced.
type PolicyChanged interface {
	OnPolicyChanged(ctx context.Context, pid string, rules []policy.Rule) error
}

// ──────────────────────────────────────────────────
// Replica lifecycle hooks
// ──────────────────────────────────────────────────

// ReplicaStatusChanged is called after a replica status transition.
type ReplicaStatusChanged interface {
	OnReplicaStatusChanged(ctx context.Context, r *replica.Record) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
