package plugin

import (
	"context"
	"log/slog"

	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/policy"
	"github.com/datafed/warrant/replica"
)

// Named entry types pair a hook with the plugin name for logging.

type beforeAuthorizeEntry struct {
	name string
	hook BeforeAuthorize
}
type afterAuthorizeEntry struct {
	name string
	hook AfterAuthorize
}
type objectCreatedEntry struct {
	name string
	hook ObjectCreated
}
type objectUpdatedEntry struct {
	name string
	hook ObjectUpdated
}
type objectArchivedEntry struct {
	name string
	hook ObjectArchived
}
type objectDeletedEntry struct {
	name string
	hook ObjectDeleted
}
type policyChangedEntry struct {
	name string
	hook PolicyChanged
}
type replicaStatusChangedEntry struct {
	name string
	hook ReplicaStatusChanged
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeAuthorize      []beforeAuthorizeEntry
	afterAuthorize       []afterAuthorizeEntry
	objectCreated        []objectCreatedEntry
	objectUpdated        []objectUpdatedEntry
	objectArchived       []objectArchivedEntry
	objectDeleted        []objectDeletedEntry
	policyChanged        []policyChangedEntry
	replicaStatusChanged []replicaStatusChangedEntry
	shutdown             []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(BeforeAuthorize); ok {
		r.beforeAuthorize = append(r.beforeAuthorize, beforeAuthorizeEntry{name, h})
	}
	if h, ok := p.(AfterAuthorize); ok {
		r.afterAuthorize = append(r.afterAuthorize, afterAuthorizeEntry{name, h})
	}
	if h, ok := p.(ObjectCreated); ok {
		r.objectCreated = append(r.objectCreated, objectCreatedEntry{name, h})
	}
	if h, ok := p.(ObjectUpdated); ok {
		r.objectUpdated = append(r.objectUpdated, objectUpdatedEntry{name, h})
	}
	if h, ok := p.(ObjectArchived); ok {
		r.objectArchived = append(r.objectArchived, objectArchivedEntry{name, h})
	}
	if h, ok := p.(ObjectDeleted); ok {
		r.objectDeleted = append(r.objectDeleted, objectDeletedEntry{name, h})
	}
	if h, ok := p.(PolicyChanged); ok {
		r.policyChanged = append(r.policyChanged, policyChangedEntry{name, h})
	}
	if h, ok := p.(ReplicaStatusChanged); ok {
		r.replicaStatusChanged = append(r.replicaStatusChanged, replicaStatusChangedEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Authorization event emitters
// ──────────────────────────────────────────────────

// EmitBeforeAuthorize notifies all plugins that implement BeforeAuthorize.
func (r *Registry) EmitBeforeAuthorize(ctx context.Context, req any) {
	for _, e := range r.beforeAuthorize {
		if err := e.hook.OnBeforeAuthorize(ctx, req); err != nil {
			r.logHookError("OnBeforeAuthorize", e.name, err)
		}
	}
}

// EmitAfterAuthorize notifies all plugins that implement AfterAuthorize.
func (r *Registry) EmitAfterAuthorize(ctx context.Context, req, result any) {
	for _, e := range r.afterAuthorize {
		if err := e.hook.OnAfterAuthorize(ctx, req, result); err != nil {
			r.logHookError("OnAfterAuthorize", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Object event emitters
// ──────────────────────────────────────────────────

// EmitObjectCreated notifies all plugins that implement ObjectCreated.
func (r *Registry) EmitObjectCreated(ctx context.Context, rec *object.Record) {
	for _, e := range r.objectCreated {
		if err := e.hook.OnObjectCreated(ctx, rec); err != nil {
			r.logHookError("OnObjectCreated", e.name, err)
		}
	}
}

// EmitObjectUpdated notifies all plugins that implement ObjectUpdated.
func (r *Registry) EmitObjectUpdated(ctx context.Context, old, successor *object.Record) {
	for _, e := range r.objectUpdated {
		if err := e.hook.OnObjectUpdated(ctx, old, successor); err != nil {
			r.logHookError("OnObjectUpdated", e.name, err)
		}
	}
}

// EmitObjectArchived notifies all plugins that implement ObjectArchived.
func (r *Registry) EmitObjectArchived(ctx context.Context, pid string) {
	for _, e := range r.objectArchived {
		if err := e.hook.OnObjectArchived(ctx, pid); err != nil {
			r.logHookError("OnObjectArchived", e.name, err)
		}
	}
}

// EmitObjectDeleted notifies all plugins that implement ObjectDeleted.
func (r *Registry) EmitObjectDeleted(ctx context.Context, pid string) {
	for _, e := range r.objectDeleted {
		if err := e.hook.OnObjectDeleted(ctx, pid); err != nil {
			r.logHookError("OnObjectDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Policy event emitters
// ──────────────────────────────────────────────────

// EmitPolicyChanged notifies all plugins that implement PolicyChanged.
func (r *Registry) EmitPolicyChanged(ctx context.Context, pid string, rules []policy.Rule) {
	for _, e := range r.policyChanged {
		if err := e.hook.OnPolicyChanged(ctx, pid, rules); err != nil {
			r.logHookError("OnPolicyChanged", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Replica event emitters
// ──────────────────────────────────────────────────

// EmitReplicaStatusChanged notifies all plugins that implement ReplicaStatusChanged.
func (r *Registry) EmitReplicaStatusChanged(ctx context.Context, rec *replica.Record) {
	for _, e := range r.replicaStatusChanged {
		if err := e.hook.OnReplicaStatusChanged(ctx, rec); err != nil {
			r.logHookError("OnReplicaStatusChanged", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated — they must not block the pipeline.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}
