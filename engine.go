package warrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/datafed/warrant/eventlog"
	"github.com/datafed/warrant/id"
	"github.com/datafed/warrant/identity"
	"github.com/datafed/warrant/object"
	"github.com/datafed/warrant/plugin"
	"github.com/datafed/warrant/policy"
	"github.com/datafed/warrant/replica"
	"github.com/datafed/warrant/store"
)

// Engine is the authorization and lifecycle engine. It composes the
// subject resolver, the policy evaluator, the object state machine, and
// the replica tracker over a single store.
//
// All methods are safe for concurrent use provided the store is.
type Engine struct {
	store     store.Store
	provider  identity.Provider
	resolver  Resolver
	evaluator Evaluator
	cache     Cache
	logger    *slog.Logger
	config    Config
	clock     func() time.Time

	plugins        *plugin.Registry
	pendingPlugins []plugin.Plugin

	lifecycle *StateMachine
	replicas  *Tracker
}

// NewEngine creates an engine. A store is required; everything else has
// defaults.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		config: DefaultConfig(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("warrant: a store is required (use WithStore)")
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.evaluator == nil {
		e.evaluator = NewEvaluator()
	}
	if e.resolver == nil {
		e.resolver = NewResolver(e.config.MaxEquivalenceDepth, e.logger)
	}

	e.plugins = plugin.NewRegistry(e.logger)
	for _, p := range e.pendingPlugins {
		e.plugins.Register(p)
	}
	e.pendingPlugins = nil

	e.lifecycle = NewStateMachine(e.store, e.clock)
	e.replicas = NewTracker(e.store, e.clock, e.config.ReplicaStaleAfter)
	return e, nil
}

// Start verifies store connectivity.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("warrant: store ping: %w", err)
	}
	e.logger.Info("warrant engine started")
	return nil
}

// Stop notifies plugins of shutdown. It does not close the store; the
// store's owner does that.
func (e *Engine) Stop(ctx context.Context) error {
	e.plugins.EmitShutdown(ctx)
	e.logger.Info("warrant engine stopped")
	return nil
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Lifecycle returns the object state machine.
func (e *Engine) Lifecycle() *StateMachine { return e.lifecycle }

// Replicas returns the replica tracker.
func (e *Engine) Replicas() *Tracker { return e.replicas }

// ──────────────────────────────────────────────────
// Authorization
// ──────────────────────────────────────────────────

// Authorize decides whether the requester may perform the operation on
// the object. The PID field accepts a series ID, which resolves to the
// chain head first. Denial is reported in the result; errors are reserved
// for unknown identifiers, unknown operations, and store failures.
func (e *Engine) Authorize(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	if req == nil || req.PID == "" {
		return nil, errors.New("warrant: authorize requires a pid")
	}
	start := e.clock()

	required, err := RequiredPermission(req.Operation)
	if err != nil {
		return nil, err
	}

	subjects := req.Subjects
	if subjects == nil {
		subjects = e.resolver.Resolve(ctx, e.provider, req.Subject)
	}

	rec, err := e.lifecycle.Resolve(ctx, req.PID)
	if err != nil {
		return nil, err
	}
	if object.StateOf(rec) == object.StateDeleted {
		return nil, fmt.Errorf("%w: %q is deleted", object.ErrNotFound, rec.PID)
	}

	// Cache entries are keyed on the resolved PID, so a decision reached
	// through a series ID is dropped by the same invalidation as one
	// reached through the PID directly.
	if e.cache != nil {
		if res, ok := e.cache.Get(ctx, subjects, req.Operation, rec.PID); ok {
			return res, nil
		}
	}

	e.plugins.EmitBeforeAuthorize(ctx, req)

	rules, err := e.store.GetAccessPolicy(ctx, rec.PID)
	if err != nil {
		return nil, fmt.Errorf("warrant: load policy for %q: %w", rec.PID, err)
	}

	granted, matched := e.evaluator.MaxPermission(ctx, rules, subjects, rec.RightsHolder)

	result := &AuthResult{
		Allowed:    granted.Implies(required),
		Granted:    granted,
		Required:   required,
		MatchedBy:  matched,
		EvalTimeNs: e.clock().Sub(start).Nanoseconds(),
	}
	switch {
	case result.Allowed:
		result.Decision = DecisionAllow
	case granted == policy.PermissionNone:
		result.Decision = DecisionDenyNoMatch
		result.Reason = fmt.Sprintf("no rule grants %s", required)
	default:
		result.Decision = DecisionDenyInsufficient
		result.Reason = fmt.Sprintf("requires %s, granted %s", required, granted)
	}

	if e.cache != nil {
		e.cache.Set(ctx, subjects, req.Operation, rec.PID, result)
	}
	e.plugins.EmitAfterAuthorize(ctx, req, result)

	e.logger.Debug("authorization decided",
		"subject", req.Subject,
		"operation", string(req.Operation),
		"pid", req.PID,
		"decision", string(result.Decision),
	)
	return result, nil
}

// Enforce is Authorize that turns denial into ErrAccessDenied.
func (e *Engine) Enforce(ctx context.Context, req *AuthRequest) error {
	res, err := e.Authorize(ctx, req)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return fmt.Errorf("%w: %s on %q requires %s", ErrAccessDenied, req.Operation, req.PID, res.Required)
	}
	return nil
}

// Can is a convenience wrapper answering whether subject may perform op
// on the object.
func (e *Engine) Can(ctx context.Context, subject string, op Operation, pid string) (bool, error) {
	res, err := e.Authorize(ctx, &AuthRequest{Subject: subject, Operation: op, PID: pid})
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

// ResolveSubjects expands a primary subject into its full subject set.
func (e *Engine) ResolveSubjects(ctx context.Context, primary string) []string {
	return e.resolver.Resolve(ctx, e.provider, primary).Slice()
}

// ──────────────────────────────────────────────────
// Object lifecycle
// ──────────────────────────────────────────────────

// CreateObject ingests a new object version and records a create event.
func (e *Engine) CreateObject(ctx context.Context, rec *object.Record) error {
	if err := e.lifecycle.Create(ctx, rec); err != nil {
		return err
	}
	e.logEvent(ctx, eventlog.TypeCreate, rec.PID, "")
	e.plugins.EmitObjectCreated(ctx, rec)
	e.logger.Info("object created", "pid", rec.PID, "format", rec.FormatID)
	return nil
}

// UpdateObject creates a successor version. The old version's cached
// decisions and the series binding move with the update.
func (e *Engine) UpdateObject(ctx context.Context, oldPID string, successor *object.Record) (*object.Record, error) {
	old, err := e.lifecycle.Get(ctx, oldPID)
	if err != nil {
		return nil, err
	}
	rec, err := e.lifecycle.Update(ctx, oldPID, successor)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.InvalidateObject(ctx, oldPID)
		e.cache.InvalidateObject(ctx, rec.PID)
	}
	e.logEvent(ctx, eventlog.TypeUpdate, rec.PID, "obsoletes "+oldPID)
	e.plugins.EmitObjectUpdated(ctx, old, rec)
	e.logger.Info("object updated", "pid", rec.PID, "obsoletes", oldPID)
	return rec, nil
}

// ArchiveObject marks an object archived.
func (e *Engine) ArchiveObject(ctx context.Context, pid string) error {
	if err := e.lifecycle.Archive(ctx, pid); err != nil {
		return err
	}
	if e.cache != nil {
		e.cache.InvalidateObject(ctx, pid)
	}
	e.logEvent(ctx, eventlog.TypeArchive, pid, "")
	e.plugins.EmitObjectArchived(ctx, pid)
	e.logger.Info("object archived", "pid", pid)
	return nil
}

// DeleteObject tombstones an object. Its access rules and replica records
// are dropped; the event trail is kept.
func (e *Engine) DeleteObject(ctx context.Context, pid string) error {
	if err := e.lifecycle.Delete(ctx, pid); err != nil {
		return err
	}
	if err := e.store.DeleteAccessPolicy(ctx, pid); err != nil {
		e.logger.Warn("delete access policy", "pid", pid, "error", err)
	}
	if err := e.store.DeleteReplicasByObject(ctx, pid); err != nil {
		e.logger.Warn("delete replica records", "pid", pid, "error", err)
	}
	if e.cache != nil {
		e.cache.InvalidateObject(ctx, pid)
	}
	e.logEvent(ctx, eventlog.TypeDelete, pid, "")
	e.plugins.EmitObjectDeleted(ctx, pid)
	e.logger.Info("object deleted", "pid", pid)
	return nil
}

// GetObject retrieves a record by PID, including tombstones.
func (e *Engine) GetObject(ctx context.Context, pid string) (*object.Record, error) {
	return e.lifecycle.Get(ctx, pid)
}

// ResolveIdentifier maps a PID or series ID to its record.
func (e *Engine) ResolveIdentifier(ctx context.Context, identifier string) (*object.Record, error) {
	return e.lifecycle.Resolve(ctx, identifier)
}

// ──────────────────────────────────────────────────
// Access policy
// ──────────────────────────────────────────────────

// SetAccessPolicy replaces the object's access rules in one atomic step.
// Rules get IDs and timestamps if they lack them.
func (e *Engine) SetAccessPolicy(ctx context.Context, pid string, rules []policy.Rule) error {
	rec, err := e.store.GetObject(ctx, pid)
	if err != nil {
		return err
	}
	if object.StateOf(rec) == object.StateDeleted {
		return fmt.Errorf("%w: %q is deleted", object.ErrNotFound, pid)
	}

	now := e.clock()
	for i := range rules {
		if !rules[i].Permission.Valid() {
			return fmt.Errorf("warrant: invalid permission %q in rule %d", rules[i].Permission, i)
		}
		if len(rules[i].Subjects) == 0 {
			return fmt.Errorf("warrant: rule %d has no subjects", i)
		}
		rules[i].PID = pid
		if rules[i].ID.IsNil() {
			rules[i].ID = id.NewRuleID()
		}
		if rules[i].CreatedAt.IsZero() {
			rules[i].CreatedAt = now
		}
	}

	if err := e.store.SetAccessPolicy(ctx, pid, rules); err != nil {
		return err
	}
	if e.cache != nil {
		e.cache.InvalidateObject(ctx, pid)
	}
	e.plugins.EmitPolicyChanged(ctx, pid, rules)
	e.logger.Info("access policy replaced", "pid", pid, "rules", len(rules))
	return nil
}

// GetAccessPolicy returns the object's access rules.
func (e *Engine) GetAccessPolicy(ctx context.Context, pid string) ([]policy.Rule, error) {
	return e.store.GetAccessPolicy(ctx, pid)
}

// ──────────────────────────────────────────────────
// Replicas
// ──────────────────────────────────────────────────

// RegisterReplica records a new replication target for an object.
func (e *Engine) RegisterReplica(ctx context.Context, pid, nodeID string) (*replica.Record, error) {
	if _, err := e.lifecycle.Get(ctx, pid); err != nil {
		return nil, err
	}
	rec, err := e.replicas.Register(ctx, pid, nodeID)
	if err != nil {
		return nil, err
	}
	e.plugins.EmitReplicaStatusChanged(ctx, rec)
	e.logger.Info("replica registered", "pid", pid, "node", nodeID)
	return rec, nil
}

// SetReplicaStatus transitions a replica's status. A completed transition
// records a replicate event.
func (e *Engine) SetReplicaStatus(ctx context.Context, pid, nodeID string, status replica.Status) error {
	if err := e.replicas.UpdateStatus(ctx, pid, nodeID, status); err != nil {
		return err
	}
	rec, err := e.replicas.Get(ctx, pid, nodeID)
	if err != nil {
		return err
	}
	if status == replica.StatusCompleted {
		e.logEvent(ctx, eventlog.TypeReplicate, pid, "node "+nodeID)
	}
	e.plugins.EmitReplicaStatusChanged(ctx, rec)
	e.logger.Info("replica status changed", "pid", pid, "node", nodeID, "status", string(status))
	return nil
}

// CompleteReplicas lists the nodes holding a fresh, completed replica.
func (e *Engine) CompleteReplicas(ctx context.Context, pid string) ([]string, error) {
	return e.replicas.CompleteReplicas(ctx, pid)
}

// ──────────────────────────────────────────────────
// Event log
// ──────────────────────────────────────────────────

// LogReadEvent records a read access against an object.
func (e *Engine) LogReadEvent(ctx context.Context, pid string) {
	e.logEvent(ctx, eventlog.TypeRead, pid, "")
}

// QueryEvents returns event log entries matching the filter.
func (e *Engine) QueryEvents(ctx context.Context, filter *eventlog.QueryFilter) ([]*eventlog.Entry, error) {
	return e.store.ListEvents(ctx, filter)
}

func (e *Engine) logEvent(ctx context.Context, typ eventlog.Type, pid, detail string) {
	if !e.config.eventLogEnabled() {
		return
	}
	entry := &eventlog.Entry{
		ID:        id.NewEventID(),
		PID:       pid,
		Type:      typ,
		Subject:   SubjectFromContext(ctx),
		Detail:    detail,
		CreatedAt: e.clock(),
	}
	if err := e.store.CreateEvent(ctx, entry); err != nil {
		e.logger.Warn("event log write failed", "type", string(typ), "pid", pid, "error", err)
	}
}
