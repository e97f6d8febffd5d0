package warrant

import (
	"log/slog"
	"time"

	"github.com/datafed/warrant/identity"
	"github.com/datafed/warrant/plugin"
	"github.com/datafed/warrant/store"
)

// Option configures the engine.
type Option func(*Engine)

// WithStore sets the persistence backend. Required.
func WithStore(s store.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithIdentityProvider sets the source for identity equivalences, group
// memberships, and verification status. Without a provider the subject
// set contains only the primary subject and the pseudo-subjects.
func WithIdentityProvider(p identity.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithResolver overrides the subject set resolver.
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithEvaluator overrides the access policy evaluator.
func WithEvaluator(ev Evaluator) Option {
	return func(e *Engine) { e.evaluator = ev }
}

// WithCache sets the decision cache. Expiry is the implementation's
// concern; the engine only signals invalidation.
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithConfig sets the engine configuration. Zero-valued fields fall back
// to their defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.ReplicaStaleAfter > 0 {
			e.config.ReplicaStaleAfter = cfg.ReplicaStaleAfter
		}
		if cfg.MaxEquivalenceDepth > 0 {
			e.config.MaxEquivalenceDepth = cfg.MaxEquivalenceDepth
		}
		if cfg.EnableEventLog != nil {
			e.config.EnableEventLog = cfg.EnableEventLog
		}
	}
}

// WithPlugin registers a plugin with the engine's registry.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) { e.pendingPlugins = append(e.pendingPlugins, p) }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}
