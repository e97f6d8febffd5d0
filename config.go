package warrant

import "time"

// Config holds configuration for the Warrant engine.
type Config struct {
	// ReplicaStaleAfter bounds how old a replica's last verification may
	// be for the replica to count as complete. Defaults to 30 days.
	ReplicaStaleAfter time.Duration `json:"replica_stale_after,omitempty"`

	// MaxEquivalenceDepth is the maximum depth for the identity
	// equivalence walk during subject set resolution. Defaults to 10.
	MaxEquivalenceDepth int `json:"max_equivalence_depth,omitempty"`

	// EnableEventLog enables event log records for lifecycle and
	// replication operations. Defaults to true.
	EnableEventLog *bool `json:"enable_event_log,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		ReplicaStaleAfter:   30 * 24 * time.Hour,
		MaxEquivalenceDepth: 10,
		EnableEventLog:      &t,
	}
}

func (c Config) eventLogEnabled() bool { return c.EnableEventLog == nil || *c.EnableEventLog }
