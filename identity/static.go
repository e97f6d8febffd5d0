package identity

import (
	"context"
	"sync"
)

// Compile-time interface check.
var _ Provider = (*StaticProvider)(nil)

// StaticProvider is an in-memory Provider for tests and standalone
// deployments without an identity registry.
type StaticProvider struct {
	mu         sync.RWMutex
	equivalent map[string][]string
	groups     map[string][]string
	verified   map[string]bool
}

// NewStaticProvider creates an empty static provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		equivalent: make(map[string][]string),
		groups:     make(map[string][]string),
		verified:   make(map[string]bool),
	}
}

// MapEquivalent records a bidirectional equivalence between two subjects.
func (p *StaticProvider) MapEquivalent(a, b string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.equivalent[a] = append(p.equivalent[a], b)
	p.equivalent[b] = append(p.equivalent[b], a)
}

// AddToGroup records a subject's membership in a group subject.
func (p *StaticProvider) AddToGroup(subject, group string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.groups[subject] = append(p.groups[subject], group)
}

// SetVerified marks a subject as verified.
func (p *StaticProvider) SetVerified(subject string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verified[subject] = true
}

// EquivalentIdentities implements Provider.
func (p *StaticProvider) EquivalentIdentities(_ context.Context, subject string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.equivalent[subject]))
	copy(out, p.equivalent[subject])
	return out, nil
}

// GroupMemberships implements Provider.
func (p *StaticProvider) GroupMemberships(_ context.Context, subject string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.groups[subject]))
	copy(out, p.groups[subject])
	return out, nil
}

// IsVerified implements Provider.
func (p *StaticProvider) IsVerified(_ context.Context, subject string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.verified[subject], nil
}
