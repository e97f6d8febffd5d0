// Package identity defines subject sets and the external identity
// provider capability used to expand them.
package identity

import (
	"context"
	"sort"
)

// Symbolic subjects recognized by every federation member. They are
// injected during subject set resolution, never stored in identity maps.
const (
	// Public matches every requester, authenticated or not.
	Public = "public"

	// AuthenticatedUser matches any requester with a non-anonymous
	// primary subject.
	AuthenticatedUser = "authenticatedUser"

	// VerifiedUser matches requesters whose identity has been verified
	// by the federation's identity registry.
	VerifiedUser = "verifiedUser"
)

// Set is a set of subject strings authenticated for one request.
type Set map[string]struct{}

// NewSet creates a Set from the given subjects.
func NewSet(subjects ...string) Set {
	s := make(Set, len(subjects))
	for _, sub := range subjects {
		s.Add(sub)
	}
	return s
}

// Add inserts a subject. Empty strings are ignored.
func (s Set) Add(subject string) {
	if subject == "" {
		return
	}
	s[subject] = struct{}{}
}

// Has reports whether the set contains the subject.
func (s Set) Has(subject string) bool {
	_, ok := s[subject]
	return ok
}

// Len returns the number of subjects in the set.
func (s Set) Len() int { return len(s) }

// Slice returns the subjects in sorted order.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for sub := range s {
		out = append(out, sub)
	}
	sort.Strings(out)
	return out
}

// ContainsAny reports whether any of the given subjects is in the set.
func (s Set) ContainsAny(subjects []string) bool {
	for _, sub := range subjects {
		if s.Has(sub) {
			return true
		}
	}
	return false
}

// Provider looks up equivalent identities and group memberships for a
// subject. Implementations typically call the federation's identity
// registry; lookups are read-only.
type Provider interface {
	// EquivalentIdentities returns subjects mapped as the same person.
	EquivalentIdentities(ctx context.Context, subject string) ([]string, error)

	// GroupMemberships returns the group subjects the subject belongs to.
	GroupMemberships(ctx context.Context, subject string) ([]string, error)

	// IsVerified reports whether the subject's identity has been
	// verified by the registry.
	IsVerified(ctx context.Context, subject string) (bool, error)
}
