package policy

import (
	"context"
)

// Store defines persistence operations for per-object access policies.
//
// An object with no stored rules has an empty policy: only its
// rights-holder can reach it. SetAccessPolicy replaces the whole rule set
// for an object in one call so that callers never observe a partially
// updated policy.
type Store interface {
	// SetAccessPolicy replaces all access rules for an object.
	SetAccessPolicy(ctx context.Context, pid string, rules []Rule) error

	// GetAccessPolicy returns the access rules for an object.
	// A missing policy yields an empty slice, not an error.
	GetAccessPolicy(ctx context.Context, pid string) ([]Rule, error)

	// DeleteAccessPolicy removes all access rules for an object.
	DeleteAccessPolicy(ctx context.Context, pid string) error

	// ListRules returns access rules matching the filter.
	ListRules(ctx context.Context, filter *ListFilter) ([]Rule, error)

	// CountRules returns the number of rules matching the filter.
	CountRules(ctx context.Context, filter *ListFilter) (int64, error)
}
