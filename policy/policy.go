// Package policy defines the access policy entity: ordered permission
// levels and per-object access rules.
package policy

import (
	"fmt"
	"time"

	"github.com/datafed/warrant/id"
)

// Permission is an access level granted by a rule. The levels form a
// strict order: read < write < changePermission. Holding a higher level
// implies every lower one.
//
// The non-empty values are the federation's System Metadata vocabulary
// and round-trip through XML and storage unchanged.
type Permission string

const (
	// PermissionNone grants nothing. It is internal and never serialized.
	PermissionNone Permission = ""

	// PermissionRead allows retrieving the object and its metadata.
	PermissionRead Permission = "read"

	// PermissionWrite allows updating and archiving the object.
	PermissionWrite Permission = "write"

	// PermissionChange allows modifying access rules and deleting.
	PermissionChange Permission = "changePermission"
)

// Level returns the numeric rank of the permission for comparisons.
// Unknown values rank as none.
func (p Permission) Level() int {
	switch p {
	case PermissionRead:
		return 1
	case PermissionWrite:
		return 2
	case PermissionChange:
		return 3
	default:
		return 0
	}
}

// Implies reports whether holding p satisfies a requirement of other.
func (p Permission) Implies(other Permission) bool {
	return p.Level() >= other.Level()
}

// Valid reports whether p is one of the serializable vocabulary values.
func (p Permission) Valid() bool {
	return p == PermissionRead || p == PermissionWrite || p == PermissionChange
}

// String returns the vocabulary value, or "none" for the zero permission.
func (p Permission) String() string {
	if p == PermissionNone {
		return "none"
	}
	return string(p)
}

// ParsePermission parses a System Metadata permission string.
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.Valid() {
		return PermissionNone, fmt.Errorf("policy: unknown permission %q", s)
	}
	return p, nil
}

// Max returns the higher of two permissions.
func Max(a, b Permission) Permission {
	if b.Level() > a.Level() {
		return b
	}
	return a
}

// Rule grants a permission level to a set of subjects on one object.
// A rule listing the public pseudo-subject applies to every requester.
type Rule struct {
	ID         id.RuleID  `json:"id" db:"id"`
	PID        string     `json:"pid" db:"pid"`
	Subjects   []string   `json:"subjects" db:"-"`
	Permission Permission `json:"permission" db:"permission"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// ListFilter contains filters for listing access rules.
type ListFilter struct {
	PID     string `json:"pid,omitempty"`
	Subject string `json:"subject,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}
