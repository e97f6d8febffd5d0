// Package warrant provides the authorization and object lifecycle core
// for a federated science-data member node.
//
// Warrant decides whether a requester may perform an operation on an
// object, tracks object versions through their obsolescence chain, and
// maintains per-node replica status. It holds no HTTP surface of the
// federation protocol and performs no I/O beyond the injected store and
// identity provider.
//
//	eng, err := warrant.NewEngine(
//	    warrant.WithStore(memStore),
//	)
//	result, err := eng.Authorize(ctx, &warrant.AuthRequest{
//	    Subject:   "cn=alice,dc=example,dc=org",
//	    Operation: warrant.OperationRead,
//	    PID:       "urn:uuid:0f51d5f2",
//	})
package warrant

import (
	"github.com/datafed/warrant/identity"
	"github.com/datafed/warrant/policy"
)

// AuthRequest is the input to an authorization decision.
//
// Subjects, when non-nil, is used as the requester's subject set as-is.
// Otherwise Subject is expanded through the identity provider.
type AuthRequest struct {
	Subject   string       `json:"subject,omitempty"`
	Subjects  identity.Set `json:"subjects,omitempty"`
	Operation Operation    `json:"operation"`
	PID       string       `json:"pid"`
}

// AuthResult is the outcome of an authorization decision. Denial is a
// result, not an error: Authorize only errors for exceptional conditions
// such as an unknown identifier.
type AuthResult struct {
	Allowed    bool              `json:"allowed"`
	Decision   Decision          `json:"decision"`
	Granted    policy.Permission `json:"granted"`
	Required   policy.Permission `json:"required"`
	Reason     string            `json:"reason,omitempty"`
	MatchedBy  []MatchInfo       `json:"matched_by,omitempty"`
	EvalTimeNs int64             `json:"eval_time_ns"`
}

// Decision is the authorization outcome code.
type Decision string

const (
	// DecisionAllow means the request is permitted.
	DecisionAllow Decision = "allow"

	// DecisionDenyNoMatch means no access rule matched the subject set.
	DecisionDenyNoMatch Decision = "deny_no_match"

	// DecisionDenyInsufficient means rules matched but the granted level
	// is below what the operation requires.
	DecisionDenyInsufficient Decision = "deny_insufficient"
)

// MatchInfo describes what granted a permission during evaluation.
type MatchInfo struct {
	Source string `json:"source"` // "rights_holder" or "rule"
	RuleID string `json:"rule_id,omitempty"`
	Detail string `json:"detail,omitempty"`
}
