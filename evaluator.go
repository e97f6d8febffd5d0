package warrant

import (
	"context"

	"github.com/datafed/warrant/identity"
	"github.com/datafed/warrant/policy"
)

// Evaluator computes the maximum permission a subject set holds on an
// object given its access rules and rights holder.
type Evaluator interface {
	// MaxPermission never returns an error: an empty rule set simply
	// grants nothing. The permission is monotone in the subject set:
	// adding subjects can only raise it.
	MaxPermission(ctx context.Context, rules []policy.Rule, subjects identity.Set, rightsHolder string) (policy.Permission, []MatchInfo)
}

type defaultEvaluator struct{}

// NewEvaluator returns the standard evaluator.
func NewEvaluator() Evaluator { return &defaultEvaluator{} }

func (e *defaultEvaluator) MaxPermission(ctx context.Context, rules []policy.Rule, subjects identity.Set, rightsHolder string) (policy.Permission, []MatchInfo) {
	// The rights holder bypasses the policy entirely.
	if rightsHolder != "" && subjects.Has(rightsHolder) {
		return policy.PermissionChange, []MatchInfo{{Source: "rights_holder", Detail: rightsHolder}}
	}

	granted := policy.PermissionNone
	var matched []MatchInfo
	for _, r := range rules {
		if !ruleMatches(r, subjects) {
			continue
		}
		if r.Permission.Level() > granted.Level() {
			granted = r.Permission
		}
		matched = append(matched, MatchInfo{Source: "rule", RuleID: r.ID.String()})
	}
	return granted, matched
}

// ruleMatches reports whether a rule applies to the subject set. A rule
// naming the public pseudo-subject applies to every requester.
func ruleMatches(r policy.Rule, subjects identity.Set) bool {
	for _, s := range r.Subjects {
		if s == identity.Public || subjects.Has(s) {
			return true
		}
	}
	return false
}
