package warrant

import (
	"context"
	"testing"

	"github.com/datafed/warrant/id"
	"github.com/datafed/warrant/identity"
	"github.com/datafed/warrant/policy"
)

func rule(perm policy.Permission, subjects ...string) policy.Rule {
	return policy.Rule{ID: id.NewRuleID(), Subjects: subjects, Permission: perm}
}

func TestEvaluatorRightsHolderOverride(t *testing.T) {
	e := NewEvaluator()
	subjects := identity.NewSet("cn=alice", identity.Public)

	// No rules at all, yet the rights holder gets full control.
	granted, matched := e.MaxPermission(context.Background(), nil, subjects, "cn=alice")
	if granted != policy.PermissionChange {
		t.Fatalf("expected changePermission, got %q", granted)
	}
	if len(matched) != 1 || matched[0].Source != "rights_holder" {
		t.Fatalf("expected rights_holder match, got %+v", matched)
	}
}

func TestEvaluatorMaxOverMatchingRules(t *testing.T) {
	e := NewEvaluator()
	subjects := identity.NewSet("cn=bob", "cn=lab-group")

	rules := []policy.Rule{
		rule(policy.PermissionRead, "cn=bob"),
		rule(policy.PermissionWrite, "cn=lab-group"),
		rule(policy.PermissionChange, "cn=carol"), // no match
	}

	granted, matched := e.MaxPermission(context.Background(), rules, subjects, "cn=owner")
	if granted != policy.PermissionWrite {
		t.Fatalf("expected write, got %q", granted)
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matched rules, got %d", len(matched))
	}
}

func TestEvaluatorNoMatch(t *testing.T) {
	e := NewEvaluator()
	subjects := identity.NewSet("cn=stranger", identity.Public, identity.AuthenticatedUser)

	rules := []policy.Rule{rule(policy.PermissionChange, "cn=carol")}

	granted, matched := e.MaxPermission(context.Background(), rules, subjects, "cn=owner")
	if granted != policy.PermissionNone {
		t.Fatalf("expected none, got %q", granted)
	}
	if matched != nil {
		t.Fatalf("expected no matches, got %+v", matched)
	}
}

func TestEvaluatorPublicRuleMatchesEveryone(t *testing.T) {
	e := NewEvaluator()
	rules := []policy.Rule{rule(policy.PermissionRead, identity.Public)}

	// Even an anonymous set with only the public pseudo-subject matches.
	granted, _ := e.MaxPermission(context.Background(), rules, identity.NewSet(identity.Public), "cn=owner")
	if granted != policy.PermissionRead {
		t.Fatalf("expected read for anonymous requester, got %q", granted)
	}
}

func TestEvaluatorMonotoneInSubjects(t *testing.T) {
	e := NewEvaluator()
	rules := []policy.Rule{
		rule(policy.PermissionRead, "cn=bob"),
		rule(policy.PermissionWrite, "cn=lab-group"),
	}

	small, _ := e.MaxPermission(context.Background(), rules, identity.NewSet("cn=bob"), "cn=owner")
	large, _ := e.MaxPermission(context.Background(), rules, identity.NewSet("cn=bob", "cn=lab-group"), "cn=owner")

	if large.Level() < small.Level() {
		t.Fatalf("adding subjects lowered the grant: %q -> %q", small, large)
	}
	if small != policy.PermissionRead || large != policy.PermissionWrite {
		t.Fatalf("unexpected grants %q, %q", small, large)
	}
}
