package warrant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/datafed/warrant/identity"
)

// failingProvider errors on the configured call.
type failingProvider struct {
	*identity.StaticProvider
	failEquivalent bool
	failGroups     bool
	failVerified   bool
}

func (p *failingProvider) EquivalentIdentities(ctx context.Context, subject string) ([]string, error) {
	if p.failEquivalent {
		return nil, errors.New("registry unreachable")
	}
	return p.StaticProvider.EquivalentIdentities(ctx, subject)
}

func (p *failingProvider) GroupMemberships(ctx context.Context, subject string) ([]string, error) {
	if p.failGroups {
		return nil, errors.New("registry unreachable")
	}
	return p.StaticProvider.GroupMemberships(ctx, subject)
}

func (p *failingProvider) IsVerified(ctx context.Context, subject string) (bool, error) {
	if p.failVerified {
		return false, errors.New("registry unreachable")
	}
	return p.StaticProvider.IsVerified(ctx, subject)
}

func TestResolveAnonymous(t *testing.T) {
	r := NewResolver(0, nil)
	for _, primary := range []string{"", identity.Public} {
		set := r.Resolve(context.Background(), identity.NewStaticProvider(), primary)
		if set.Len() != 1 || !set.Has(identity.Public) {
			t.Fatalf("anonymous %q: expected {public}, got %v", primary, set.Slice())
		}
	}
}

func TestResolveWithoutProvider(t *testing.T) {
	r := NewResolver(0, nil)
	set := r.Resolve(context.Background(), nil, "cn=alice")

	for _, want := range []string{"cn=alice", identity.Public, identity.AuthenticatedUser} {
		if !set.Has(want) {
			t.Fatalf("expected %q in set %v", want, set.Slice())
		}
	}
	if set.Has(identity.VerifiedUser) {
		t.Fatal("verified must not appear without a provider")
	}
}

func TestResolveExpansion(t *testing.T) {
	p := identity.NewStaticProvider()
	p.MapEquivalent("cn=alice", "orcid:0000-0001")
	p.AddToGroup("orcid:0000-0001", "cn=lab-group")
	p.AddToGroup("cn=lab-group", "cn=division")
	p.SetVerified("cn=alice")

	r := NewResolver(0, nil)
	set := r.Resolve(context.Background(), p, "cn=alice")

	for _, want := range []string{
		"cn=alice", "orcid:0000-0001", "cn=lab-group", "cn=division",
		identity.Public, identity.AuthenticatedUser, identity.VerifiedUser,
	} {
		if !set.Has(want) {
			t.Fatalf("expected %q in set %v", want, set.Slice())
		}
	}
}

func TestResolveDepthBound(t *testing.T) {
	p := identity.NewStaticProvider()
	for i := 1; i < 5; i++ {
		p.MapEquivalent(fmt.Sprintf("s%d", i), fmt.Sprintf("s%d", i+1))
	}

	r := NewResolver(2, nil)
	set := r.Resolve(context.Background(), p, "s1")

	if !set.Has("s3") {
		t.Fatalf("expected s3 within depth bound, got %v", set.Slice())
	}
	if set.Has("s4") {
		t.Fatalf("s4 is beyond the depth bound, got %v", set.Slice())
	}
}

func TestResolveFailOpenToMinimum(t *testing.T) {
	static := identity.NewStaticProvider()
	static.MapEquivalent("cn=alice", "orcid:0000-0001")
	static.SetVerified("cn=alice")

	for _, tc := range []struct {
		name string
		p    *failingProvider
	}{
		{"equivalents", &failingProvider{StaticProvider: static, failEquivalent: true}},
		{"groups", &failingProvider{StaticProvider: static, failGroups: true}},
	} {
		set := NewResolver(0, nil).Resolve(context.Background(), tc.p, "cn=alice")
		if set.Len() != 3 {
			t.Fatalf("%s failure: expected minimum set of 3, got %v", tc.name, set.Slice())
		}
		if set.Has("orcid:0000-0001") || set.Has(identity.VerifiedUser) {
			t.Fatalf("%s failure must not leak expanded subjects: %v", tc.name, set.Slice())
		}
	}
}

func TestResolveVerificationErrorWithholdsUpgrade(t *testing.T) {
	static := identity.NewStaticProvider()
	static.SetVerified("cn=alice")
	p := &failingProvider{StaticProvider: static, failVerified: true}

	set := NewResolver(0, nil).Resolve(context.Background(), p, "cn=alice")
	if set.Has(identity.VerifiedUser) {
		t.Fatal("verified pseudo-subject must be withheld when the lookup fails")
	}
	if !set.Has("cn=alice") || !set.Has(identity.AuthenticatedUser) {
		t.Fatalf("base set must survive a verification failure: %v", set.Slice())
	}
}
