package warrant

import (
	"context"
	"log/slog"

	"github.com/datafed/warrant/identity"
)

// Resolver expands a primary subject into the full subject set used for
// policy evaluation.
type Resolver interface {
	// Resolve never fails. If the identity provider errors mid-walk the
	// resolver degrades to the minimum-privilege set rather than guessing
	// at partial results.
	Resolve(ctx context.Context, provider identity.Provider, primary string) identity.Set
}

type defaultResolver struct {
	maxDepth int
	logger   *slog.Logger
}

// NewResolver returns the standard breadth-first resolver. maxDepth
// bounds the equivalence walk; hops beyond it are dropped.
func NewResolver(maxDepth int, logger *slog.Logger) Resolver {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &defaultResolver{maxDepth: maxDepth, logger: logger}
}

func (r *defaultResolver) Resolve(ctx context.Context, provider identity.Provider, primary string) identity.Set {
	// Anonymous requesters hold only the public pseudo-subject.
	if primary == "" || primary == identity.Public {
		return identity.NewSet(identity.Public)
	}

	set := identity.NewSet(primary, identity.Public, identity.AuthenticatedUser)
	if provider == nil {
		return set
	}

	type node struct {
		subject string
		depth   int
	}
	queue := []node{{subject: primary, depth: 0}}
	visited := map[string]bool{primary: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= r.maxDepth {
			continue
		}

		equiv, err := provider.EquivalentIdentities(ctx, cur.subject)
		if err != nil {
			r.logger.Warn("identity expansion failed, degrading to minimum privilege",
				"subject", primary, "at", cur.subject, "error", err)
			return minimumSet(primary)
		}
		groups, err := provider.GroupMemberships(ctx, cur.subject)
		if err != nil {
			r.logger.Warn("group lookup failed, degrading to minimum privilege",
				"subject", primary, "at", cur.subject, "error", err)
			return minimumSet(primary)
		}

		for _, next := range append(equiv, groups...) {
			if next == "" || visited[next] {
				continue
			}
			visited[next] = true
			set.Add(next)
			queue = append(queue, node{subject: next, depth: cur.depth + 1})
		}
	}

	verified, err := provider.IsVerified(ctx, primary)
	if err != nil {
		// Verification status is an upgrade only, so a failed lookup
		// just withholds the verified pseudo-subject.
		r.logger.Warn("verification lookup failed", "subject", primary, "error", err)
	} else if verified {
		set.Add(identity.VerifiedUser)
	}
	return set
}

func minimumSet(primary string) identity.Set {
	return identity.NewSet(primary, identity.Public, identity.AuthenticatedUser)
}
