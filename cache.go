package warrant

import (
	"context"

	"github.com/datafed/warrant/identity"
)

// Cache stores authorization decisions keyed by the resolved subject set,
// operation, and PID. Implementations must treat entries as invalid after
// any policy or lifecycle change to the object, which the engine signals
// through InvalidateObject.
type Cache interface {
	Get(ctx context.Context, subjects identity.Set, op Operation, pid string) (*AuthResult, bool)
	Set(ctx context.Context, subjects identity.Set, op Operation, pid string, result *AuthResult)

	// InvalidateObject drops all entries for a PID.
	InvalidateObject(ctx context.Context, pid string)

	// InvalidateSubject drops all entries whose subject set contains the
	// subject. Called when identity mappings change.
	InvalidateSubject(ctx context.Context, subject string)
}
