// Package middleware provides HTTP authorization middleware for Warrant.
package middleware

import (
	"encoding/json"

	"github.com/xraph/forge"

	"github.com/datafed/warrant"
)

// Require enforces authorization. It resolves the primary subject from
// the request context (Forge user > anonymous) and checks whether the
// subject can perform the given operation on the object named by the
// route's "pid" parameter.
func Require(eng *warrant.Engine, op warrant.Operation) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			pid := ctx.Param("pid")

			rctx := warrant.WithSubject(ctx.Context(), subject)
			err := eng.Enforce(rctx, &warrant.AuthRequest{
				Subject:   subject,
				Operation: op,
				PID:       pid,
			})
			if err != nil {
				return denyResponse(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireAny allows the request if the subject may perform ANY of the
// operations on the object.
func RequireAny(eng *warrant.Engine, ops ...warrant.Operation) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			pid := ctx.Param("pid")

			rctx := warrant.WithSubject(ctx.Context(), subject)
			for _, op := range ops {
				result, err := eng.Authorize(rctx, &warrant.AuthRequest{
					Subject:   subject,
					Operation: op,
					PID:       pid,
				})
				if err == nil && result.Allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if the subject may perform ALL of
// the operations on the object.
func RequireAll(eng *warrant.Engine, ops ...warrant.Operation) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject := resolveSubject(ctx)
			pid := ctx.Param("pid")

			rctx := warrant.WithSubject(ctx.Context(), subject)
			for _, op := range ops {
				err := eng.Enforce(rctx, &warrant.AuthRequest{
					Subject:   subject,
					Operation: op,
					PID:       pid,
				})
				if err != nil {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// resolveSubject extracts the primary subject from context.
// Priority: Forge user ID → anonymous.
func resolveSubject(ctx forge.Context) string {
	if userID := forge.UserIDFromContext(ctx.Context()); userID != "" {
		return userID
	}
	return ""
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(403)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}
