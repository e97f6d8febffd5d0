package warrant

import "context"

type contextKey int

const ctxKeySubject contextKey = iota

// WithSubject returns a context carrying the authenticated primary
// subject. The HTTP layer sets this after certificate or token
// authentication; middleware reads it back.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxKeySubject, subject)
}

// SubjectFromContext returns the authenticated primary subject, or ""
// for anonymous requests.
func SubjectFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxKeySubject).(string)
	if !ok {
		return ""
	}
	return v
}
