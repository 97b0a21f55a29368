// Package correlationid carries a request correlation id through contexts,
// HTTP headers and outbox message headers.
package correlationid

import "context"

// Header is the HTTP and message header holding the correlation id.
const Header = "X-Correlation-ID"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the correlation id stored in ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
