// ABOUTME: Authentication context for tracking client identity through request handlers
// ABOUTME: Provides WithClient/FromContext for propagating identity via context

package auth

import (
	"context"
)

// clientContextKey is the key type for storing the client ID in context.Context.
type clientContextKey struct{}

// WithClient returns a new context with the authenticated client ID attached.
func WithClient(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientContextKey{}, clientID)
}

// FromContext retrieves the authenticated client ID from the context,
// returning "" if the request was not authenticated.
func FromContext(ctx context.Context) string {
	val := ctx.Value(clientContextKey{})
	if val == nil {
		return ""
	}
	id, ok := val.(string)
	if !ok {
		return ""
	}
	return id
}
