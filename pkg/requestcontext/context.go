// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets the values; services and the audit pipeline read them. The
// package has no net/http dependency so background jobs and tests can use it
// without pulling in transport code.
//
// Usage in services (read values):
//
//	identity, ok := requestcontext.Identity(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithIdentity(ctx, requestcontext.Principal{ID: sub, Email: email})
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"strings"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	identityKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyIdentity    = identityKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// HasRole reports whether the principal holds role, case-insensitively.
func (p Principal) HasRole(role string) bool {
	return p.Role != "" && strings.EqualFold(p.Role, role)
}

// DisplayName returns Name, falling back to Email.
func (p Principal) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// -----------------------------------------------------------------------------
// Identity
// -----------------------------------------------------------------------------

// Identity retrieves the authenticated principal from the context.
// A nil context, a missing value or a principal without an ID all report false.
func Identity(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(ContextKeyIdentity).(Principal)
	if !ok || p.ID == "" {
		return Principal{}, false
	}
	return p, true
}

// WithIdentity injects an authenticated principal into the context.
func WithIdentity(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, p)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if ctx != nil {
		if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
			return t
		}
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
