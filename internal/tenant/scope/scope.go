// Package scope is the tenant isolation guard. A Scope is the tenant
// identity resolved once per request, either from an authenticated user or
// from a verified capability token. Every tenant-scoped store method takes a
// Scope; none accepts a raw tenant ID from request payloads. That makes
// omitting the tenant filter structurally impossible rather than a
// convention per call site.
package scope

import (
	"context"

	"github.com/google/uuid"
)

// Scope identifies the tenant a request is allowed to touch.
// The zero value grants access to nothing.
type Scope struct {
	TenantID uuid.UUID
}

// ForTenant builds a scope for the given tenant.
func ForTenant(tenantID uuid.UUID) Scope {
	return Scope{TenantID: tenantID}
}

// IsZero reports whether the scope carries no tenant identity. Guarded reads
// under a zero scope return empty results, never "all tenants" and never an
// error that reveals existence elsewhere.
func (s Scope) IsZero() bool {
	return s.TenantID == uuid.Nil
}

// Covers reports whether a record owned by tenantID is visible to this scope.
func (s Scope) Covers(tenantID uuid.UUID) bool {
	return !s.IsZero() && s.TenantID == tenantID
}

type scopeKey struct{}

// WithScope stores the resolved scope in the request context.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the resolved scope, or the zero Scope when the request
// carries no tenant identity.
func FromContext(ctx context.Context) Scope {
	if s, ok := ctx.Value(scopeKey{}).(Scope); ok {
		return s
	}
	return Scope{}
}
