package middleware

import (
	"context"
	"net/http"
	"strings"

	"shopcore/internal/identity/models"
	"shopcore/internal/identity/service"
	"shopcore/internal/tenant/scope"
	dErrors "shopcore/pkg/domain-errors"
	"shopcore/pkg/platform/httputil"
)

type claimsKey struct{}

// ClaimsFromContext returns the verified session claims, if any.
func ClaimsFromContext(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*service.Claims)
	return claims, ok
}

// Authenticate verifies the bearer token and resolves the request's tenant
// scope from the signed claims. This is the only place an authenticated
// request's scope is established.
func Authenticate(svc *service.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			claims, err := svc.Verify(tokenString)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = scope.WithScope(ctx, scope.ForTenant(claims.TenantID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects sessions lacking the role with 403.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !claims.HasRole(role) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
