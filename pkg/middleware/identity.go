package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader is set by the gateway once the identity provider has
// authenticated the caller. The storefront trusts it as is.
const UserIDHeader = "X-User-ID"

// RoleHeader carries the caller's role claim, set by the gateway alongside
// UserIDHeader. Internal systems such as fulfillment call with their own role.
const RoleHeader = "X-User-Role"

type (
	identityKey struct{}
	roleKey     struct{}
)

// Identity copies the caller id and role from the gateway headers into the
// request context. Requests without them pass through anonymously.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := strings.TrimSpace(r.Header.Get(UserIDHeader)); id != "" {
			ctx = WithUserID(ctx, id)
		}
		if role := strings.TrimSpace(r.Header.Get(RoleHeader)); role != "" {
			ctx = context.WithValue(ctx, roleKey{}, role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserIDFromContext(r.Context()) == "" {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+UserIDHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers whose role is not one of roles with 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[RoleFromContext(r.Context())]; !ok {
				writeJSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID stores the caller id in ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// UserIDFromContext returns the caller id set by Identity, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(string)
	return id
}

// RoleFromContext returns the caller role set by Identity, or "".
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
