// Package middleware provides chi middleware for the control-plane API:
// JWT authentication, role enforcement, and the forced-password-change
// gate.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/marmos91/iscsitgt/internal/controlplane/api/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// GetClaimsFromContext returns the authenticated operator's claims, or nil
// if the request context carries none.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// extractBearerToken pulls the token out of an "Authorization: Bearer ..."
// header, case-insensitively on the scheme.
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefixLen = len("bearer ")
	if len(header) <= prefixLen || !strings.EqualFold(header[:prefixLen-1], "bearer") || header[prefixLen-1] != ' ' {
		return "", false
	}
	return header[prefixLen:], true
}

// JWTAuth requires a valid access token, rejecting the request with 401
// otherwise. On success, the operator's claims are attached to the
// request context.
func JWTAuth(svc *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := svc.ValidateAccessToken(token)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTAuth attaches claims to the context when a valid token is
// present, but never rejects the request -- used for endpoints whose
// behavior varies by caller identity without requiring authentication.
func OptionalJWTAuth(svc *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := svc.ValidateAccessToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects any request whose claims aren't present or aren't
// the admin role: 401 if unauthenticated, 403 if authenticated but not
// admin. Mutating control-plane operations (add_target, set_node_acl, ...)
// are admin-only; read-only queries accept any authenticated operator.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if !claims.IsAdmin() {
				http.Error(w, "admin role required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePasswordChange blocks every request for an operator flagged
// MustChangePassword except the allowed paths (typically the
// change-password endpoint itself).
func RequirePasswordChange(allowedPaths ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedPaths))
	for _, p := range allowedPaths {
		allowed[strings.TrimSuffix(p, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			if claims.MustChangePassword {
				if _, ok := allowed[strings.TrimSuffix(r.URL.Path, "/")]; !ok {
					http.Error(w, "password change required", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}
