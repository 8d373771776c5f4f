package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"agrisense-backend/internal/roles"
	"agrisense-backend/internal/scope"
)

type callerKeyType struct{}

var callerKey callerKeyType

// Middleware verifies the bearer token and stores the resolved caller in the
// request context. Requests without a valid token are rejected before any
// handler runs.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := extractToken(r)
			if tokenStr == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing token")
				return
			}
			claims, err := ParseToken(secret, tokenStr)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			id, err := uuid.Parse(claims.Subject)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			caller := scope.Caller{ID: id, Role: claims.Role}
			ctx := context.WithValue(r.Context(), callerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a subtree to administrators. Must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFrom(r)
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "missing token")
			return
		}
		if !roles.HasPermission(caller.Role, roles.Admin) {
			writeAuthError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func CallerFrom(r *http.Request) (scope.Caller, bool) {
	caller, ok := r.Context().Value(callerKey).(scope.Caller)
	return caller, ok
}

func extractToken(r *http.Request) string {
	// Authorization: Bearer <token>
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && len(auth) > 7 {
		return auth[7:]
	}
	// Cookie for websocket / browser flows
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": message})
}
