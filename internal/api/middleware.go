package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/identity"
)

// TokenVerifier turns a bearer token into an actor.
type TokenVerifier interface {
	Verify(token string, now time.Time) (identity.Actor, error)
}

// Authenticate resolves the request actor and stores it in the context.
//
// Expected header:
// - Authorization: Bearer <JWT>
//
// When devHeaders is true (never in prod) and no Authorization header is sent,
// the actor may be given directly via X-User-ID and X-User-Role to keep local
// testing simple.
func Authenticate(tokens TokenVerifier, devHeaders bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				if tokens == nil {
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session tokens are not configured")
					return
				}
				actor, err := tokens.Verify(strings.TrimSpace(authz[7:]), time.Now())
				if err != nil {
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid session token")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
				return
			}

			if devHeaders {
				userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
				role, err := identity.ParseRole(r.Header.Get("X-User-Role"))
				if userID != "" && err == nil {
					actor := identity.Actor{ID: userID, Role: role, Name: strings.TrimSpace(r.Header.Get("X-User-Name"))}
					next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
					return
				}
			}

			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing session token")
		})
	}
}

// RequireRole rejects requests whose actor holds none of roles.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing actor identity")
				return
			}
			if !actor.Is(roles...) {
				WriteError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
