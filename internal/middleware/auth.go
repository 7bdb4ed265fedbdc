package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/collagesync/server/internal/models"
	"github.com/collagesync/server/internal/services"
)

type contextKey string

const UserContextKey contextKey = "user"

// GetUserFromContext retrieves the authenticated user from request context
func GetUserFromContext(ctx context.Context) *models.User {
	if user, ok := ctx.Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// Auth authenticates API requests. Two credential kinds are accepted, both
// as `Authorization: Bearer {token}`: a JWT session token (web clients) or
// a per-user API key (the canvas app). Session tokens may also arrive in
// the session_token cookie. skipPaths entries ending in * match prefixes.
func Auth(auth *services.AuthService, users UserGetter, skipPaths []string) func(http.Handler) http.Handler {
	skipExact := make(map[string]bool)
	var skipPrefixes []string
	for _, p := range skipPaths {
		if strings.HasSuffix(p, "*") {
			skipPrefixes = append(skipPrefixes, strings.TrimSuffix(p, "*"))
		} else {
			skipExact[p] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			if skipExact[path] {
				next.ServeHTTP(w, r)
				return
			}
			for _, prefix := range skipPrefixes {
				if strings.HasPrefix(path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Only API routes are authenticated
			if !strings.HasPrefix(path, "/api") {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required.")
				return
			}

			user, code, msg := resolveUser(r.Context(), auth, users, token)
			if user == nil {
				writeAuthError(w, code, msg)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserGetter is the subset of the user store the middleware needs
type UserGetter interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// resolveUser maps a bearer token to an active user. Session tokens are
// JWTs and always contain dots; API keys are hex and never do.
func resolveUser(ctx context.Context, auth *services.AuthService, users UserGetter, token string) (*models.User, int, string) {
	if strings.Contains(token, ".") {
		claims, err := auth.ValidateSession(token)
		if err != nil {
			return nil, http.StatusUnauthorized, "Session expired or invalid."
		}

		user, err := users.GetByID(ctx, claims.Subject)
		if err != nil {
			return nil, http.StatusInternalServerError, "Internal server error."
		}
		if user == nil || !user.IsActive {
			return nil, http.StatusUnauthorized, "User not found or disabled."
		}
		return user, 0, ""
	}

	user, err := auth.ValidateAPIKey(ctx, token)
	if err == models.ErrInvalidAPIKey {
		return nil, http.StatusUnauthorized, "Invalid API key."
	}
	if err != nil {
		return nil, http.StatusInternalServerError, "Internal server error."
	}
	if !user.IsActive {
		return nil, http.StatusForbidden, "User account is disabled."
	}
	return user, 0, ""
}

// bearerToken extracts the credential from the Authorization header or the
// session cookie
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	if cookie, err := r.Cookie("session_token"); err == nil {
		return cookie.Value
	}

	// Websocket clients cannot set headers from the browser; allow the
	// key as a query parameter on /api/ws routes only
	if strings.HasPrefix(r.URL.Path, "/api/ws") {
		return r.URL.Query().Get("token")
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
