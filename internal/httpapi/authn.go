package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"hydrobill.org/internal/store"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/api/login",
	"/api/register",
}

type userContextKey struct{}
type tokenContextKey struct{}

// ContextWithUser attaches the acting user to the context.
func ContextWithUser(ctx context.Context, u store.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, &u)
}

// UserFromContext extracts the acting user from the context.
func UserFromContext(ctx context.Context) (store.User, bool) {
	v, ok := ctx.Value(userContextKey{}).(*store.User)
	if !ok || v == nil {
		return store.User{}, false
	}
	return *v, true
}

// ContextWithToken stores the raw session token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the session token if it was attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// withAuth resolves the bearer session token to a user and attaches
// both to the request context. Only /api/ paths are guarded; anything
// else (health, metrics, unknown paths) falls through to the mux.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || !strings.HasPrefix(r.URL.Path, "/api/") || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		userID, ok := a.store.ResolveSession(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}
		user, ok := a.store.GetUser(userID)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		ctx = ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin returns the acting user only when it holds the admin
// role.
func requireAdmin(w http.ResponseWriter, r *http.Request) (store.User, bool) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return store.User{}, false
	}
	if user.Role != store.RoleAdmin {
		writeError(w, http.StatusForbidden, "admin role required")
		return store.User{}, false
	}
	return user, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
