package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"pqrs.org/internal/auth"
	"pqrs.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/register",
	"/v1/auth/refresh",
	"/v1/auth/validate-username",
	"/v1/auth/validate-email",
	"/healthz",
	"/readyz",
	"/metrics",
	"/v1/info",
	"/",
}

// withAuth resolves the bearer token into an active user and stores it in
// the request context. Requests to public paths pass through untouched.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a.deps.Resolver == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.AuthFailure("missing_token")
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		user, err := a.deps.Resolver.ResolveActive(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				obs.AuthFailure("invalid_token")
				writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
			case errors.Is(err, auth.ErrInactiveAccount):
				obs.AuthFailure("inactive_account")
				writeError(w, r, http.StatusForbidden, "account is inactive")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithUser(r.Context(), user)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensure returns the authenticated user after running the access checks.
// On denial it writes the response and reports false.
func (a *API) ensure(w http.ResponseWriter, r *http.Request, checks ...auth.Check) (*auth.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		obs.AuthFailure("unauthenticated")
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	if d := auth.All(checks...)(user); !d.Allowed {
		obs.AuthFailure("forbidden")
		writeError(w, r, http.StatusForbidden, d.Reason)
		return nil, false
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
