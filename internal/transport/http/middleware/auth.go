package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-api-accounts/internal/domain"
)

type contextKey string

const (
	UserKey   contextKey = "user"
	BearerKey contextKey = "bearer"
)

// Resolver turns an access token into the account it belongs to.
type Resolver interface {
	Resolve(ctx context.Context, bearer string) (*domain.User, error)
}

// Auth returns middleware that resolves the Bearer token against the token store and
// injects the user and the raw token into context.
func Auth(sessions Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeFailure(w, http.StatusUnauthorized, "invalid_auth", "Auth Bearer not provided!")
				return
			}
			u, err := sessions.Resolve(r.Context(), bearer)
			switch {
			case errors.Is(err, domain.ErrInvalidOrExpiredToken):
				writeFailure(w, http.StatusUnauthorized, "invalid_token", "Auth Token is Invalid or Expired!")
				return
			case err != nil:
				slog.Error("resolve bearer", "err", err)
				writeFailure(w, http.StatusInternalServerError, "server_error", "Server Error")
				return
			}
			ctx := context.WithValue(r.Context(), UserKey, u)
			ctx = context.WithValue(ctx, BearerKey, bearer)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(UserKey).(*domain.User)
	return u, ok
}

// BearerFromContext extracts the access token the request was authenticated with.
func BearerFromContext(ctx context.Context) (string, bool) {
	b, ok := ctx.Value(BearerKey).(string)
	return b, ok
}
