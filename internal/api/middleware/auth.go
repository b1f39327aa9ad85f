package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Togather-Foundation/agenda/internal/api/problem"
	"github.com/Togather-Foundation/agenda/internal/auth"
	"github.com/Togather-Foundation/agenda/internal/domain/users"
	"github.com/Togather-Foundation/agenda/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	msgMissingToken = "Token não fornecido"
	msgInvalidToken = "Token inválido"
	msgAdminOnly    = "Acesso negado: apenas administradores"
	msgInternal     = "Erro interno do servidor."
)

type contextKeyAuth string

const userKey contextKeyAuth = "authUser"

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserFinder resolves the user a token refers to.
type UserFinder interface {
	Get(ctx context.Context, id string) (*users.User, error)
}

// Authenticate is the "authenticated" stage of the auth gate. It verifies the
// Authorization header and re-reads the user from the store, so deleted
// accounts and admin flag changes apply without waiting for token expiry.
// The resolved user is stored in the request context.
func Authenticate(tokens TokenVerifier, finder UserFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				metrics.AuthFailuresTotal.WithLabelValues("missing_token").Inc()
				problem.Error(w, r, http.StatusUnauthorized, msgMissingToken, nil)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
				problem.Error(w, r, http.StatusUnauthorized, msgInvalidToken, err)
				return
			}

			user, err := finder.Get(r.Context(), claims.ID)
			if errors.Is(err, users.ErrNotFound) {
				metrics.AuthFailuresTotal.WithLabelValues("unknown_user").Inc()
				problem.Error(w, r, http.StatusUnauthorized, msgInvalidToken, err)
				return
			}
			if err != nil {
				problem.Error(w, r, http.StatusInternalServerError, msgInternal, err)
				return
			}

			ctx := contextWithUser(r.Context(), user)
			logger := zerolog.Ctx(ctx).With().Str("user_id", user.ID).Logger()
			ctx = logger.WithContext(ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin is the "admin" stage. It must run after Authenticate and reads
// the admin flag from the resolved user record, not from the token.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil || !user.IsAdmin {
				metrics.AuthFailuresTotal.WithLabelValues("forbidden").Inc()
				problem.Error(w, r, http.StatusForbidden, msgAdminOnly, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func contextWithUser(ctx context.Context, user *users.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user resolved by Authenticate, or nil.
func UserFromContext(ctx context.Context) *users.User {
	if user, ok := ctx.Value(userKey).(*users.User); ok {
		return user
	}
	return nil
}
