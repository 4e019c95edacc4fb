package middleware

import (
	"context"
	"net/http"
	"strings"

	tgAuth "github.com/MrEthical07/tgAuth"
)

// Validator validates session tokens. *tgAuth.Engine implements it.
type Validator interface {
	ValidateSession(ctx context.Context, token string) (*tgAuth.AuthResult, error)
}

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by [Guard].
func AuthResultFromContext(ctx context.Context) (*tgAuth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*tgAuth.AuthResult)
	return res, ok && res != nil
}

// WithAuthResult stores res in ctx the way [Guard] does.
func WithAuthResult(ctx context.Context, res *tgAuth.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Guard rejects requests without a valid bearer session token. Backend
// failures answer 503 so clients can tell them from bad credentials.
func Guard(v Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := v.ValidateSession(r.Context(), token)
			if err != nil {
				if tgAuth.KindOf(err).Retryable() {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(value string) (string, bool) {
	return bearerToken(value)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
