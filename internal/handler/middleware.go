package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/finance-tips/finance-tips-go/internal/domain"
	"github.com/finance-tips/finance-tips-go/internal/service"
)

type contextKey string

const accountContextKey contextKey = "accountContext"

// AccountContextFromContext returns the authenticated caller, if any.
func AccountContextFromContext(ctx context.Context) (*domain.AccountContext, bool) {
	ac, ok := ctx.Value(accountContextKey).(*domain.AccountContext)
	return ac, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// JWTAuthMiddleware rejects requests without a valid access token.
func JWTAuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			ac, err := authService.VerifyAccessToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), accountContextKey, ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTAuthMiddleware attaches the caller identity when a valid
// token is present but lets anonymous requests through. Used by the
// calculator endpoints, which work without an account.
func OptionalJWTAuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token != "" {
				if ac, err := authService.VerifyAccessToken(token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), accountContextKey, ac))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
