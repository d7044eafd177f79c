package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/session"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/authenticating"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/apiErrors"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
)

type contextKey string

const (
	ContextKeyUser    contextKey = "user"
	ContextKeySession contextKey = "session"
)

// Rotas que não exigem sessão
var publicPaths = map[string]bool{
	"/v1/login":    true,
	"/healthcheck": true,
	"/metrics":     true,
}

func AuthMiddleware(authService authenticating.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if authHeader == "" || tokenString == authHeader {
				apiErrors.WriteError(w, apiErrors.ErrAuthenticationRequired, "authentication required", nil)
				return
			}

			sess, claims, err := authService.Authenticate(tokenString)
			if err != nil {
				code := apiErrors.ErrInvalidToken
				var authErr *authenticating.AuthError
				if errors.As(err, &authErr) {
					code = authErr.Code
				}

				log.ForContext(r.Context()).WithFields(log.Fields{
					"path":  r.URL.Path,
					"error": err.Error(),
				}).Warn("Requisição sem sessão válida")
				apiErrors.WriteError(w, code, err.Error(), nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess, claims)))
		})
	}
}

// WithSession coloca a sessão e as claims no contexto da requisição
func WithSession(ctx context.Context, sess *session.Session, claims *domain.Claims) context.Context {
	ctx = context.WithValue(ctx, ContextKeySession, sess)
	return context.WithValue(ctx, ContextKeyUser, claims)
}

// SessionFromContext retorna nil quando a requisição não passou pela autenticação
func SessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(ContextKeySession).(*session.Session)
	return sess
}

func ClaimsFromContext(ctx context.Context) (*domain.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyUser).(*domain.Claims)
	return claims, ok && claims != nil
}
