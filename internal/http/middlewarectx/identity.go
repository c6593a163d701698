// Package middlewarectx содержит HTTP middleware: извлечение проверенной личности
// из JWT и ограничение частоты запросов.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// IdentityKey — ключ проверенной личности в контексте.
const IdentityKey Key = "identity"

// TokenParser проверяет токены провайдера личности.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.IdentityClaims, error)
}

// IdentityMiddleware кладёт в контекст личность из заголовка Authorization.
// Запрос без заголовка проходит как анонимный, неверный токен отклоняется с 401.
func IdentityMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return identityMiddleware(parser, log, true)
}

// OptionalIdentityMiddleware работает как IdentityMiddleware, но запрос с неверным
// заголовком или токеном пропускается дальше как анонимный.
func OptionalIdentityMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return identityMiddleware(parser, log, false)
}

func identityMiddleware(parser TokenParser, log *slog.Logger, strict bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.IdentityMiddleware"

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
			reject := func(msg string) {
				if !strict {
					next.ServeHTTP(w, r)
					return
				}
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(msg))
			}

			tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				log.Warn("malformed authorization header", slog.Bool("strict", strict))
				reject("missing or invalid authorization header")
				return
			}

			claims, err := parser.ParseToken(strings.TrimSpace(tokenStr))
			if err != nil {
				log.Warn("invalid or expired token", slog.Bool("strict", strict), sl.Err(err))
				reject("invalid or expired token")
				return
			}

			identity := &models.Identity{
				Subject: claims.Subject,
				Name:    claims.Name,
				Email:   claims.Email,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity возвращает контекст с проверенной личностью.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// IdentityFromContext возвращает личность из контекста или nil для анонимного запроса.
func IdentityFromContext(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(IdentityKey).(*models.Identity)
	return identity
}
