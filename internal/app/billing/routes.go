// Package billing собирает HTTP API биллинга: webhook платёжной системы,
// выдачу сессий оформления и портала и проверки доступа.
package billing

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/billing/active"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/billing/checkout"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/billing/current"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/billing/customer"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/billing/portal"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/health"
	"github.com/magabrotheeeer/saas-billing/internal/http/handlers/webhook"
	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
)

// Ledger — операции журнала подписок, нужные фасаду проверки доступа.
type Ledger interface {
	current.Service
	active.Service
}

// Sessions выдаёт сессии оформления и портала.
type Sessions interface {
	checkout.Service
	portal.Service
}

// Deps содержит зависимости маршрутов.
type Deps struct {
	Ledger        Ledger
	Customers     customer.Service
	Sessions      Sessions
	Webhook       webhook.Service
	WebhookSecret string
	Tokens        middlewarectx.TokenParser
	Limiter       *middlewarectx.RateLimiter
	Health        health.Checker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	webhookHandler := webhook.New(logger, deps.Webhook, deps.WebhookSecret)
	r.Post("/stripe/webhook", webhookHandler.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/stripe/webhook", webhookHandler.ServeHTTP)

		r.Route("/billing", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.OptionalIdentityMiddleware(deps.Tokens, logger))
				r.Get("/subscription", current.New(logger, deps.Ledger).ServeHTTP)
				r.Get("/subscription/active", active.New(logger, deps.Ledger).ServeHTTP)
				r.Get("/customer", customer.New(logger, deps.Customers).ServeHTTP)
			})

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.IdentityMiddleware(deps.Tokens, logger))
				if deps.Limiter != nil {
					r.Use(deps.Limiter.Middleware(logger))
				}
				r.Post("/checkout", checkout.New(logger, deps.Sessions).ServeHTTP)
				r.Post("/portal", portal.New(logger, deps.Sessions).ServeHTTP)
			})
		})
	})

	r.Get("/health", health.New(logger, deps.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
