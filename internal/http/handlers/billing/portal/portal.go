// Package portal реализует HTTP-обработчик сессии портала самообслуживания.
package portal

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/metrics"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Service описывает выдачу сессий портала.
type Service interface {
	CreatePortalSession(ctx context.Context, identity *models.Identity) (string, error)
}

// Handler выдаёт адрес портала управления подпиской.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Портал управления подпиской
// @Tags Billing
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Адрес портала"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Клиент не найден"
// @Failure 502 {object} response.ErrorResponse "Платёжная система недоступна"
// @Router /api/v1/billing/portal [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.portal"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	identity := middlewarectx.IdentityFromContext(r.Context())
	if identity == nil {
		response.WriteError(w, r, models.ErrUnauthenticated)
		return
	}

	url, err := h.service.CreatePortalSession(r.Context(), identity)
	metrics.SessionsTotal.WithLabelValues("portal", metrics.Outcome(err)).Inc()
	if err != nil {
		log.Error("failed to create portal session", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"url": url}))
}
