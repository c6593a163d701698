// Package active реализует проверку наличия активной подписки.
package active

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
)

// Service описывает проверку доступа.
type Service interface {
	HasActive(ctx context.Context, userID string) (bool, error)
}

// Handler отвечает, есть ли у вызывающего активная подписка.
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
// @Summary Есть ли активная подписка
// @Tags Billing
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Флаг active"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /api/v1/billing/subscription/active [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.active"

	identity := middlewarectx.IdentityFromContext(r.Context())
	if identity == nil {
		render.JSON(w, r, response.StatusOKWithData(map[string]any{"active": false}))
		return
	}

	active, err := h.service.HasActive(r.Context(), identity.Subject)
	if err != nil {
		h.log.Error("failed to check active subscription",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"active": active}))
}
