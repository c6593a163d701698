// Package customer реализует HTTP-обработчик записи клиента платёжной системы.
package customer

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Service описывает поиск клиента пользователя.
type Service interface {
	GetByUser(ctx context.Context, userID string) (*models.Customer, error)
}

// Handler отдаёт клиента вызывающего.
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
// @Summary Клиент платёжной системы
// @Description Возвращает запись клиента пользователя или null.
// @Tags Billing
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Клиент"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /api/v1/billing/customer [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.customer"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	identity := middlewarectx.IdentityFromContext(r.Context())
	if identity == nil {
		render.JSON(w, r, response.StatusOKWithData(map[string]any{"customer": nil}))
		return
	}

	c, err := h.service.GetByUser(r.Context(), identity.Subject)
	if err != nil {
		log.Error("failed to get customer", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"customer": c}))
}
