// Package current реализует HTTP-обработчик текущей подписки пользователя.
package current

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

// Service описывает выбор текущей подписки.
type Service interface {
	GetCurrent(ctx context.Context, userID string) (*models.Subscription, error)
}

// Handler отдаёт текущую подписку вызывающего.
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
// @Summary Текущая подписка
// @Description Возвращает текущую подписку пользователя или null, если подписки нет или запрос анонимный.
// @Tags Billing
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Текущая подписка"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /api/v1/billing/subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.current"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	identity := middlewarectx.IdentityFromContext(r.Context())
	if identity == nil {
		render.JSON(w, r, response.StatusOKWithData(map[string]any{"subscription": nil}))
		return
	}

	sub, err := h.service.GetCurrent(r.Context(), identity.Subject)
	if err != nil {
		log.Error("failed to get current subscription", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"subscription": sub}))
}
