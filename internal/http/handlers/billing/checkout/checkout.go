// Package checkout реализует HTTP-обработчик создания сессии оформления подписки.
//
// Handler принимает ключ тарифа, создаёт (при необходимости) клиента платёжной системы
// и возвращает адрес страницы оплаты, на который клиент перенаправляет пользователя.
package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/saas-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/metrics"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

// Service описывает выдачу сессий оформления.
type Service interface {
	CreateCheckoutSession(ctx context.Context, identity *models.Identity, planKey string) (string, error)
}

// Request описывает тело запроса на оформление.
type Request struct {
	PlanKey string `json:"plan_key" validate:"required" example:"PRO_MONTHLY"`
}

// Handler выдаёт адрес страницы оплаты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Оформить подписку
// @Description Создаёт сессию оплаты для выбранного тарифа и возвращает её адрес.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Ключ тарифа"
// @Success 200 {object} response.Response "Адрес страницы оплаты"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Биллинг не настроен"
// @Failure 502 {object} response.ErrorResponse "Платёжная система недоступна"
// @Router /api/v1/billing/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	identity := middlewarectx.IdentityFromContext(r.Context())
	if identity == nil {
		log.Warn("checkout requested without identity")
		response.WriteError(w, r, models.ErrUnauthenticated)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	url, err := h.service.CreateCheckoutSession(r.Context(), identity, req.PlanKey)
	metrics.SessionsTotal.WithLabelValues("checkout", metrics.Outcome(err)).Inc()
	if err != nil {
		log.Error("failed to create checkout session", slog.String("plan_key", req.PlanKey), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("checkout session created", slog.String("user_id", identity.Subject), slog.String("plan_key", req.PlanKey))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"url": url}))
}
