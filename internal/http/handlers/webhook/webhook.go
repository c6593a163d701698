// Package webhook реализует HTTP-обработчик событий платёжной системы.
//
// Обработчик проверяет подпись Stripe-Signature по сырому телу запроса, разбирает событие
// в типизированный вариант и передаёт его сервису. Ответ 200 означает, что событие принято
// и повторная доставка не нужна; 5xx заставляет платёжную систему повторить доставку.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/magabrotheeeer/saas-billing/internal/http/response"
	"github.com/magabrotheeeer/saas-billing/internal/lib/sl"
	"github.com/magabrotheeeer/saas-billing/internal/metrics"
	"github.com/magabrotheeeer/saas-billing/internal/models"
	"github.com/magabrotheeeer/saas-billing/internal/paymentprovider"
)

const bodyLimit = 1 << 20

// Service применяет проверенные события.
type Service interface {
	HandleEvent(ctx context.Context, event paymentprovider.Event) error
}

// Handler принимает webhook платёжной системы.
type Handler struct {
	log     *slog.Logger
	service Service
	secret  string
}

type receivedResponse struct {
	Received bool `json:"received"`
}

// New создает новый Handler. Пустой secret делает любой запрос ошибкой конфигурации.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:     log,
		service: service,
		secret:  secret,
	}
}

// ServeHTTP godoc
// @Summary Webhook платёжной системы
// @Description Принимает подписанные события Stripe и синхронизирует клиентов и подписки.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param Stripe-Signature header string true "Подпись события"
// @Success 200 {object} map[string]bool "Событие принято"
// @Failure 400 {object} response.ErrorResponse "Нет подписи или подпись неверна"
// @Failure 500 {object} response.ErrorResponse "Не настроен секрет или ошибка обработки"
// @Router /stripe/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic while handling webhook", slog.String("event_type", eventType), slog.Any("panic", rec))
			status = http.StatusInternalServerError
			render.Status(r, status)
			render.JSON(w, r, response.Error("webhook handler failed"))
		}
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	fail := func(code int, msg string) {
		status = code
		render.Status(r, code)
		render.JSON(w, r, response.Error(msg))
	}

	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warn("failed to read webhook body", sl.Err(err))
		fail(http.StatusBadRequest, "failed to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(signature) == "" {
		log.Warn("webhook without signature")
		fail(http.StatusBadRequest, "missing Stripe-Signature header")
		return
	}

	if strings.TrimSpace(h.secret) == "" {
		log.Error("webhook secret is not configured")
		fail(http.StatusInternalServerError, "webhook secret is not configured")
		return
	}

	raw, err := stripewebhook.ConstructEventWithOptions(payload, signature, h.secret, stripewebhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		log.Warn("webhook signature verification failed", sl.Err(fmt.Errorf("%w: %w", models.ErrVerification, err)))
		fail(http.StatusBadRequest, "webhook signature verification failed")
		return
	}
	eventType = string(raw.Type)
	log = log.With(slog.String("event_id", raw.ID), slog.String("event_type", eventType))

	event, err := paymentprovider.DecodeEvent(raw)
	if err == nil {
		err = h.service.HandleEvent(r.Context(), event)
	}
	switch {
	case err == nil:
	case errors.Is(err, models.ErrMalformedEvent):
		log.Warn("malformed webhook event acknowledged", sl.Err(err))
	default:
		log.Error("failed to handle webhook event", sl.Err(err))
		fail(http.StatusInternalServerError, "webhook handler failed")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, receivedResponse{Received: true})
}
