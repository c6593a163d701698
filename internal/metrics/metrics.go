// Package metrics содержит Prometheus-метрики биллинга.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal считает запросы webhook по типу события и HTTP-статусу.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Subsystem: "webhook",
		Name:      "requests_total",
		Help:      "Total Stripe webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration измеряет длительность обработки webhook.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "billing",
		Subsystem: "webhook",
		Name:      "duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// SessionsTotal считает выданные сессии оформления и портала по результату.
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Subsystem: "sessions",
		Name:      "created_total",
		Help:      "Checkout and portal session requests by kind and outcome.",
	}, []string{"kind", "outcome"})

	// NotificationsTotal считает обработанные уведомления об оплате.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billing",
		Subsystem: "notifications",
		Name:      "total",
		Help:      "Invoice notifications by stage (published, sent) and outcome.",
	}, []string{"stage", "outcome"})
)

// Outcome возвращает метку результата операции.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
