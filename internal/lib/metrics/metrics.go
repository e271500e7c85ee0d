// Package metrics регистрирует метрики Prometheus платежного контура.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ForexFallback — сколько раз конвертация использовала курс 1.
	ForexFallback = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forex_fallback_total",
		Help: "Currency conversions that fell back to the identity rate.",
	}, []string{"reason"})

	// WebhookEvents — входящие вебхуки по шлюзу и результату обработки.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook deliveries by gateway and outcome.",
	}, []string{"gateway", "outcome"})

	// GatewayErrors — ошибки вызовов платежных провайдеров.
	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Failed calls to payment providers.",
	}, []string{"gateway", "op"})

	// PaymentsCompleted — переходы платежей в completed/Confirmed.
	PaymentsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_completed_total",
		Help: "Payments that reached a completed state, by type and origin.",
	}, []string{"type", "origin"})

	// EarlyAccessEnrollments — попытки записи в программу раннего доступа.
	EarlyAccessEnrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "early_access_enrollments_total",
		Help: "Early access enrollment attempts by result.",
	}, []string{"result"})

	// EffectsPublishFailures — задачи побочных эффектов, которые не удалось поставить в очередь.
	EffectsPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "effects_publish_failures_total",
		Help: "Side-effect tasks that could not be published.",
	}, []string{"kind"})

	// HTTPRequests — количество HTTP запросов по маршруту и статусу.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route pattern, method and status.",
	}, []string{"route", "method", "status"})
)

// Исходы обработки вебхука.
const (
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeIgnored          = "ignored"
	OutcomeDuplicate        = "duplicate"
	OutcomeCompleted        = "completed"
	OutcomeFailed           = "failed"
	OutcomeError            = "error"
)
