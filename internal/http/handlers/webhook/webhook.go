// Package webhook принимает уведомления платежных провайдеров.
//
// Тело читается целиком (не более 64 КиБ), подпись проверяется сервисом по
// сырым байтам. Провайдер получает 200 на любое принятое событие, включая
// повторы и неинтересные типы, 400 на неверную подпись и 500, когда доставку
// нужно повторить.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// MaxBodyBytes — предельный размер тела вебхука.
const MaxBodyBytes = 64 << 10

// Заголовки подписи провайдеров.
const (
	StripeSignatureHeader   = "Stripe-Signature"
	PaystackSignatureHeader = "X-Paystack-Signature"
)

// HandleFunc сверяет событие с реестром и возвращает исход.
type HandleFunc func(ctx context.Context, rawBody []byte, signature string) (string, error)

// Handler обрабатывает POST /webhooks/{gateway}.
type Handler struct {
	log             *slog.Logger
	gateway         models.Gateway
	signatureHeader string
	handle          HandleFunc
}

// New создает Handler для провайдера.
func New(log *slog.Logger, gateway models.Gateway, signatureHeader string, handle HandleFunc) *Handler {
	return &Handler{
		log:             log,
		gateway:         gateway,
		signatureHeader: signatureHeader,
		handle:          handle,
	}
}

// ServeHTTP godoc
// @Summary Вебхук платежного провайдера
// @Tags Webhooks
// @Accept json
// @Success 200
// @Failure 400 "Неверная подпись"
// @Failure 500 "Повторить доставку"
// @Router /webhooks/stripe [post]
// @Router /webhooks/paystack [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("gateway", string(h.gateway)),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	outcome, err := h.handle(r.Context(), body, r.Header.Get(h.signatureHeader))
	switch {
	case err == nil:
	case errors.Is(err, models.ErrSignatureInvalid), errors.Is(err, models.ErrValidation):
		log.Warn("webhook rejected", slog.String("outcome", outcome), sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	default:
		log.Error("failed to process webhook", slog.String("outcome", outcome), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Info("webhook processed", slog.String("outcome", outcome))
	w.WriteHeader(http.StatusOK)
}
