package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/venture-billing/internal/gateway"
	"github.com/magabrotheeeer/venture-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/effects"
)

// Reconciler переводит подписанные уведомления провайдеров в переходы
// состояния реестра. Повторная доставка одного события ничего не меняет.
type Reconciler struct {
	repo     Repository
	router   GatewayRouter
	announce *announcer
	log      *slog.Logger
}

// NewReconciler создает Reconciler.
func NewReconciler(log *slog.Logger, repo Repository, router GatewayRouter, dispatcher effects.Dispatcher) *Reconciler {
	return &Reconciler{
		repo:     repo,
		router:   router,
		announce: &announcer{users: repo, effects: dispatcher, log: log},
		log:      log,
	}
}

// HandleStripe обрабатывает вебхук Stripe.
func (r *Reconciler) HandleStripe(ctx context.Context, rawBody []byte, signature string) (string, error) {
	return r.Handle(ctx, models.GatewayStripe, rawBody, signature)
}

// HandlePaystack обрабатывает вебхук Paystack.
func (r *Reconciler) HandlePaystack(ctx context.Context, rawBody []byte, signature string) (string, error) {
	return r.Handle(ctx, models.GatewayPaystack, rawBody, signature)
}

// Handle проверяет подпись, разбирает событие и завершает платеж.
// Возвращает исход для метрик. Ошибка с models.ErrSignatureInvalid или
// models.ErrValidation означает отказ в приеме, остальные ошибки инфраструктурные
// и провайдер должен повторить доставку.
func (r *Reconciler) Handle(ctx context.Context, name models.Gateway, rawBody []byte, signature string) (outcome string, err error) {
	const op = "payment.Reconcile"
	log := r.log.With(slog.String("op", op), slog.String("gateway", string(name)))
	defer func() {
		metrics.WebhookEvents.WithLabelValues(string(name), outcome).Inc()
	}()

	g, err := r.router.ByName(name)
	if err != nil {
		return metrics.OutcomeError, fmt.Errorf("%s: %w", op, err)
	}
	parser, ok := g.(gateway.WebhookParser)
	if !ok {
		return metrics.OutcomeError, fmt.Errorf("%s: gateway %s cannot parse webhooks", op, name)
	}

	if !g.VerifyWebhookSignature(rawBody, signature) {
		log.Warn("webhook signature rejected")
		return metrics.OutcomeInvalidSignature, fmt.Errorf("%s: %w", op, models.ErrSignatureInvalid)
	}

	ev, err := parser.ParseWebhook(rawBody)
	if err != nil {
		log.Warn("failed to parse signed webhook", sl.Err(err))
		return metrics.OutcomeIgnored, fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.String("event", ev.Type), sl.Ref(ev.Reference))

	if !ev.Success {
		log.Debug("ignoring non-success event")
		return metrics.OutcomeIgnored, nil
	}
	if ev.Reference == "" {
		log.Warn("success event without reference")
		return metrics.OutcomeIgnored, nil
	}
	if _, ok := models.ParseReferenceType(ev.Reference); !ok {
		log.Info("reference was not issued by billing")
		return metrics.OutcomeIgnored, nil
	}

	rec, err := r.repo.GetPendingPaymentByReference(ctx, ev.Reference)
	if errors.Is(err, models.ErrNotFound) {
		log.Info("no pending payment for reference, already handled")
		return metrics.OutcomeDuplicate, nil
	}
	if err != nil {
		log.Error("failed to load pending payment", sl.Err(err))
		return metrics.OutcomeError, fmt.Errorf("%s: %w", op, err)
	}
	if rec.Gateway != name {
		log.Warn("event gateway does not match ledger", slog.String("ledger_gateway", string(rec.Gateway)))
		return metrics.OutcomeIgnored, nil
	}

	amountMinor, currencyCode, status := ev.AmountMinor, ev.Currency, ev.Type
	providerRef := ev.ProviderRef
	if !ev.Verified {
		ref := ev.ProviderRef
		if ref == "" {
			ref = ev.Reference
		}
		v, err := g.VerifyTransaction(ctx, ref)
		if err != nil {
			log.Error("failed to re-verify transaction", sl.Err(err))
			return metrics.OutcomeError, fmt.Errorf("%s: %w", op, err)
		}
		if !v.Success {
			log.Warn("provider does not confirm the event", slog.String("provider_status", v.Status))
			return metrics.OutcomeIgnored, nil
		}
		amountMinor, currencyCode, status = v.AmountMinor, v.Currency, v.Status
		if v.ProviderRef != "" {
			providerRef = v.ProviderRef
		}
	}

	if reason := amountMismatch(rec, amountMinor, currencyCode); reason != "" {
		log.Warn("provider amount does not match ledger", slog.String("reason", reason))
		failed, err := r.repo.FailPayment(ctx, rec.ID, models.GatewayMetadata{Error: reason, ProviderState: status})
		if err != nil {
			return metrics.OutcomeError, fmt.Errorf("%s: %w", op, err)
		}
		if !failed {
			return metrics.OutcomeDuplicate, nil
		}
		return metrics.OutcomeFailed, nil
	}

	won, err := r.repo.CompletePayment(ctx, rec.ID, models.GatewayMetadata{
		ProviderRef:   providerRef,
		ProviderState: status,
		CompletedBy:   OriginWebhook,
	})
	if err != nil {
		log.Error("failed to complete payment", sl.Err(err))
		return metrics.OutcomeError, fmt.Errorf("%s: %w", op, err)
	}
	if !won {
		log.Info("payment already resolved concurrently")
		return metrics.OutcomeDuplicate, nil
	}

	r.announce.completed(ctx, rec, OriginWebhook)
	return metrics.OutcomeCompleted, nil
}
