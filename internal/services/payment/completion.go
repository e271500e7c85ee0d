package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/venture-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/effects"
)

// Источники завершения платежа.
const (
	OriginWebhook = "webhook"
	OriginVerify  = "verify"
)

var descriptions = map[models.PaymentType]string{
	models.PaymentSetupFee:             "Setup fee",
	models.PaymentTalentMarketplaceFee: "Talent marketplace fee",
	models.PaymentHirerPlatformFee:     "Hirer platform fee",
}

// Describe возвращает человекочитаемое название платежа.
func Describe(t models.PaymentType) string {
	if d, ok := descriptions[t]; ok {
		return d
	}
	return string(t)
}

type userReader interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// announcer ставит побочные задачи после перехода pending -> completed.
// Вызывается только победителем CAS, поэтому письмо уходит один раз.
type announcer struct {
	users   userReader
	effects effects.Dispatcher
	log     *slog.Logger
}

func (a *announcer) completed(ctx context.Context, rec *models.PaymentRecord, origin string) {
	metrics.PaymentsCompleted.WithLabelValues(string(rec.Type), origin).Inc()
	a.log.Info("payment completed",
		sl.Ref(rec.Reference),
		slog.String("type", string(rec.Type)),
		slog.String("gateway", string(rec.Gateway)),
		slog.String("origin", origin))

	a.effects.Audit(ctx, models.AuditEntry{
		ActorID:    rec.UserID,
		ActionType: "payment_completed",
		EntityType: "payment",
		EntityID:   rec.Reference,
		Details: map[string]any{
			"type":     rec.Type,
			"gateway":  rec.Gateway,
			"amount":   rec.Amount.StringFixed(2),
			"currency": rec.Currency,
			"origin":   origin,
		},
		CreatedAt: time.Now().UTC(),
	})
	a.effects.Notify(ctx, models.Notification{
		UserID:  rec.UserID,
		Type:    "payment",
		Title:   Describe(rec.Type) + " received",
		Message: fmt.Sprintf("We received your payment of %s %s.", rec.Amount.StringFixed(2), rec.Currency),
		Link:    "/dashboard",
	})

	user, err := a.users.GetUser(ctx, rec.UserID)
	if err != nil {
		a.log.Warn("skipping payment receipt email", sl.Ref(rec.Reference), sl.Err(err))
		return
	}
	a.effects.Email(ctx, models.EmailMessage{
		Type: effects.EmailPaymentReceipt,
		To:   user.Email,
		TemplateData: map[string]string{
			"amount":      rec.Amount.StringFixed(2),
			"currency":    rec.Currency,
			"description": Describe(rec.Type),
			"reference":   rec.Reference,
		},
	})
}
