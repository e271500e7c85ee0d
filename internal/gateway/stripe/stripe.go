// Package stripe — адаптер Stripe Checkout.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/magabrotheeeer/venture-billing/internal/gateway"
	"github.com/magabrotheeeer/venture-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// События Checkout, означающие успешную оплату.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// SessionAPI — подмножество клиента Checkout Sessions.
type SessionAPI interface {
	New(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
	Get(id string, params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

// Adapter реализует gateway.Gateway для Stripe.
type Adapter struct {
	sessions      SessionAPI
	webhookSecret string
	log           *slog.Logger
}

// New создаёт адаптер с собственным клиентом Stripe и таймаутом HTTP.
func New(log *slog.Logger, secretKey, webhookSecret string, timeout time.Duration) *Adapter {
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
	})
	sc := &client.API{}
	sc.Init(secretKey, &stripeapi.Backends{API: backend, Connect: backend, Uploads: backend})
	return NewWithSessions(log, sc.CheckoutSessions, webhookSecret)
}

// NewWithSessions создаёт адаптер поверх готового клиента сессий.
func NewWithSessions(log *slog.Logger, sessions SessionAPI, webhookSecret string) *Adapter {
	return &Adapter{sessions: sessions, webhookSecret: webhookSecret, log: log}
}

// Name возвращает имя провайдера.
func (a *Adapter) Name() models.Gateway {
	return models.GatewayStripe
}

// CreateCheckout создаёт Checkout Session в режиме payment с ценой, заданной на месте.
func (a *Adapter) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	const op = "gateway.stripe.CreateCheckout"
	params := &stripeapi.CheckoutSessionParams{
		Mode:              stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		CustomerEmail:     stripeapi.String(req.Email),
		ClientReferenceID: stripeapi.String(req.Reference),
		SuccessURL:        stripeapi.String(withQuery(req.CallbackURL, req.Reference, "success")),
		CancelURL:         stripeapi.String(withQuery(req.CallbackURL, req.Reference, "cancelled")),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripeapi.String(strings.ToLower(req.Currency)),
					UnitAmount: stripeapi.Int64(req.AmountMinor),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripeapi.String(req.Description),
					},
				},
				Quantity: stripeapi.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.Reference)
	params.AddMetadata("reference", req.Reference)
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := a.sessions.New(params)
	if err != nil {
		metrics.GatewayErrors.WithLabelValues(string(models.GatewayStripe), "create_checkout").Inc()
		a.log.Error("stripe checkout session failed", sl.Ref(req.Reference), sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrGateway, err)
	}
	return &gateway.CheckoutSession{CheckoutURL: s.URL, ProviderRef: s.ID}, nil
}

// VerifyTransaction перечитывает сессию и проверяет payment_status.
func (a *Adapter) VerifyTransaction(ctx context.Context, providerRef string) (*gateway.Verification, error) {
	const op = "gateway.stripe.VerifyTransaction"
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx

	s, err := a.sessions.Get(providerRef, params)
	if err != nil {
		metrics.GatewayErrors.WithLabelValues(string(models.GatewayStripe), "verify").Inc()
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrGateway, err)
	}
	paid := s.PaymentStatus == stripeapi.CheckoutSessionPaymentStatusPaid
	expired := !paid && s.Status == stripeapi.CheckoutSessionStatusExpired
	status := string(s.PaymentStatus)
	if expired {
		status = string(s.Status)
	}
	return &gateway.Verification{
		Success:     paid,
		Failed:      expired,
		AmountMinor: s.AmountTotal,
		Currency:    strings.ToUpper(string(s.Currency)),
		Status:      status,
		ProviderRef: s.ID,
		Reference:   s.ClientReferenceID,
	}, nil
}

// VerifyWebhookSignature проверяет заголовок Stripe-Signature с допуском по времени.
func (a *Adapter) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	if a.webhookSecret == "" || signatureHeader == "" {
		return false
	}
	return webhook.ValidatePayload(rawBody, signatureHeader, a.webhookSecret) == nil
}

// ParseWebhook разбирает событие Checkout. Вызывается только после проверки подписи.
func (a *Adapter) ParseWebhook(rawBody []byte) (*gateway.WebhookEvent, error) {
	const op = "gateway.stripe.ParseWebhook"
	var event stripeapi.Event
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrValidation, err)
	}

	out := &gateway.WebhookEvent{Type: string(event.Type)}
	if out.Type != EventCheckoutCompleted && out.Type != EventAsyncPaymentSucceeded {
		return out, nil
	}
	if event.Data == nil {
		return nil, fmt.Errorf("%s: event without data: %w", op, models.ErrValidation)
	}

	var s stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrValidation, err)
	}
	out.Reference = s.ClientReferenceID
	if out.Reference == "" {
		out.Reference = s.Metadata["reference"]
	}
	out.ProviderRef = s.ID
	out.AmountMinor = s.AmountTotal
	out.Currency = strings.ToUpper(string(s.Currency))
	out.Success = s.PaymentStatus == stripeapi.CheckoutSessionPaymentStatusPaid
	out.Verified = out.Success
	return out, nil
}

func withQuery(callback, reference, status string) string {
	u, err := url.Parse(callback)
	if err != nil {
		return callback
	}
	q := u.Query()
	q.Set("reference", reference)
	q.Set("status", status)
	u.RawQuery = q.Encode()
	return u.String()
}
