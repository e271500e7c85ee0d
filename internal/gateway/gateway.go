// Package gateway описывает общий интерфейс платежных провайдеров
// и выбор провайдера по валюте.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// CheckoutRequest — параметры создания платежной сессии.
type CheckoutRequest struct {
	Email       string
	AmountMinor int64 // в минимальных единицах валюты
	Currency    string
	Reference   string
	CallbackURL string
	Description string
	Metadata    map[string]string
}

// CheckoutSession — созданная у провайдера сессия оплаты.
type CheckoutSession struct {
	CheckoutURL string
	ProviderRef string
}

// Verification — состояние транзакции по данным провайдера.
type Verification struct {
	Success     bool
	Failed      bool // провайдер окончательно отклонил транзакцию
	AmountMinor int64
	Currency    string
	Status      string
	ProviderRef string
	Reference   string
}

// Gateway — адаптер платежного провайдера.
type Gateway interface {
	Name() models.Gateway
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	VerifyTransaction(ctx context.Context, providerRef string) (*Verification, error)
	VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool
}

// zeroDecimal — валюты без дробных единиц.
var zeroDecimal = map[string]bool{"JPY": true, "KRW": true, "VND": true}

func minorFactor(currency string) decimal.Decimal {
	if zeroDecimal[strings.ToUpper(currency)] {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(100)
}

// ToMinorUnits переводит сумму в минимальные единицы (центы, кобо).
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Mul(minorFactor(currency)).Round(0).IntPart()
}

// FromMinorUnits — обратное преобразование.
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(minorFactor(currency))
}

// Router выбирает провайдера по валюте платежа.
type Router struct {
	byName   map[models.Gateway]Gateway
	paystack map[string]bool
	fallback models.Gateway
}

// NewRouter создаёт Router. Валюты из paystackCurrencies обслуживает Paystack,
// остальные — Stripe.
func NewRouter(paystackCurrencies []string, gateways ...Gateway) *Router {
	r := &Router{
		byName:   make(map[models.Gateway]Gateway, len(gateways)),
		paystack: make(map[string]bool, len(paystackCurrencies)),
		fallback: models.GatewayStripe,
	}
	for _, g := range gateways {
		r.byName[g.Name()] = g
	}
	for _, c := range paystackCurrencies {
		r.paystack[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return r
}

// For возвращает провайдера для валюты.
func (r *Router) For(currency string) (Gateway, error) {
	name := r.fallback
	if r.paystack[strings.ToUpper(currency)] {
		name = models.GatewayPaystack
	}
	return r.ByName(name)
}

// ByName возвращает провайдера по имени.
func (r *Router) ByName(name models.Gateway) (Gateway, error) {
	g, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("gateway %q is not configured: %w", name, models.ErrGateway)
	}
	return g, nil
}

// WebhookEvent — событие провайдера, приведенное к общему виду.
type WebhookEvent struct {
	Type        string
	Success     bool // событие об успешной оплате
	Verified    bool // подписанное событие само подтверждает оплату
	Reference   string
	ProviderRef string
	AmountMinor int64
	Currency    string
}

// WebhookParser разбирает тело вебхука после проверки подписи.
type WebhookParser interface {
	ParseWebhook(rawBody []byte) (*WebhookEvent, error)
}
