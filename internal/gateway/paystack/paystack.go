// Package paystack — адаптер Paystack (REST API + HMAC-SHA512 подпись вебхуков).
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/venture-billing/internal/gateway"
	"github.com/magabrotheeeer/venture-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// EventChargeSuccess — единственное событие, означающее оплату.
const EventChargeSuccess = "charge.success"

// terminalStatuses — статусы транзакции, после которых оплаты уже не будет.
// abandoned сюда не входит: так Paystack отвечает и до первой попытки оплаты.
var terminalStatuses = map[string]bool{"failed": true, "reversed": true}

// DefaultBaseURL — адрес API Paystack.
const DefaultBaseURL = "https://api.paystack.co"

// Adapter реализует gateway.Gateway для Paystack.
type Adapter struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type transactionData struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

type webhookBody struct {
	Event string          `json:"event"`
	Data  transactionData `json:"data"`
}

// New создаёт адаптер. Пустой baseURL означает боевой API.
func New(log *slog.Logger, secretKey, baseURL string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Adapter{
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Name возвращает имя провайдера.
func (a *Adapter) Name() models.Gateway {
	return models.GatewayPaystack
}

// CreateCheckout инициализирует транзакцию. Ссылкой Paystack служит ссылка платформы.
func (a *Adapter) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	const op = "gateway.paystack.CreateCheckout"
	body := initializeRequest{
		Email:       req.Email,
		Amount:      req.AmountMinor,
		Currency:    strings.ToUpper(req.Currency),
		Reference:   req.Reference,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	var data initializeData
	if err := a.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		metrics.GatewayErrors.WithLabelValues(string(models.GatewayPaystack), "create_checkout").Inc()
		a.log.Error("paystack initialize failed", sl.Ref(req.Reference), sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrGateway, err)
	}
	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &gateway.CheckoutSession{CheckoutURL: data.AuthorizationURL, ProviderRef: ref}, nil
}

// VerifyTransaction запрашивает состояние транзакции по ссылке.
func (a *Adapter) VerifyTransaction(ctx context.Context, providerRef string) (*gateway.Verification, error) {
	const op = "gateway.paystack.VerifyTransaction"
	var data transactionData
	if err := a.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(providerRef), nil, &data); err != nil {
		metrics.GatewayErrors.WithLabelValues(string(models.GatewayPaystack), "verify").Inc()
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrGateway, err)
	}
	return &gateway.Verification{
		Success:     data.Status == "success",
		Failed:      terminalStatuses[data.Status],
		AmountMinor: data.Amount,
		Currency:    strings.ToUpper(data.Currency),
		Status:      data.Status,
		ProviderRef: data.Reference,
		Reference:   data.Reference,
	}, nil
}

// VerifyWebhookSignature сравнивает hex(HMAC-SHA512(secret, body)) с заголовком за постоянное время.
func (a *Adapter) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	if a.secretKey == "" || signatureHeader == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signatureHeader))
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(a.secretKey, rawBody))
}

// ParseWebhook разбирает событие. charge.success требует повторной проверки через API.
func (a *Adapter) ParseWebhook(rawBody []byte) (*gateway.WebhookEvent, error) {
	const op = "gateway.paystack.ParseWebhook"
	var body webhookBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrValidation, err)
	}
	return &gateway.WebhookEvent{
		Type:        body.Event,
		Success:     body.Event == EventChargeSuccess,
		Reference:   body.Data.Reference,
		ProviderRef: body.Data.Reference,
		AmountMinor: body.Data.Amount,
		Currency:    strings.ToUpper(body.Data.Currency),
	}, nil
}

// Sign возвращает HMAC-SHA512 тела.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func (a *Adapter) do(ctx context.Context, method, path string, in, out any) error {
	var buf bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("unexpected response (%s): %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Status {
		return fmt.Errorf("unexpected status %s: %s", resp.Status, env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
