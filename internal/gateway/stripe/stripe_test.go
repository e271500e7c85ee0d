package stripe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/venture-billing/internal/gateway"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

const testWebhookSecret = "whsec_test_secret"

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) New(params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripeapi.CheckoutSession), args.Error(1)
}

func (m *MockSessions) Get(id string, params *stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	args := m.Called(id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripeapi.CheckoutSession), args.Error(1)
}

func TestCreateCheckout(t *testing.T) {
	sessions := &MockSessions{}
	a := NewWithSessions(sl.Discard(), sessions, testWebhookSecret)
	req := gateway.CheckoutRequest{
		Email:       "founder@example.com",
		AmountMinor: 1000,
		Currency:    "USD",
		Reference:   "setup_fee_u1_1700000000000",
		CallbackURL: "https://app.example.com/payments/callback",
		Description: "Platform setup fee",
	}

	sessions.On("New", mock.MatchedBy(func(p *stripeapi.CheckoutSessionParams) bool {
		item := p.LineItems[0]
		return *p.Mode == "payment" &&
			*p.ClientReferenceID == req.Reference &&
			*item.PriceData.UnitAmount == 1000 &&
			*item.PriceData.Currency == "usd" &&
			p.Metadata["reference"] == req.Reference &&
			p.Context != nil
	})).Return(&stripeapi.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"}, nil)

	got, err := a.CreateCheckout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", got.ProviderRef)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_test_1", got.CheckoutURL)
	sessions.AssertExpectations(t)
}

func TestCreateCheckout_ProviderError(t *testing.T) {
	sessions := &MockSessions{}
	sessions.On("New", mock.Anything).Return(nil, errors.New("card_declined"))
	a := NewWithSessions(sl.Discard(), sessions, testWebhookSecret)

	_, err := a.CreateCheckout(context.Background(), gateway.CheckoutRequest{Reference: "r", Currency: "USD"})
	require.ErrorIs(t, err, models.ErrGateway)
}

func TestVerifyTransaction(t *testing.T) {
	tests := []struct {
		name        string
		session     *stripeapi.CheckoutSession
		err         error
		wantSuccess bool
		wantFailed  bool
		wantErr     bool
	}{
		{
			name: "paid",
			session: &stripeapi.CheckoutSession{ID: "cs_1", PaymentStatus: stripeapi.CheckoutSessionPaymentStatusPaid,
				AmountTotal: 1000, Currency: "usd", ClientReferenceID: "ref"},
			wantSuccess: true,
		},
		{
			name:    "unpaid",
			session: &stripeapi.CheckoutSession{ID: "cs_1", PaymentStatus: stripeapi.CheckoutSessionPaymentStatusUnpaid},
		},
		{
			name: "expired",
			session: &stripeapi.CheckoutSession{ID: "cs_1", PaymentStatus: stripeapi.CheckoutSessionPaymentStatusUnpaid,
				Status: stripeapi.CheckoutSessionStatusExpired},
			wantFailed: true,
		},
		{name: "api error", err: errors.New("timeout"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &MockSessions{}
			if tt.err != nil {
				sessions.On("Get", "cs_1", mock.Anything).Return(nil, tt.err)
			} else {
				sessions.On("Get", "cs_1", mock.Anything).Return(tt.session, nil)
			}
			a := NewWithSessions(sl.Discard(), sessions, testWebhookSecret)

			v, err := a.VerifyTransaction(context.Background(), "cs_1")
			if tt.wantErr {
				require.ErrorIs(t, err, models.ErrGateway)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, v.Success)
			assert.Equal(t, tt.wantFailed, v.Failed)
		})
	}
}

func signedHeader(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	})
	return signed.Header
}

func checkoutEvent(eventType, paymentStatus string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": "evt_1",
  "object": "event",
  "type": %q,
  "data": {"object": {
    "id": "cs_test_1",
    "object": "checkout.session",
    "client_reference_id": "setup_fee_u1_1700000000000",
    "payment_status": %q,
    "amount_total": 1000,
    "currency": "usd"
  }}
}`, eventType, paymentStatus))
}

func TestVerifyWebhookSignature(t *testing.T) {
	a := NewWithSessions(sl.Discard(), &MockSessions{}, testWebhookSecret)
	body := checkoutEvent(EventCheckoutCompleted, "paid")

	tests := []struct {
		name   string
		body   []byte
		header string
		want   bool
	}{
		{name: "valid", body: body, header: signedHeader(t, body, testWebhookSecret, time.Now()), want: true},
		{name: "wrong secret", body: body, header: signedHeader(t, body, "whsec_other", time.Now())},
		{name: "tampered body", body: append([]byte(" "), body...), header: signedHeader(t, body, testWebhookSecret, time.Now())},
		{name: "stale timestamp", body: body, header: signedHeader(t, body, testWebhookSecret, time.Now().Add(-time.Hour))},
		{name: "missing header", body: body},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.VerifyWebhookSignature(tt.body, tt.header))
		})
	}
}

func TestParseWebhook(t *testing.T) {
	a := NewWithSessions(sl.Discard(), &MockSessions{}, testWebhookSecret)

	tests := []struct {
		name        string
		body        []byte
		wantSuccess bool
		wantRef     string
		wantErr     bool
	}{
		{name: "completed and paid", body: checkoutEvent(EventCheckoutCompleted, "paid"), wantSuccess: true, wantRef: "setup_fee_u1_1700000000000"},
		{name: "async succeeded", body: checkoutEvent(EventAsyncPaymentSucceeded, "paid"), wantSuccess: true, wantRef: "setup_fee_u1_1700000000000"},
		{name: "completed but unpaid", body: checkoutEvent(EventCheckoutCompleted, "unpaid"), wantRef: "setup_fee_u1_1700000000000"},
		{name: "other event", body: checkoutEvent("checkout.session.expired", "unpaid")},
		{name: "malformed", body: []byte(`{"type":`), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := a.ParseWebhook(tt.body)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, ev.Success)
			assert.Equal(t, tt.wantSuccess, ev.Verified)
			assert.Equal(t, tt.wantRef, ev.Reference)
			if tt.wantSuccess {
				assert.Equal(t, int64(1000), ev.AmountMinor)
				assert.Equal(t, "USD", ev.Currency)
			}
		})
	}
}
