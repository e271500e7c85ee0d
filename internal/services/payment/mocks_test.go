package payment

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/venture-billing/internal/gateway"
	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/currency"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) GetProfileFeePaid(ctx context.Context, userUID string, role roles.Role) (bool, error) {
	args := m.Called(ctx, userUID, role)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) MarkSetupSkipped(ctx context.Context, userUID, reason string, at time.Time) error {
	args := m.Called(ctx, userUID, reason, at)
	return args.Error(0)
}

func (m *MockRepository) CreatePayment(ctx context.Context, p models.PaymentRecord) (int64, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetPaymentByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentRecord), args.Error(1)
}

func (m *MockRepository) GetPendingPaymentByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentRecord), args.Error(1)
}

func (m *MockRepository) MergePaymentMetadata(ctx context.Context, id int64, meta models.GatewayMetadata) error {
	args := m.Called(ctx, id, meta)
	return args.Error(0)
}

func (m *MockRepository) CompletePayment(ctx context.Context, id int64, meta models.GatewayMetadata) (bool, error) {
	args := m.Called(ctx, id, meta)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) FailPayment(ctx context.Context, id int64, meta models.GatewayMetadata) (bool, error) {
	args := m.Called(ctx, id, meta)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.PaymentRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentRecord), args.Error(1)
}

type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) UsdToLocal(ctx context.Context, usd decimal.Decimal, code string) (currency.Conversion, error) {
	args := m.Called(ctx, usd, code)
	return args.Get(0).(currency.Conversion), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Audit(ctx context.Context, entry models.AuditEntry) {
	m.Called(ctx, entry)
}

func (m *MockDispatcher) Notify(ctx context.Context, n models.Notification) {
	m.Called(ctx, n)
}

func (m *MockDispatcher) Email(ctx context.Context, msg models.EmailMessage) {
	m.Called(ctx, msg)
}

func (m *MockDispatcher) Invoice(ctx context.Context, req models.InvoiceRequest) {
	m.Called(ctx, req)
}

// expectCompletionEffects ожидает ровно один комплект задач после завершения платежа.
func (m *MockDispatcher) expectCompletionEffects() {
	m.On("Audit", mock.Anything, mock.MatchedBy(func(e models.AuditEntry) bool {
		return e.ActionType == "payment_completed"
	})).Once()
	m.On("Notify", mock.Anything, mock.Anything).Once()
	m.On("Email", mock.Anything, mock.MatchedBy(func(e models.EmailMessage) bool {
		return e.Type == "payment_receipt"
	})).Once()
}

type MockGateway struct {
	mock.Mock
	name models.Gateway
}

func newMockGateway(name models.Gateway) *MockGateway {
	return &MockGateway{name: name}
}

func (m *MockGateway) Name() models.Gateway {
	return m.name
}

func (m *MockGateway) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CheckoutSession), args.Error(1)
}

func (m *MockGateway) VerifyTransaction(ctx context.Context, providerRef string) (*gateway.Verification, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Verification), args.Error(1)
}

func (m *MockGateway) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	args := m.Called(rawBody, signatureHeader)
	return args.Bool(0)
}

func (m *MockGateway) ParseWebhook(rawBody []byte) (*gateway.WebhookEvent, error) {
	args := m.Called(rawBody)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.WebhookEvent), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func testFees() Fees {
	return Fees{
		SetupFounderUSD:      decimal.NewFromInt(10),
		SetupInvestorUSD:     decimal.NewFromInt(25),
		TalentMarketplaceUSD: decimal.NewFromInt(7),
		HirerPlatformUSD:     decimal.NewFromInt(15),
	}
}
