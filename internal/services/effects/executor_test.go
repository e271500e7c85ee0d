package effects

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/venture-billing/internal/lib/invoice"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/sender"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertAuditLog(ctx context.Context, e models.AuditEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockStore) InsertNotification(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, mail sender.Mail) error {
	args := m.Called(ctx, mail)
	return args.Error(0)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func newTestExecutor() (*Executor, *MockStore, *MockMailer) {
	store := new(MockStore)
	mailer := new(MockMailer)
	return NewExecutor(sl.Discard(), store, mailer, invoice.Issuer{Name: "Venture Billing"}), store, mailer
}

func TestExecutor_HandleAudit(t *testing.T) {
	e, store, _ := newTestExecutor()
	entry := models.AuditEntry{ActorID: "admin", ActionType: "manual_payment_confirmed", EntityType: "manual_payment", EntityID: "7"}

	store.On("InsertAuditLog", mock.Anything, mock.MatchedBy(func(got models.AuditEntry) bool {
		return got.ActionType == entry.ActionType && got.EntityID == "7"
	})).Return(nil).Once()

	require.NoError(t, e.HandleAudit(context.Background(), mustJSON(t, entry)))
	store.AssertExpectations(t)
}

func TestExecutor_HandleNotify_StoreErrorIsRetried(t *testing.T) {
	e, store, _ := newTestExecutor()
	store.On("InsertNotification", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	err := e.HandleNotify(context.Background(), mustJSON(t, models.Notification{UserID: "u1"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestExecutor_MalformedTaskIsDropped(t *testing.T) {
	e, store, mailer := newTestExecutor()
	ctx := context.Background()

	assert.NoError(t, e.HandleAudit(ctx, []byte("{")))
	assert.NoError(t, e.HandleNotify(ctx, []byte("{")))
	assert.NoError(t, e.HandleEmail(ctx, []byte("{")))
	assert.NoError(t, e.HandleInvoice(ctx, []byte("{")))
	store.AssertNotCalled(t, "InsertAuditLog", mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestExecutor_HandleEmail(t *testing.T) {
	tests := []struct {
		name     string
		msg      models.EmailMessage
		expected func(sender.Mail) bool
		skipped  bool
	}{
		{
			name: "payment receipt",
			msg: models.EmailMessage{Type: EmailPaymentReceipt, To: "f@example.com", TemplateData: map[string]string{
				"amount": "15000.00", "currency": "NGN", "description": "setup fee", "reference": "setup_fee_u1_1",
			}},
			expected: func(m sender.Mail) bool {
				return m.To[0] == "f@example.com" &&
					m.Subject == "Payment received: setup fee" &&
					containsAll(m.Body, "15000.00 NGN", "setup_fee_u1_1")
			},
		},
		{
			name: "rejection carries reason",
			msg: models.EmailMessage{Type: EmailManualPaymentRejected, To: "f@example.com", TemplateData: map[string]string{
				"amount": "10.00", "currency": "USD", "reason": "proof unreadable",
			}},
			expected: func(m sender.Mail) bool { return containsAll(m.Body, "proof unreadable") },
		},
		{
			name:    "unknown type is dropped",
			msg:     models.EmailMessage{Type: "newsletter", To: "f@example.com"},
			skipped: true,
		},
		{
			name:    "missing recipient is dropped",
			msg:     models.EmailMessage{Type: EmailPaymentReceipt},
			skipped: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, mailer := newTestExecutor()
			if !tt.skipped {
				mailer.On("Send", mock.Anything, mock.MatchedBy(tt.expected)).Return(nil).Once()
			}
			require.NoError(t, e.HandleEmail(context.Background(), mustJSON(t, tt.msg)))
			if tt.skipped {
				mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
			}
			mailer.AssertExpectations(t)
		})
	}
}

func TestExecutor_HandleInvoice_AttachesPDF(t *testing.T) {
	e, _, mailer := newTestExecutor()
	req := models.InvoiceRequest{
		Number:      "MP-42",
		UserID:      "u1",
		Email:       "donor@example.com",
		Description: "Donation",
		Amount:      decimal.RequireFromString("25.00"),
		Currency:    "USD",
		IssuedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	var sent sender.Mail
	mailer.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(sender.Mail)
	}).Return(nil).Once()

	require.NoError(t, e.HandleInvoice(context.Background(), mustJSON(t, req)))
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "invoice-MP-42.pdf", sent.Attachments[0].Name)
	assert.Equal(t, "application/pdf", sent.Attachments[0].ContentType)
	assert.Equal(t, "%PDF-", string(sent.Attachments[0].Data[:5]))
	assert.Equal(t, []string{"donor@example.com"}, sent.To)
}

func TestExecutor_HandleInvoice_MailErrorIsRetried(t *testing.T) {
	e, _, mailer := newTestExecutor()
	mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	err := e.HandleInvoice(context.Background(), mustJSON(t, models.InvoiceRequest{
		Number: "MP-1", Email: "a@example.com", Amount: decimal.NewFromInt(1), Currency: "USD",
	}))
	assert.Error(t, err)
}

func TestExecutor_Handlers(t *testing.T) {
	e, _, _ := newTestExecutor()
	h := e.Handlers()
	for _, k := range []models.TaskKind{models.TaskAudit, models.TaskNotify, models.TaskEmail, models.TaskInvoice} {
		assert.NotNil(t, h[k], k)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
