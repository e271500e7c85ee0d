package manualsubmit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/manualpayment"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Submit(ctx context.Context, req manualpayment.SubmitRequest) (*models.ManualPaymentRecord, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ManualPaymentRecord), args.Error(1)
}

func TestHandler_ServeHTTP(t *testing.T) {
	submitted := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "bank transfer",
			body: `{"amount":"15000.00","currency":"NGN","paymentType":"platform_fee","proofUrl":"https://files.example.com/r.png"}`,
			setupMock: func(m *MockService) {
				m.On("Submit", mock.Anything, mock.MatchedBy(func(req manualpayment.SubmitRequest) bool {
					return req.UserID == "user-1" && req.Amount.Equal(decimal.NewFromInt(15000)) &&
						req.Currency == "NGN" && req.PaymentType == models.ManualPlatformFee &&
						req.ProofURL == "https://files.example.com/r.png"
				})).Return(&models.ManualPaymentRecord{
					ID: 7, UserID: "user-1", Amount: decimal.NewFromInt(15000), Currency: "NGN",
					PaymentType: models.ManualPlatformFee, Status: models.ManualPending, SubmittedAt: submitted,
					ProofURL: "https://files.example.com/r.png",
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody: `{"status":"OK","data":{"id":7,"userId":"user-1","amount":"15000","currency":"NGN",
				"paymentType":"platform_fee","status":"Pending","submittedAt":"2026-07-01T10:00:00Z",
				"proofUrl":"https://files.example.com/r.png"}}`,
		},
		{
			name:           "unknown payment type",
			body:           `{"amount":"10","currency":"USD","paymentType":"tip"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field PaymentType must be one of [platform_fee donation]"}`,
		},
		{
			name: "non positive amount",
			body: `{"amount":"0","currency":"USD","paymentType":"donation"}`,
			setupMock: func(m *MockService) {
				m.On("Submit", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("manualpayment.Submit: amount must be positive: %w", models.ErrValidation)).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"validation failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/manual-payments", bytes.NewBufferString(tt.body))
			req = req.WithContext(middlewarectx.WithUser(req.Context(), "user-1", "", roles.Founder))
			rr := httptest.NewRecorder()

			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
