package manualadminlist

import (
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

	"github.com/magabrotheeeer/venture-billing/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ListByStatus(ctx context.Context, status string) ([]*models.ManualPaymentRecord, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ManualPaymentRecord), args.Error(1)
}

func TestHandler_ServeHTTP(t *testing.T) {
	at := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		query          string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "pending by default",
			setupMock: func(m *MockService) {
				m.On("ListByStatus", mock.Anything, "").Return([]*models.ManualPaymentRecord{{
					ID: 3, UserID: "user-1", Amount: decimal.RequireFromString("25.5"), Currency: "USD",
					PaymentType: models.ManualDonation, Status: models.ManualPending, SubmittedAt: at,
				}}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"status":"OK","data":[{"id":3,"userId":"user-1","amount":"25.5","currency":"USD",
				"paymentType":"donation","status":"Pending","submittedAt":"2026-07-02T00:00:00Z"}]}`,
		},
		{
			name:  "unknown status",
			query: "?status=paid",
			setupMock: func(m *MockService) {
				m.On("ListByStatus", mock.Anything, "paid").
					Return(nil, fmt.Errorf("unknown status: %w", models.ErrValidation)).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"validation failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/super-admin/manual-payments"+tt.query, nil)
			rr := httptest.NewRecorder()

			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
