package manualdetail

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/venture-billing/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, id int64) (*models.ManualPaymentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ManualPaymentRecord), args.Error(1)
}

func TestHandler_ServeHTTP(t *testing.T) {
	at := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		id             string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "found",
			id:   "3",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, int64(3)).Return(&models.ManualPaymentRecord{
					ID: 3, UserID: "user-1", Amount: decimal.RequireFromString("12"), Currency: "GHS",
					PaymentType: models.ManualPlatformFee, Status: models.ManualPending, SubmittedAt: at,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"status":"OK","data":{"id":3,"userId":"user-1","amount":"12","currency":"GHS",
				"paymentType":"platform_fee","status":"Pending","submittedAt":"2026-07-02T00:00:00Z"}}`,
		},
		{
			name: "missing",
			id:   "404",
			setupMock: func(m *MockService) {
				m.On("Get", mock.Anything, int64(404)).Return(nil, models.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"not found"}`,
		},
		{
			name:           "invalid id",
			id:             "abc",
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid id"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			r := chi.NewRouter()
			r.Get("/manual-payments/{id}", New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP)

			req := httptest.NewRequest(http.MethodGet, "/manual-payments/"+tt.id, nil)
			rr := httptest.NewRecorder()

			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.JSONEq(t, tt.expectedBody, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
