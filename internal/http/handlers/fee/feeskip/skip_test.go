package feeskip

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Skip(ctx context.Context, userID, reason string) error {
	return m.Called(ctx, userID, reason).Error(0)
}

func TestHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name: "with reason",
			body: `{"reason":"will pay next month"}`,
			setupMock: func(m *MockService) {
				m.On("Skip", mock.Anything, "user-1", "will pay next month").Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "empty body",
			setupMock: func(m *MockService) {
				m.On("Skip", mock.Anything, "user-1", "").Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "reason too long",
			body:           `{"reason":"` + strings.Repeat("x", 501) + `"}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "storage error",
			body: `{"reason":"later"}`,
			setupMock: func(m *MockService) {
				m.On("Skip", mock.Anything, "user-1", "later").Return(errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPut, "/api/v1/setup-fee/skip", bytes.NewBufferString(tt.body))
			req = req.WithContext(middlewarectx.WithUser(req.Context(), "user-1", "", roles.Founder))
			rr := httptest.NewRecorder()

			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			svc.AssertExpectations(t)
		})
	}
}
