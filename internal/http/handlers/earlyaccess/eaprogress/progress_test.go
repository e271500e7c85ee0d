package eaprogress

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/earlyaccess"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) UpdateProgress(ctx context.Context, actorID, userID string, p earlyaccess.Progress) (*models.EarlyAccessEnrollment, error) {
	args := m.Called(ctx, actorID, userID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EarlyAccessEnrollment), args.Error(1)
}

func TestHandler_ServeHTTP(t *testing.T) {
	const member = "7b1f5a5e-4d0c-4f5e-9a51-0c9a4a1b2c3d"

	tests := []struct {
		name           string
		userID         string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
	}{
		{
			name:   "consultation done completes program",
			userID: member,
			body:   `{"consultationCompleted":true}`,
			setupMock: func(m *MockService) {
				m.On("UpdateProgress", mock.Anything, "team-1", member, mock.MatchedBy(func(p earlyaccess.Progress) bool {
					return p.IdeaSubmitted == nil && p.ConsultationCompleted != nil && *p.ConsultationCompleted
				})).Return(&models.EarlyAccessEnrollment{
					UserID: member, Status: models.EarlyAccessCompleted, IdeaSubmitted: true, ConsultationCompleted: true,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "user id is not a uuid",
			userID:         "not-a-uuid",
			body:           `{"ideaSubmitted":true}`,
			setupMock:      func(*MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:   "empty update",
			userID: member,
			body:   `{}`,
			setupMock: func(m *MockService) {
				m.On("UpdateProgress", mock.Anything, "team-1", member, earlyaccess.Progress{}).
					Return(nil, fmt.Errorf("nothing to update: %w", models.ErrValidation)).Once()
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "not enrolled",
			userID: member,
			body:   `{"ideaSubmitted":true}`,
			setupMock: func(m *MockService) {
				m.On("UpdateProgress", mock.Anything, "team-1", member, mock.Anything).Return(nil, models.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			r := chi.NewRouter()
			r.Put("/early-access/{userId}/progress", New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP)

			req := httptest.NewRequest(http.MethodPut, "/early-access/"+tt.userID+"/progress", bytes.NewBufferString(tt.body))
			req = req.WithContext(middlewarectx.WithUser(req.Context(), "team-1", "", roles.Team))
			rr := httptest.NewRecorder()

			r.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			svc.AssertExpectations(t)
		})
	}
}
