// Package earlyaccess управляет когортой раннего доступа: ограниченным числом
// мест, которые заменяют оплату вступительного взноса.
package earlyaccess

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/venture-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/effects"
)

// Результаты записи для метрик.
const (
	resultEnrolled = "enrolled"
	resultFull     = "cohort_full"
	resultDup      = "already_enrolled"
	resultError    = "error"
)

// Repository — операции с записями раннего доступа.
type Repository interface {
	EnrollEarlyAccess(ctx context.Context, userID string) (*models.EarlyAccessEnrollment, error)
	GetEarlyAccess(ctx context.Context, userID string) (*models.EarlyAccessEnrollment, error)
	MarkEarlyAccessInactive(ctx context.Context, userID string, cutoff time.Time) (bool, error)
	TouchEarlyAccess(ctx context.Context, userID string, at time.Time) error
	UpdateEarlyAccessProgress(ctx context.Context, userID string, ideaSubmitted, consultationCompleted *bool) (*models.EarlyAccessEnrollment, bool, error)
}

// Service — сценарии программы раннего доступа.
type Service struct {
	repo          Repository
	effects       effects.Dispatcher
	referralCode  string
	inactiveAfter time.Duration
	now           func() time.Time
	log           *slog.Logger
}

// New создает Service. Пустой referralCode отключает запись, нулевой
// inactiveAfter отключает перевод в inactive.
func New(log *slog.Logger, repo Repository, dispatcher effects.Dispatcher, referralCode string, inactiveAfter time.Duration) *Service {
	return &Service{
		repo:          repo,
		effects:       dispatcher,
		referralCode:  strings.TrimSpace(referralCode),
		inactiveAfter: inactiveAfter,
		now:           time.Now,
		log:           log,
	}
}

// Qualifies сообщает, дает ли код право на место в когорте.
func (s *Service) Qualifies(code string) bool {
	code = strings.TrimSpace(code)
	if s.referralCode == "" || code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.ToUpper(code)), []byte(strings.ToUpper(s.referralCode))) == 1
}

// Enroll занимает место в когорте. Если мест нет, возвращает models.ErrCohortFull,
// повторная запись возвращает models.ErrAlreadyEnrolled.
func (s *Service) Enroll(ctx context.Context, userID, email string) (*models.EarlyAccessEnrollment, error) {
	const op = "earlyaccess.Enroll"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID))

	rec, err := s.repo.EnrollEarlyAccess(ctx, userID)
	switch {
	case errors.Is(err, models.ErrCohortFull):
		metrics.EarlyAccessEnrollments.WithLabelValues(resultFull).Inc()
		log.Info("early access cohort is full")
		return nil, fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, models.ErrAlreadyEnrolled):
		metrics.EarlyAccessEnrollments.WithLabelValues(resultDup).Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	case err != nil:
		metrics.EarlyAccessEnrollments.WithLabelValues(resultError).Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.EarlyAccessEnrollments.WithLabelValues(resultEnrolled).Inc()
	log.Info("early access enrollment created", slog.Int("signup_order", rec.SignupOrder))

	s.effects.Audit(ctx, models.AuditEntry{
		ActorID:    userID,
		ActionType: "early_access_enrolled",
		EntityType: "early_access",
		EntityID:   userID,
		Details:    map[string]any{"signup_order": rec.SignupOrder},
	})
	s.effects.Notify(ctx, models.Notification{
		UserID:  userID,
		Type:    "early_access",
		Title:   "Welcome to early access",
		Message: fmt.Sprintf("You are founder #%d of the early access cohort.", rec.SignupOrder),
		Link:    "/early-access",
	})
	if email != "" {
		s.effects.Email(ctx, models.EmailMessage{
			Type:         effects.EmailEarlyAccessWelcome,
			To:           email,
			TemplateData: map[string]string{"signup_order": strconv.Itoa(rec.SignupOrder)},
		})
	}
	return rec, nil
}

// Status возвращает запись пользователя. Давно неактивная запись при чтении
// переводится в inactive, затем время активности обновляется.
func (s *Service) Status(ctx context.Context, userID string) (*models.EarlyAccessEnrollment, error) {
	const op = "earlyaccess.Status"
	rec, err := s.repo.GetEarlyAccess(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := s.now().UTC()

	if rec.Status == models.EarlyAccessActive && s.inactiveAfter > 0 {
		cutoff := now.Add(-s.inactiveAfter)
		if rec.LastActiveAt.Before(cutoff) {
			changed, err := s.repo.MarkEarlyAccessInactive(ctx, userID, cutoff)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if changed {
				rec.Status = models.EarlyAccessInactive
				s.log.Info("early access enrollment marked inactive",
					slog.String("user_id", userID), slog.Time("last_active_at", rec.LastActiveAt))
				s.effects.Audit(ctx, models.AuditEntry{
					ActorID:    userID,
					ActionType: "early_access_inactive",
					EntityType: "early_access",
					EntityID:   userID,
				})
			}
		}
	}

	if err := s.repo.TouchEarlyAccess(ctx, userID, now); err != nil {
		s.log.Warn("failed to refresh early access activity", slog.String("user_id", userID), sl.Err(err))
	} else {
		rec.LastActiveAt = now
	}
	return rec, nil
}

// Progress — изменения прогресса участника. nil означает «без изменений».
type Progress struct {
	IdeaSubmitted         *bool
	ConsultationCompleted *bool
}

// UpdateProgress обновляет прогресс участника. Когда оба этапа пройдены,
// участник получает бейдж early_founder.
func (s *Service) UpdateProgress(ctx context.Context, actorID, userID string, p Progress) (*models.EarlyAccessEnrollment, error) {
	const op = "earlyaccess.UpdateProgress"
	if p.IdeaSubmitted == nil && p.ConsultationCompleted == nil {
		return nil, fmt.Errorf("%s: nothing to update: %w", op, models.ErrValidation)
	}
	rec, completedNow, err := s.repo.UpdateEarlyAccessProgress(ctx, userID, p.IdeaSubmitted, p.ConsultationCompleted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.effects.Audit(ctx, models.AuditEntry{
		ActorID:    actorID,
		ActionType: "early_access_progress_updated",
		EntityType: "early_access",
		EntityID:   userID,
		Details: map[string]any{
			"idea_submitted":         rec.IdeaSubmitted,
			"consultation_completed": rec.ConsultationCompleted,
		},
	})
	if completedNow {
		s.log.Info("early access completed", slog.String("user_id", userID))
		s.effects.Notify(ctx, models.Notification{
			UserID:  userID,
			Type:    "badge",
			Title:   "Early founder badge earned",
			Message: "You completed the early access program.",
			Link:    "/profile",
		})
	}
	return rec, nil
}
