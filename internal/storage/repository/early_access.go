package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/venture-billing/internal/models"
)

const enrollmentColumns = `user_id, signup_order, status, idea_submitted, consultation_completed, last_active_at, created_at`

func scanEnrollment(row rowScanner) (*models.EarlyAccessEnrollment, error) {
	e := &models.EarlyAccessEnrollment{}
	if err := row.Scan(&e.UserID, &e.SignupOrder, &e.Status, &e.IdeaSubmitted,
		&e.ConsultationCompleted, &e.LastActiveAt, &e.CreatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

// SyncEarlyAccessCapacity выставляет размер когорты из конфигурации.
func (s *Storage) SyncEarlyAccessCapacity(ctx context.Context, capacity int) error {
	const op = "storage.SyncEarlyAccessCapacity"
	if _, err := s.DB.ExecContext(ctx, `UPDATE early_access_counter SET capacity = $1 WHERE id = 1`, capacity); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EnrollEarlyAccess резервирует место в когорте и создает запись участника.
// Счетчик и вставка выполняются в одной транзакции: строка счетчика
// блокируется на время резервирования, поэтому порядковые номера уникальны
// и не превышают capacity. Если пользователь уже записан, транзакция
// откатывается вместе с инкрементом.
func (s *Storage) EnrollEarlyAccess(ctx context.Context, userID string) (*models.EarlyAccessEnrollment, error) {
	const op = "storage.EnrollEarlyAccess"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var rec *models.EarlyAccessEnrollment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM early_access_enrollments WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return models.ErrAlreadyEnrolled
		}

		var order int
		err := tx.QueryRowContext(ctx, `UPDATE early_access_counter
				SET issued = issued + 1
				WHERE id = 1 AND issued < capacity
				RETURNING issued`).Scan(&order)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrCohortFull
		}
		if err != nil {
			return err
		}

		rec, err = scanEnrollment(tx.QueryRowContext(ctx, `INSERT INTO early_access_enrollments (user_id, signup_order)
				VALUES ($1, $2)
				RETURNING `+enrollmentColumns, userID, order))
		if isUniqueViolation(err) {
			return models.ErrAlreadyEnrolled
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// GetEarlyAccess возвращает запись участника или ErrNotFound.
func (s *Storage) GetEarlyAccess(ctx context.Context, userID string) (*models.EarlyAccessEnrollment, error) {
	const op = "storage.GetEarlyAccess"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rec, err := scanEnrollment(s.DB.QueryRowContext(ctx,
		`SELECT `+enrollmentColumns+` FROM early_access_enrollments WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// MarkEarlyAccessInactive переводит active -> inactive, если участник не
// появлялся с момента cutoff. Возвращает true, если статус изменился.
func (s *Storage) MarkEarlyAccessInactive(ctx context.Context, userID string, cutoff time.Time) (bool, error) {
	const op = "storage.MarkEarlyAccessInactive"
	res, err := s.DB.ExecContext(ctx, `UPDATE early_access_enrollments
			SET status = 'inactive'
			WHERE user_id = $1 AND status = 'active' AND last_active_at < $2`, userID, cutoff)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// TouchEarlyAccess обновляет время последней активности.
func (s *Storage) TouchEarlyAccess(ctx context.Context, userID string, at time.Time) error {
	const op = "storage.TouchEarlyAccess"
	if _, err := s.DB.ExecContext(ctx,
		`UPDATE early_access_enrollments SET last_active_at = $2 WHERE user_id = $1`, userID, at); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateEarlyAccessProgress выставляет флаги прогресса (nil — без изменений).
// Когда оба флага истинны, запись переходит в completed и пользователь
// получает бейдж early_founder. completedNow true, если переход случился
// в этом вызове.
func (s *Storage) UpdateEarlyAccessProgress(ctx context.Context, userID string, ideaSubmitted, consultationCompleted *bool) (rec *models.EarlyAccessEnrollment, completedNow bool, err error) {
	const op = "storage.UpdateEarlyAccessProgress"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		rec, err = scanEnrollment(tx.QueryRowContext(ctx, `UPDATE early_access_enrollments
				SET idea_submitted = COALESCE($2, idea_submitted),
				    consultation_completed = COALESCE($3, consultation_completed)
				WHERE user_id = $1
				RETURNING `+enrollmentColumns, userID, ideaSubmitted, consultationCompleted))
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if !rec.IdeaSubmitted || !rec.ConsultationCompleted || rec.Status == models.EarlyAccessCompleted {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE early_access_enrollments SET status = 'completed' WHERE user_id = $1`, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO badges (user_id, badge_name) VALUES ($1, $2)
				ON CONFLICT (user_id, badge_name) DO NOTHING`, userID, models.BadgeEarlyFounder); err != nil {
			return err
		}
		rec.Status = models.EarlyAccessCompleted
		completedNow = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return rec, completedNow, nil
}
