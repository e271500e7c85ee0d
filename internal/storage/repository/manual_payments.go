package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/venture-billing/internal/models"
)

const manualColumns = `id, user_id, amount, currency, payment_type, status, submitted_at,
	confirmed_at, notes, proof_url, COALESCE(reviewed_by::text, '')`

func scanManual(row rowScanner) (*models.ManualPaymentRecord, error) {
	m := &models.ManualPaymentRecord{}
	var confirmedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.UserID, &m.Amount, &m.Currency, &m.PaymentType, &m.Status,
		&m.SubmittedAt, &confirmedAt, &m.Notes, &m.ProofURL, &m.ReviewedBy); err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		m.ConfirmedAt = &confirmedAt.Time
	}
	return m, nil
}

// CreateManualPayment сохраняет заявку о банковском переводе в статусе Pending.
func (s *Storage) CreateManualPayment(ctx context.Context, m models.ManualPaymentRecord) (*models.ManualPaymentRecord, error) {
	const op = "storage.CreateManualPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO manual_payments (user_id, amount, currency, payment_type, status, notes, proof_url)
			  VALUES ($1, $2, $3, $4, 'Pending', $5, $6)
			  RETURNING ` + manualColumns
	rec, err := scanManual(s.DB.QueryRowContext(ctx, query,
		m.UserID, m.Amount, m.Currency, string(m.PaymentType), m.Notes, m.ProofURL))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// GetManualPayment возвращает ручной платеж по ID.
func (s *Storage) GetManualPayment(ctx context.Context, id int64) (*models.ManualPaymentRecord, error) {
	const op = "storage.GetManualPayment"
	rec, err := scanManual(s.DB.QueryRowContext(ctx, `SELECT `+manualColumns+` FROM manual_payments WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

func (s *Storage) listManual(ctx context.Context, op, where string, arg any) ([]*models.ManualPaymentRecord, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+manualColumns+` FROM manual_payments WHERE `+where+` ORDER BY submitted_at DESC, id DESC`, arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.ManualPaymentRecord, 0)
	for rows.Next() {
		rec, err := scanManual(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListManualPaymentsByUser возвращает заявки пользователя.
func (s *Storage) ListManualPaymentsByUser(ctx context.Context, userID string) ([]*models.ManualPaymentRecord, error) {
	return s.listManual(ctx, "storage.ListManualPaymentsByUser", "user_id = $1", userID)
}

// ListManualPaymentsByStatus возвращает заявки в указанном статусе.
func (s *Storage) ListManualPaymentsByStatus(ctx context.Context, status models.ManualPaymentStatus) ([]*models.ManualPaymentRecord, error) {
	return s.listManual(ctx, "storage.ListManualPaymentsByStatus", "status = $1", string(status))
}

// HasPendingManualPayment сообщает, есть ли у пользователя заявка на рассмотрении.
func (s *Storage) HasPendingManualPayment(ctx context.Context, userID string) (bool, error) {
	const op = "storage.HasPendingManualPayment"
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM manual_payments WHERE user_id = $1 AND status = 'Pending')`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ConfirmManualPayment переводит заявку Pending -> Confirmed и применяет
// разблокировку: platform_fee выставляет users.setup_paid, donation выдает
// бейдж donor_supporter. Возвращает обновленную запись.
func (s *Storage) ConfirmManualPayment(ctx context.Context, id int64, adminID, note string, at time.Time) (*models.ManualPaymentRecord, error) {
	const op = "storage.ConfirmManualPayment"
	return s.decideManual(ctx, op, id, models.ManualConfirmed, adminID, auditNote("confirmed", adminID, note), &at)
}

// RejectManualPayment переводит заявку Pending -> Rejected без разблокировки.
func (s *Storage) RejectManualPayment(ctx context.Context, id int64, adminID, reason string) (*models.ManualPaymentRecord, error) {
	const op = "storage.RejectManualPayment"
	return s.decideManual(ctx, op, id, models.ManualRejected, adminID, auditNote("rejected", adminID, reason), nil)
}

func auditNote(verb, adminID, text string) string {
	return strings.TrimSpace(fmt.Sprintf("[%s by %s] %s", verb, adminID, strings.TrimSpace(text)))
}

func (s *Storage) decideManual(ctx context.Context, op string, id int64, status models.ManualPaymentStatus,
	adminID, note string, confirmedAt *time.Time) (*models.ManualPaymentRecord, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var rec *models.ManualPaymentRecord
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		rec, err = scanManual(tx.QueryRowContext(ctx, `UPDATE manual_payments
				SET status = $2,
				    confirmed_at = $3,
				    reviewed_by = $4,
				    notes = CASE WHEN notes = '' THEN $5 ELSE notes || E'\n' || $5 END
				WHERE id = $1 AND status = 'Pending'
				RETURNING `+manualColumns, id, string(status), confirmedAt, adminID, note))
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM manual_payments WHERE id = $1)`, id).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return models.ErrNotFound
			}
			return models.ErrAlreadyProcessed
		}
		if err != nil {
			return err
		}
		if status != models.ManualConfirmed {
			return nil
		}
		switch rec.PaymentType {
		case models.ManualPlatformFee:
			_, err = tx.ExecContext(ctx, `UPDATE users SET setup_paid = TRUE WHERE uid = $1`, rec.UserID)
		case models.ManualDonation:
			_, err = tx.ExecContext(ctx, `INSERT INTO badges (user_id, badge_name) VALUES ($1, $2)
					ON CONFLICT (user_id, badge_name) DO NOTHING`, rec.UserID, models.BadgeDonorSupporter)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}
