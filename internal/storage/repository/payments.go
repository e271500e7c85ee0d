package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/venture-billing/internal/models"
)

const paymentColumns = `id, user_id, amount, amount_usd, currency, type, gateway, status,
	reference, gateway_metadata, created_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.PaymentRecord, error) {
	p := &models.PaymentRecord{}
	var meta []byte
	var completedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.AmountUSD, &p.Currency, &p.Type, &p.Gateway,
		&p.Status, &p.Reference, &meta, &p.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.GatewayMetadata); err != nil {
			return nil, err
		}
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return p, nil
}

// CreatePayment сохраняет запись реестра в статусе pending и возвращает ее ID.
func (s *Storage) CreatePayment(ctx context.Context, p models.PaymentRecord) (int64, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	meta, err := json.Marshal(p.GatewayMetadata)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO payments (user_id, amount, amount_usd, currency, type, gateway, status, reference, gateway_metadata)
			  VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8::jsonb)
			  RETURNING id`
	var id int64
	err = s.DB.QueryRowContext(ctx, query, p.UserID, p.Amount, p.AmountUSD, p.Currency,
		string(p.Type), string(p.Gateway), p.Reference, string(meta)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: duplicate reference: %w", op, models.ErrValidation)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetPaymentByReference возвращает запись по ссылке в любом статусе.
func (s *Storage) GetPaymentByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	const op = "storage.GetPaymentByReference"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := scanPayment(s.DB.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetPendingPaymentByReference возвращает запись только если она еще pending.
func (s *Storage) GetPendingPaymentByReference(ctx context.Context, reference string) (*models.PaymentRecord, error) {
	const op = "storage.GetPendingPaymentByReference"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := scanPayment(s.DB.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1 AND status = 'pending'`, reference))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListPaymentsByUser возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPaymentsByUser(ctx context.Context, userID string) ([]*models.PaymentRecord, error) {
	const op = "storage.ListPaymentsByUser"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MergePaymentMetadata дописывает непустые поля meta в gateway_metadata.
func (s *Storage) MergePaymentMetadata(ctx context.Context, id int64, meta models.GatewayMetadata) error {
	const op = "storage.MergePaymentMetadata"
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.DB.ExecContext(ctx,
		`UPDATE payments SET gateway_metadata = gateway_metadata || $2::jsonb WHERE id = $1`,
		id, string(raw)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CompletePayment переводит платеж pending -> completed и в той же транзакции
// выставляет ровно один флаг разблокировки по типу платежа.
// Возвращает false, если платеж уже не в статусе pending.
func (s *Storage) CompletePayment(ctx context.Context, id int64, meta models.GatewayMetadata) (bool, error) {
	const op = "storage.CompletePayment"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	completed := false
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var userID string
		var pType models.PaymentType
		err := tx.QueryRowContext(ctx, `UPDATE payments
				SET status = 'completed', completed_at = NOW(),
				    gateway_metadata = gateway_metadata || $2::jsonb
				WHERE id = $1 AND status = 'pending'
				RETURNING user_id, type`, id, string(raw)).Scan(&userID, &pType)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := applyUnlock(ctx, tx, userID, pType); err != nil {
			return err
		}
		completed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return completed, nil
}

func applyUnlock(ctx context.Context, tx *sql.Tx, userID string, pType models.PaymentType) error {
	var query string
	switch pType {
	case models.PaymentSetupFee:
		query = `UPDATE users SET setup_paid = TRUE WHERE uid = $1`
	case models.PaymentTalentMarketplaceFee:
		query = `INSERT INTO talent_profiles (user_id, fee_paid) VALUES ($1, TRUE)
				 ON CONFLICT (user_id) DO UPDATE SET fee_paid = TRUE`
	case models.PaymentHirerPlatformFee:
		query = `INSERT INTO hirer_profiles (user_id, fee_paid, verified) VALUES ($1, TRUE, TRUE)
				 ON CONFLICT (user_id) DO UPDATE SET fee_paid = TRUE, verified = TRUE`
	default:
		return fmt.Errorf("unknown payment type %q: %w", pType, models.ErrValidation)
	}
	_, err := tx.ExecContext(ctx, query, userID)
	return err
}

// FailPayment переводит платеж pending -> failed, сохраняя причину в метаданных.
// Возвращает false, если платеж уже не в статусе pending.
func (s *Storage) FailPayment(ctx context.Context, id int64, meta models.GatewayMetadata) (bool, error) {
	const op = "storage.FailPayment"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE payments
			SET status = 'failed', gateway_metadata = gateway_metadata || $2::jsonb
			WHERE id = $1 AND status = 'pending'`, id, string(raw))
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}
