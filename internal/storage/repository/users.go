package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// RegisterUser сохраняет пользователя и, для talent и hirer, пустой профиль
// маркетплейса. Возвращает UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO users (email, password_hash, role)
				  VALUES ($1, $2, $3)
				  RETURNING uid;`
		if err := tx.QueryRowContext(ctx, query, user.Email, user.PasswordHash, string(user.Role)).Scan(&newID); err != nil {
			return err
		}
		switch user.Role {
		case roles.Talent:
			_, err := tx.ExecContext(ctx, `INSERT INTO talent_profiles (user_id) VALUES ($1)`, newID)
			return err
		case roles.Hirer:
			_, err := tx.ExecContext(ctx, `INSERT INTO hirer_profiles (user_id) VALUES ($1)`, newID)
			return err
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, models.ErrUserExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

const userColumns = `uid, email, password_hash, role, setup_paid, setup_skipped_at, setup_skip_reason, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var skippedAt sql.NullTime
	if err := row.Scan(&u.UUID, &u.Email, &u.PasswordHash, &u.Role, &u.SetupPaid,
		&skippedAt, &u.SetupSkipReason, &u.CreatedAt); err != nil {
		return nil, err
	}
	if skippedAt.Valid {
		u.SetupSkippedAt = &skippedAt.Time
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: user %s: %w", op, userUID, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// MarkSetupSkipped запоминает, что пользователь отложил оплату взноса.
// Доступ при этом не выдается.
func (s *Storage) MarkSetupSkipped(ctx context.Context, userUID, reason string, at time.Time) error {
	const op = "storage.MarkSetupSkipped"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users
			  SET setup_skipped_at = $1, setup_skip_reason = $2
			  WHERE uid = $3`, at, reason, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// GetProfileFeePaid возвращает флаг оплаты профиля маркетплейса.
// Для ролей без профиля или при отсутствии профиля возвращает false.
func (s *Storage) GetProfileFeePaid(ctx context.Context, userUID string, role roles.Role) (bool, error) {
	const op = "storage.GetProfileFeePaid"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var query string
	switch role {
	case roles.Talent:
		query = `SELECT fee_paid FROM talent_profiles WHERE user_id = $1`
	case roles.Hirer:
		query = `SELECT fee_paid FROM hirer_profiles WHERE user_id = $1`
	default:
		return false, nil
	}

	var paid bool
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&paid)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return paid, nil
}

// GetHirerProfile возвращает профиль работодателя.
func (s *Storage) GetHirerProfile(ctx context.Context, userUID string) (*models.HirerProfile, error) {
	const op = "storage.GetHirerProfile"
	p := &models.HirerProfile{UserID: userUID}
	err := s.DB.QueryRowContext(ctx, `SELECT fee_paid, verified FROM hirer_profiles WHERE user_id = $1`, userUID).
		Scan(&p.FeePaid, &p.Verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
