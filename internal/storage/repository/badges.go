package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// AwardBadge выдает бейдж. Повторная выдача ничего не меняет и возвращает false.
func (s *Storage) AwardBadge(ctx context.Context, userID, name string) (bool, error) {
	const op = "storage.AwardBadge"
	res, err := s.DB.ExecContext(ctx, `INSERT INTO badges (user_id, badge_name) VALUES ($1, $2)
			ON CONFLICT (user_id, badge_name) DO NOTHING`, userID, name)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

// ListBadges возвращает бейджи пользователя в порядке выдачи.
func (s *Storage) ListBadges(ctx context.Context, userID string) ([]models.Badge, error) {
	const op = "storage.ListBadges"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT user_id, badge_name, date_awarded
			FROM badges WHERE user_id = $1 ORDER BY date_awarded, badge_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Badge
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.UserID, &b.Name, &b.DateAwarded); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
