package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// InsertAuditLog сохраняет запись журнала аудита.
func (s *Storage) InsertAuditLog(ctx context.Context, e models.AuditEntry) error {
	const op = "storage.InsertAuditLog"
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO audit_logs (actor_id, action_type, entity_type, entity_id, details, created_at)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		e.ActorID, e.ActionType, e.EntityType, e.EntityID, string(raw), createdAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// InsertNotification сохраняет уведомление пользователю.
func (s *Storage) InsertNotification(ctx context.Context, n models.Notification) error {
	const op = "storage.InsertNotification"
	_, err := s.DB.ExecContext(ctx, `INSERT INTO notifications (user_id, type, title, message, link)
			VALUES ($1, $2, $3, $4, $5)`, n.UserID, n.Type, n.Title, n.Message, n.Link)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
