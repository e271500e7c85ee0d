// Package manualpayment реализует оплату банковским переводом: пользователь
// сообщает о переводе, администратор подтверждает или отклоняет заявку.
package manualpayment

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/venture-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/currency"
	"github.com/magabrotheeeer/venture-billing/internal/services/effects"
)

const (
	maxNotes     = 1000
	originManual = "manual"
)

// Repository — операции с ручными платежами.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	CreateManualPayment(ctx context.Context, m models.ManualPaymentRecord) (*models.ManualPaymentRecord, error)
	GetManualPayment(ctx context.Context, id int64) (*models.ManualPaymentRecord, error)
	ListManualPaymentsByUser(ctx context.Context, userID string) ([]*models.ManualPaymentRecord, error)
	ListManualPaymentsByStatus(ctx context.Context, status models.ManualPaymentStatus) ([]*models.ManualPaymentRecord, error)
	ConfirmManualPayment(ctx context.Context, id int64, adminID, note string, at time.Time) (*models.ManualPaymentRecord, error)
	RejectManualPayment(ctx context.Context, id int64, adminID, reason string) (*models.ManualPaymentRecord, error)
}

// SubmitRequest — заявка пользователя о переводе.
type SubmitRequest struct {
	UserID      string
	Amount      decimal.Decimal
	Currency    string
	PaymentType models.ManualPaymentType
	ProofURL    string
	Notes       string
}

// Service — сценарии ручной оплаты.
type Service struct {
	repo    Repository
	effects effects.Dispatcher
	now     func() time.Time
	log     *slog.Logger
}

// New создает Service.
func New(log *slog.Logger, repo Repository, dispatcher effects.Dispatcher) *Service {
	return &Service{repo: repo, effects: dispatcher, now: time.Now, log: log}
}

// Submit создает заявку в статусе Pending.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.ManualPaymentRecord, error) {
	const op = "manualpayment.Submit"
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%s: amount must be positive: %w", op, models.ErrValidation)
	}
	code, err := currency.NormalizeCode(req.Currency)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !req.PaymentType.Valid() {
		return nil, fmt.Errorf("%s: unknown payment type %q: %w", op, req.PaymentType, models.ErrValidation)
	}
	proof := strings.TrimSpace(req.ProofURL)
	if proof != "" && !validProofURL(proof) {
		return nil, fmt.Errorf("%s: proof url must be http(s): %w", op, models.ErrValidation)
	}
	notes := strings.TrimSpace(req.Notes)
	if len(notes) > maxNotes {
		return nil, fmt.Errorf("%s: notes are too long: %w", op, models.ErrValidation)
	}

	rec, err := s.repo.CreateManualPayment(ctx, models.ManualPaymentRecord{
		UserID:      req.UserID,
		Amount:      req.Amount.Round(2),
		Currency:    code,
		PaymentType: req.PaymentType,
		Status:      models.ManualPending,
		Notes:       notes,
		ProofURL:    proof,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.effects.Audit(ctx, models.AuditEntry{
		ActorID:    req.UserID,
		ActionType: "manual_payment_submitted",
		EntityType: "manual_payment",
		EntityID:   strconv.FormatInt(rec.ID, 10),
		Details: map[string]any{
			"amount":       rec.Amount.StringFixed(2),
			"currency":     rec.Currency,
			"payment_type": rec.PaymentType,
		},
	})
	s.log.Info("manual payment submitted",
		slog.Int64("id", rec.ID), slog.String("user_id", req.UserID), slog.String("type", string(rec.PaymentType)))
	return rec, nil
}

// Confirm подтверждает заявку. Разблокировка применяется в той же транзакции,
// побочные задачи ставятся только после успешного перехода.
func (s *Service) Confirm(ctx context.Context, adminID string, id int64, note string) (*models.ManualPaymentRecord, error) {
	const op = "manualpayment.Confirm"
	log := s.log.With(slog.String("op", op), slog.Int64("id", id), slog.String("admin_id", adminID))

	rec, err := s.repo.ConfirmManualPayment(ctx, id, adminID, strings.TrimSpace(note), s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.PaymentsCompleted.WithLabelValues(string(rec.PaymentType), originManual).Inc()
	log.Info("manual payment confirmed", slog.String("type", string(rec.PaymentType)))

	entityID := strconv.FormatInt(rec.ID, 10)
	s.effects.Notify(ctx, models.Notification{
		UserID:  rec.UserID,
		Type:    "manual_payment",
		Title:   "Bank transfer confirmed",
		Message: fmt.Sprintf("Your transfer of %s %s was confirmed.", rec.Amount.StringFixed(2), rec.Currency),
		Link:    "/billing",
	})
	s.effects.Audit(ctx, models.AuditEntry{
		ActorID:    adminID,
		ActionType: "manual_payment_confirmed",
		EntityType: "manual_payment",
		EntityID:   entityID,
		Details: map[string]any{
			"user_id":      rec.UserID,
			"payment_type": rec.PaymentType,
			"amount":       rec.Amount.StringFixed(2),
			"currency":     rec.Currency,
		},
	})

	user, err := s.repo.GetUser(ctx, rec.UserID)
	if err != nil {
		log.Warn("skipping invoice, user lookup failed", sl.Err(err))
		return rec, nil
	}
	s.effects.Invoice(ctx, models.InvoiceRequest{
		Number:      InvoiceNumber(rec.ID),
		UserID:      rec.UserID,
		Email:       user.Email,
		Description: describe(rec.PaymentType),
		Amount:      rec.Amount,
		Currency:    rec.Currency,
		IssuedAt:    s.now().UTC(),
	})
	s.effects.Email(ctx, models.EmailMessage{
		Type: effects.EmailManualPaymentReceived,
		To:   user.Email,
		TemplateData: map[string]string{
			"amount":   rec.Amount.StringFixed(2),
			"currency": rec.Currency,
		},
	})
	return rec, nil
}

// Reject отклоняет заявку. Причина обязательна.
func (s *Service) Reject(ctx context.Context, adminID string, id int64, reason string) (*models.ManualPaymentRecord, error) {
	const op = "manualpayment.Reject"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%s: reason is required: %w", op, models.ErrValidation)
	}
	if len(reason) > maxNotes {
		return nil, fmt.Errorf("%s: reason is too long: %w", op, models.ErrValidation)
	}

	rec, err := s.repo.RejectManualPayment(ctx, id, adminID, reason)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("manual payment rejected", slog.Int64("id", id), slog.String("admin_id", adminID))

	s.effects.Notify(ctx, models.Notification{
		UserID:  rec.UserID,
		Type:    "manual_payment",
		Title:   "Bank transfer rejected",
		Message: "Your transfer could not be confirmed: " + reason,
		Link:    "/billing",
	})
	s.effects.Audit(ctx, models.AuditEntry{
		ActorID:    adminID,
		ActionType: "manual_payment_rejected",
		EntityType: "manual_payment",
		EntityID:   strconv.FormatInt(rec.ID, 10),
		Details:    map[string]any{"user_id": rec.UserID, "reason": reason},
	})
	if user, err := s.repo.GetUser(ctx, rec.UserID); err == nil {
		s.effects.Email(ctx, models.EmailMessage{
			Type: effects.EmailManualPaymentRejected,
			To:   user.Email,
			TemplateData: map[string]string{
				"amount":   rec.Amount.StringFixed(2),
				"currency": rec.Currency,
				"reason":   reason,
			},
		})
	} else {
		s.log.Warn("skipping rejection email", slog.Int64("id", id), sl.Err(err))
	}
	return rec, nil
}

// Get возвращает заявку по ID для проверки перед решением.
func (s *Service) Get(ctx context.Context, id int64) (*models.ManualPaymentRecord, error) {
	const op = "manualpayment.Get"
	rec, err := s.repo.GetManualPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// ListOwn возвращает заявки пользователя.
func (s *Service) ListOwn(ctx context.Context, userID string) ([]*models.ManualPaymentRecord, error) {
	const op = "manualpayment.ListOwn"
	res, err := s.repo.ListManualPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// ListByStatus возвращает заявки в статусе status. Пустой статус означает Pending.
func (s *Service) ListByStatus(ctx context.Context, status string) ([]*models.ManualPaymentRecord, error) {
	const op = "manualpayment.ListByStatus"
	st, err := ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res, err := s.repo.ListManualPaymentsByStatus(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// ParseStatus приводит строку к статусу без учета регистра.
func ParseStatus(s string) (models.ManualPaymentStatus, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.ManualPending, nil
	}
	for _, st := range []models.ManualPaymentStatus{models.ManualPending, models.ManualConfirmed, models.ManualRejected} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q: %w", s, models.ErrValidation)
}

// InvoiceNumber возвращает номер счета для ручного платежа.
func InvoiceNumber(id int64) string {
	return "MP-" + strconv.FormatInt(id, 10)
}

func describe(t models.ManualPaymentType) string {
	if t == models.ManualDonation {
		return "Donation"
	}
	return "Platform fee (bank transfer)"
}

func validProofURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
