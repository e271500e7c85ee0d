// Package payment создает платежные сессии вступительного взноса и взноса
// маркетплейса, проверяет их по запросу клиента и сверяет вебхуки провайдеров
// с реестром платежей.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/venture-billing/internal/gateway"
	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/currency"
	"github.com/magabrotheeeer/venture-billing/internal/services/effects"
)

const maxSkipReason = 500

// Repository — операции реестра, нужные сервису платежей.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetProfileFeePaid(ctx context.Context, userUID string, role roles.Role) (bool, error)
	MarkSetupSkipped(ctx context.Context, userUID, reason string, at time.Time) error
	CreatePayment(ctx context.Context, p models.PaymentRecord) (int64, error)
	GetPaymentByReference(ctx context.Context, reference string) (*models.PaymentRecord, error)
	GetPendingPaymentByReference(ctx context.Context, reference string) (*models.PaymentRecord, error)
	MergePaymentMetadata(ctx context.Context, id int64, meta models.GatewayMetadata) error
	CompletePayment(ctx context.Context, id int64, meta models.GatewayMetadata) (bool, error)
	FailPayment(ctx context.Context, id int64, meta models.GatewayMetadata) (bool, error)
	ListPaymentsByUser(ctx context.Context, userID string) ([]*models.PaymentRecord, error)
}

// Converter пересчитывает USD в локальную валюту.
type Converter interface {
	UsdToLocal(ctx context.Context, usd decimal.Decimal, currency string) (currency.Conversion, error)
}

// GatewayRouter выбирает платежного провайдера.
type GatewayRouter interface {
	For(currency string) (gateway.Gateway, error)
	ByName(name models.Gateway) (gateway.Gateway, error)
}

// Quote — стоимость взноса в выбранной валюте.
type Quote struct {
	Type      models.PaymentType `json:"type"`
	AmountUSD decimal.Decimal    `json:"amountUsd"`
	Amount    decimal.Decimal    `json:"amount"`
	Currency  string             `json:"currency"`
	Rate      decimal.Decimal    `json:"rate"`
	Fallback  bool               `json:"fallbackRate"`
	Gateway   models.Gateway     `json:"gateway"`
}

// Session — созданная платежная сессия.
type Session struct {
	SessionID   string          `json:"sessionId"`
	CheckoutURL string          `json:"checkoutUrl"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	AmountUSD   decimal.Decimal `json:"amountUsd"`
	Gateway     models.Gateway  `json:"gateway"`
	Reference   string          `json:"reference"`
}

// VerifyResult — результат проверки платежа клиентом.
type VerifyResult struct {
	OK     bool                 `json:"ok"`
	Paid   bool                 `json:"paid"`
	Status models.PaymentStatus `json:"status"`
}

// Service — сценарии оплаты через платежные шлюзы.
type Service struct {
	repo        Repository
	converter   Converter
	router      GatewayRouter
	effects     effects.Dispatcher
	fees        Fees
	callbackURL string
	announce    *announcer
	now         func() time.Time
	log         *slog.Logger
}

// New создает Service. callbackURL — адрес, куда провайдер вернет пользователя.
func New(log *slog.Logger, repo Repository, converter Converter, router GatewayRouter,
	dispatcher effects.Dispatcher, fees Fees, callbackURL string) *Service {
	return &Service{
		repo:        repo,
		converter:   converter,
		router:      router,
		effects:     dispatcher,
		fees:        fees,
		callbackURL: callbackURL,
		announce:    &announcer{users: repo, effects: dispatcher, log: log},
		now:         time.Now,
		log:         log,
	}
}

// Config возвращает публичные тарифы.
func (s *Service) Config() FeeConfig {
	return s.fees.Config()
}

// Quote считает стоимость взноса для пользователя в валюте currencyCode.
func (s *Service) Quote(ctx context.Context, userID string, scope Scope, currencyCode string) (*Quote, error) {
	const op = "payment.Quote"
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	q, err := s.quote(ctx, user, scope, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return q, nil
}

func (s *Service) quote(ctx context.Context, user *models.User, scope Scope, currencyCode string) (*Quote, error) {
	pType, usd, err := s.fees.For(scope, user.Role)
	if err != nil {
		return nil, err
	}
	conv, err := s.converter.UsdToLocal(ctx, usd, currencyCode)
	if err != nil {
		return nil, err
	}
	g, err := s.router.For(conv.Currency)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Type:      pType,
		AmountUSD: usd,
		Amount:    conv.Amount,
		Currency:  conv.Currency,
		Rate:      conv.Rate,
		Fallback:  conv.Fallback,
		Gateway:   g.Name(),
	}, nil
}

// CreateSession создает запись реестра в статусе pending и сессию у провайдера.
// Если провайдер не ответил, запись переводится в failed с текстом ошибки.
func (s *Service) CreateSession(ctx context.Context, userID string, scope Scope, currencyCode string) (*Session, error) {
	const op = "payment.CreateSession"
	log := s.log.With(slog.String("op", op), slog.String("user_id", userID))

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	paid, err := s.paid(ctx, user, scope)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if paid {
		return nil, fmt.Errorf("%s: %s fee already paid: %w", op, scope, models.ErrAlreadyProcessed)
	}

	q, err := s.quote(ctx, user, scope, currencyCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g, err := s.router.ByName(q.Gateway)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec := models.PaymentRecord{
		UserID:    user.UUID,
		Amount:    q.Amount,
		AmountUSD: q.AmountUSD,
		Currency:  q.Currency,
		Type:      q.Type,
		Gateway:   q.Gateway,
		Status:    models.PaymentPending,
		Reference: models.NewReference(q.Type, user.UUID, s.now()),
		GatewayMetadata: models.GatewayMetadata{
			FallbackRate: q.Fallback,
			Rate:         q.Rate.String(),
		},
	}
	id, err := s.repo.CreatePayment(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(sl.Ref(rec.Reference))

	checkout, err := g.CreateCheckout(ctx, gateway.CheckoutRequest{
		Email:       user.Email,
		AmountMinor: gateway.ToMinorUnits(rec.Amount, rec.Currency),
		Currency:    rec.Currency,
		Reference:   rec.Reference,
		CallbackURL: s.callbackURL,
		Description: Describe(rec.Type),
		Metadata: map[string]string{
			"user_id": user.UUID,
			"type":    string(rec.Type),
		},
	})
	if err != nil {
		log.Error("failed to create checkout session", sl.Err(err))
		// контекст запроса мог истечь вместе с таймаутом провайдера
		failCtx := context.WithoutCancel(ctx)
		if _, ferr := s.repo.FailPayment(failCtx, id, models.GatewayMetadata{Error: err.Error()}); ferr != nil {
			log.Error("failed to mark payment failed", sl.Err(ferr))
		}
		if !errors.Is(err, models.ErrGateway) {
			err = fmt.Errorf("%w: %w", models.ErrGateway, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.MergePaymentMetadata(ctx, id, models.GatewayMetadata{
		SessionID:   checkout.ProviderRef,
		ProviderRef: checkout.ProviderRef,
		CheckoutURL: checkout.CheckoutURL,
	}); err != nil {
		// вебхук все равно найдет запись по reference
		log.Warn("failed to store checkout metadata", sl.Err(err))
	}

	s.effects.Audit(ctx, models.AuditEntry{
		ActorID:    user.UUID,
		ActionType: "payment_session_created",
		EntityType: "payment",
		EntityID:   rec.Reference,
		Details: map[string]any{
			"gateway":       rec.Gateway,
			"amount":        rec.Amount.StringFixed(2),
			"currency":      rec.Currency,
			"fallback_rate": q.Fallback,
		},
	})
	log.Info("checkout session created", slog.String("gateway", string(rec.Gateway)))

	return &Session{
		SessionID:   checkout.ProviderRef,
		CheckoutURL: checkout.CheckoutURL,
		Amount:      rec.Amount,
		Currency:    rec.Currency,
		AmountUSD:   rec.AmountUSD,
		Gateway:     rec.Gateway,
		Reference:   rec.Reference,
	}, nil
}

// Verify сверяет платеж с провайдером по запросу пользователя. Повторный вызов
// для завершенного платежа ничего не меняет и возвращает текущее состояние.
func (s *Service) Verify(ctx context.Context, userID string, scope Scope, reference string) (*VerifyResult, error) {
	const op = "payment.Verify"
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%s: empty reference: %w", op, models.ErrValidation)
	}
	log := s.log.With(slog.String("op", op), sl.Ref(reference))

	rec, err := s.repo.GetPaymentByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("%s: payment of another user: %w", op, models.ErrNotFound)
	}
	if ScopeOf(rec.Type) != scope {
		return nil, fmt.Errorf("%s: reference is not a %s fee: %w", op, scope, models.ErrValidation)
	}

	if rec.Status == models.PaymentPending {
		if err := s.settle(ctx, log, rec); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rec, err = s.repo.GetPaymentByReference(ctx, reference)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	paid, err := s.paid(ctx, user, scope)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &VerifyResult{
		OK:     rec.Status == models.PaymentCompleted,
		Paid:   paid,
		Status: rec.Status,
	}, nil
}

// settle запрашивает у провайдера состояние pending-платежа и завершает его.
func (s *Service) settle(ctx context.Context, log *slog.Logger, rec *models.PaymentRecord) error {
	g, err := s.router.ByName(rec.Gateway)
	if err != nil {
		return err
	}
	providerRef := rec.GatewayMetadata.ProviderRef
	if providerRef == "" {
		if rec.Gateway != models.GatewayPaystack {
			log.Warn("pending payment has no provider reference yet")
			return nil
		}
		providerRef = rec.Reference
	}

	v, err := g.VerifyTransaction(ctx, providerRef)
	if err != nil {
		return err
	}
	if !v.Success {
		if v.Failed {
			log.Warn("provider reports the payment as failed", slog.String("provider_status", v.Status))
			_, err := s.repo.FailPayment(ctx, rec.ID, models.GatewayMetadata{
				Error:         "provider status " + v.Status,
				ProviderRef:   v.ProviderRef,
				ProviderState: v.Status,
			})
			return err
		}
		log.Info("payment is not settled at provider yet", slog.String("provider_status", v.Status))
		return nil
	}

	if reason := amountMismatch(rec, v.AmountMinor, v.Currency); reason != "" {
		log.Warn("provider amount does not match ledger", slog.String("reason", reason))
		if _, err := s.repo.FailPayment(ctx, rec.ID, models.GatewayMetadata{Error: reason, ProviderState: v.Status}); err != nil {
			return err
		}
		return nil
	}

	won, err := s.repo.CompletePayment(ctx, rec.ID, models.GatewayMetadata{
		ProviderRef:   v.ProviderRef,
		ProviderState: v.Status,
		CompletedBy:   OriginVerify,
	})
	if err != nil {
		return err
	}
	if !won {
		log.Info("payment already resolved concurrently")
		return nil
	}
	s.announce.completed(ctx, rec, OriginVerify)
	return nil
}

// Skip откладывает оплату вступительного взноса. Доступ при этом не выдается.
func (s *Service) Skip(ctx context.Context, userID, reason string) error {
	const op = "payment.Skip"
	reason = strings.TrimSpace(reason)
	if len(reason) > maxSkipReason {
		return fmt.Errorf("%s: reason is too long: %w", op, models.ErrValidation)
	}
	if err := s.repo.MarkSetupSkipped(ctx, userID, reason, s.now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.effects.Audit(ctx, models.AuditEntry{
		ActorID:    userID,
		ActionType: "setup_fee_skipped",
		EntityType: "user",
		EntityID:   userID,
		Details:    map[string]any{"reason": reason},
	})
	return nil
}

// History возвращает платежи пользователя через шлюзы, новые первыми.
func (s *Service) History(ctx context.Context, userID string) ([]*models.PaymentRecord, error) {
	const op = "payment.History"
	list, err := s.repo.ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Service) paid(ctx context.Context, user *models.User, scope Scope) (bool, error) {
	if scope == ScopeSetup {
		return user.SetupPaid, nil
	}
	return s.repo.GetProfileFeePaid(ctx, user.UUID, user.Role)
}

// amountMismatch возвращает причину, если провайдер списал меньше, чем записано
// в реестре, или в другой валюте. Пустая строка — суммы сходятся.
func amountMismatch(rec *models.PaymentRecord, amountMinor int64, currencyCode string) string {
	if currencyCode != "" && !strings.EqualFold(currencyCode, rec.Currency) {
		return fmt.Sprintf("currency mismatch: expected %s, got %s", rec.Currency, strings.ToUpper(currencyCode))
	}
	expected := gateway.ToMinorUnits(rec.Amount, rec.Currency)
	if amountMinor < expected {
		return fmt.Sprintf("amount mismatch: expected %s %s, got %s %s",
			gateway.FromMinorUnits(expected, rec.Currency), rec.Currency,
			gateway.FromMinorUnits(amountMinor, rec.Currency), rec.Currency)
	}
	return ""
}
