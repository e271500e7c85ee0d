// Package unlock вычисляет, какие возможности платформы доступны пользователю.
// Состояние не хранится и пересчитывается при каждом чтении.
package unlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// Возможности платформы в порядке выдачи.
const (
	FeatureProjectWorkspace  = "project_workspace"
	FeatureIdeaLab           = "idea_lab"
	FeatureMentorSessions    = "mentor_sessions"
	FeatureMarketplace       = "marketplace"
	FeatureEarlyFounderPerks = "early_founder_perks"
	FeatureDonorWall         = "donor_wall"
)

// Inputs — исходные данные для вычисления.
type Inputs struct {
	Role           roles.Role
	SetupPaid      bool
	EarlyAccess    *models.EarlyAccessEnrollment
	Badges         []string
	ProfileFeePaid bool
	PendingManual  bool
}

// State — доступные пользователю возможности.
type State struct {
	HasSetupAccess          bool     `json:"hasSetupAccess"`
	HasMarketplaceAccess    bool     `json:"hasMarketplaceAccess"`
	IsEarlyFounder          bool     `json:"isEarlyFounder"`
	HasDonorBadge           bool     `json:"hasDonorBadge"`
	HasPendingManualPayment bool     `json:"hasPendingManualPayment"`
	UnlockedFeatures        []string `json:"unlockedFeatures"`
}

// Derive вычисляет State. Функция чистая.
func Derive(in Inputs) State {
	badges := make(map[string]bool, len(in.Badges))
	for _, b := range in.Badges {
		badges[b] = true
	}

	var st State
	st.IsEarlyFounder = badges[models.BadgeEarlyFounder] || in.EarlyAccess.Grants()
	// неактивность снимает бонусы раннего основателя, но не отзывает доступ
	enrolled := in.EarlyAccess != nil
	st.HasSetupAccess = in.SetupPaid || st.IsEarlyFounder || enrolled || roles.IsAdminOrTeam(in.Role)
	st.HasMarketplaceAccess = marketplaceAccess(in.Role, in.ProfileFeePaid)
	st.HasDonorBadge = badges[models.BadgeDonorSupporter]
	st.HasPendingManualPayment = in.PendingManual

	st.UnlockedFeatures = []string{}
	if st.HasSetupAccess {
		st.UnlockedFeatures = append(st.UnlockedFeatures, FeatureProjectWorkspace, FeatureIdeaLab, FeatureMentorSessions)
	}
	if st.HasMarketplaceAccess {
		st.UnlockedFeatures = append(st.UnlockedFeatures, FeatureMarketplace)
	}
	if st.IsEarlyFounder {
		st.UnlockedFeatures = append(st.UnlockedFeatures, FeatureEarlyFounderPerks)
	}
	if st.HasDonorBadge {
		st.UnlockedFeatures = append(st.UnlockedFeatures, FeatureDonorWall)
	}
	return st
}

func marketplaceAccess(role roles.Role, profileFeePaid bool) bool {
	switch {
	case roles.HasMarketplaceProfile(role):
		return profileFeePaid
	case role == roles.Investor, roles.IsAdminOrTeam(role):
		return true
	}
	return false
}

// Repository — чтение данных для вычисления.
type Repository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetProfileFeePaid(ctx context.Context, userUID string, role roles.Role) (bool, error)
	GetEarlyAccess(ctx context.Context, userID string) (*models.EarlyAccessEnrollment, error)
	ListBadges(ctx context.Context, userID string) ([]models.Badge, error)
	HasPendingManualPayment(ctx context.Context, userID string) (bool, error)
}

// EarlyAccessReader возвращает запись раннего доступа с учетом неактивности.
type EarlyAccessReader interface {
	Status(ctx context.Context, userID string) (*models.EarlyAccessEnrollment, error)
}

// Service загружает входные данные и вызывает Derive.
type Service struct {
	repo        Repository
	earlyAccess EarlyAccessReader
	log         *slog.Logger
}

// New создает Service. earlyAccess может быть nil, тогда запись читается напрямую.
func New(log *slog.Logger, repo Repository, earlyAccess EarlyAccessReader) *Service {
	return &Service{repo: repo, earlyAccess: earlyAccess, log: log}
}

// ForUser вычисляет текущее состояние пользователя.
func (s *Service) ForUser(ctx context.Context, userID string) (*State, error) {
	const op = "unlock.ForUser"
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	in := Inputs{Role: user.Role, SetupPaid: user.SetupPaid}

	if roles.HasMarketplaceProfile(user.Role) {
		if in.ProfileFeePaid, err = s.repo.GetProfileFeePaid(ctx, userID, user.Role); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	var enrollment *models.EarlyAccessEnrollment
	if s.earlyAccess != nil {
		enrollment, err = s.earlyAccess.Status(ctx, userID)
	} else {
		enrollment, err = s.repo.GetEarlyAccess(ctx, userID)
	}
	switch {
	case errors.Is(err, models.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	default:
		in.EarlyAccess = enrollment
	}

	badges, err := s.repo.ListBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, b := range badges {
		in.Badges = append(in.Badges, b.Name)
	}

	if in.PendingManual, err = s.repo.HasPendingManualPayment(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	st := Derive(in)
	return &st, nil
}
