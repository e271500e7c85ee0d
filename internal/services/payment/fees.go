package payment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/venture-billing/internal/config"
	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// Scope — вид взноса: вступительный или за доступ к маркетплейсу.
type Scope string

const (
	ScopeSetup       Scope = "setup"
	ScopeMarketplace Scope = "marketplace"
)

// Fees — тарифы в USD.
type Fees struct {
	SetupFounderUSD      decimal.Decimal
	SetupInvestorUSD     decimal.Decimal
	TalentMarketplaceUSD decimal.Decimal
	HirerPlatformUSD     decimal.Decimal
}

// FeesFromConfig переводит тарифы из конфига в decimal.
func FeesFromConfig(cfg config.Fees) Fees {
	return Fees{
		SetupFounderUSD:      decimal.NewFromFloat(cfg.SetupFounderUSD).Round(2),
		SetupInvestorUSD:     decimal.NewFromFloat(cfg.SetupInvestorUSD).Round(2),
		TalentMarketplaceUSD: decimal.NewFromFloat(cfg.TalentMarketplaceUSD).Round(2),
		HirerPlatformUSD:     decimal.NewFromFloat(cfg.HirerPlatformUSD).Round(2),
	}
}

// For возвращает тип платежа и сумму в USD для роли.
// Роли команды платформы взносов не платят.
func (f Fees) For(scope Scope, role roles.Role) (models.PaymentType, decimal.Decimal, error) {
	switch scope {
	case ScopeSetup:
		switch role {
		case roles.Founder, roles.Talent, roles.Hirer:
			return models.PaymentSetupFee, f.SetupFounderUSD, nil
		case roles.Investor:
			return models.PaymentSetupFee, f.SetupInvestorUSD, nil
		}
	case ScopeMarketplace:
		switch role {
		case roles.Talent:
			return models.PaymentTalentMarketplaceFee, f.TalentMarketplaceUSD, nil
		case roles.Hirer:
			return models.PaymentHirerPlatformFee, f.HirerPlatformUSD, nil
		}
	}
	return "", decimal.Zero, fmt.Errorf("no %s fee for role %q: %w", scope, role, models.ErrValidation)
}

// ScopeOf возвращает вид взноса для типа платежа.
func ScopeOf(t models.PaymentType) Scope {
	if t == models.PaymentSetupFee {
		return ScopeSetup
	}
	return ScopeMarketplace
}

// FeeConfig — публичная конфигурация тарифов.
type FeeConfig struct {
	Setup       map[roles.Role]decimal.Decimal `json:"setup"`
	Marketplace map[roles.Role]decimal.Decimal `json:"marketplace"`
	Currency    string                         `json:"currency"`
}

// Config возвращает публичные тарифы.
func (f Fees) Config() FeeConfig {
	return FeeConfig{
		Setup: map[roles.Role]decimal.Decimal{
			roles.Founder:  f.SetupFounderUSD,
			roles.Talent:   f.SetupFounderUSD,
			roles.Hirer:    f.SetupFounderUSD,
			roles.Investor: f.SetupInvestorUSD,
		},
		Marketplace: map[roles.Role]decimal.Decimal{
			roles.Talent: f.TalentMarketplaceUSD,
			roles.Hirer:  f.HirerPlatformUSD,
		},
		Currency: "USD",
	}
}
