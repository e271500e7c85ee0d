package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType — назначение платежа через платежный шлюз.
type PaymentType string

const (
	PaymentSetupFee             PaymentType = "setup_fee"
	PaymentTalentMarketplaceFee PaymentType = "talent_marketplace_fee"
	PaymentHirerPlatformFee     PaymentType = "hirer_platform_fee"
)

// PaymentStatus — состояние записи реестра. completed и failed терминальны.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Gateway — имя платежного провайдера.
type Gateway string

const (
	GatewayStripe   Gateway = "stripe"
	GatewayPaystack Gateway = "paystack"
)

// GatewayMetadata — непрозрачные данные провайдера, хранятся в JSONB.
type GatewayMetadata struct {
	SessionID     string `json:"session_id,omitempty"`
	CheckoutURL   string `json:"checkout_url,omitempty"`
	ProviderRef   string `json:"provider_ref,omitempty"`
	Error         string `json:"error,omitempty"`
	FallbackRate  bool   `json:"fallback_rate,omitempty"`
	Rate          string `json:"rate,omitempty"`
	CompletedBy   string `json:"completed_by,omitempty"` // webhook или verify
	ProviderState string `json:"provider_state,omitempty"`
}

// PaymentRecord — запись реестра о намерении оплатить и ее разрешении.
type PaymentRecord struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"userId"`
	Amount          decimal.Decimal `json:"amount"` // в валюте списания
	AmountUSD       decimal.Decimal `json:"amountUsd"`
	Currency        string          `json:"currency"`
	Type            PaymentType     `json:"type"`
	Gateway         Gateway         `json:"gateway"`
	Status          PaymentStatus   `json:"status"`
	Reference       string          `json:"reference"`
	GatewayMetadata GatewayMetadata `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// NewReference формирует ссылку в формате <type>_<userId>_<epochMillis>.
// Формат используется для корреляции с провайдерами и не должен меняться.
func NewReference(t PaymentType, userID string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%d", t, userID, now.UnixMilli())
}

// ParseReferenceType извлекает тип платежа из ссылки.
func ParseReferenceType(reference string) (PaymentType, bool) {
	for _, t := range []PaymentType{PaymentTalentMarketplaceFee, PaymentHirerPlatformFee, PaymentSetupFee} {
		if strings.HasPrefix(reference, string(t)+"_") {
			return t, true
		}
	}
	return "", false
}

// Valid сообщает, известен ли тип платежа.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentSetupFee, PaymentTalentMarketplaceFee, PaymentHirerPlatformFee:
		return true
	}
	return false
}
