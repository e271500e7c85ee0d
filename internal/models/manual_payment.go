package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ManualPaymentType — назначение ручного (банковского) платежа.
type ManualPaymentType string

const (
	ManualPlatformFee ManualPaymentType = "platform_fee"
	ManualDonation    ManualPaymentType = "donation"
)

// ManualPaymentStatus — состояние ручного платежа. Confirmed и Rejected терминальны.
type ManualPaymentStatus string

const (
	ManualPending   ManualPaymentStatus = "Pending"
	ManualConfirmed ManualPaymentStatus = "Confirmed"
	ManualRejected  ManualPaymentStatus = "Rejected"
)

// ManualPaymentRecord — платеж, о котором сообщил пользователь и который
// подтверждает или отклоняет администратор.
type ManualPaymentRecord struct {
	ID          int64               `json:"id"`
	UserID      string              `json:"userId"`
	Amount      decimal.Decimal     `json:"amount"`
	Currency    string              `json:"currency"`
	PaymentType ManualPaymentType   `json:"paymentType"`
	Status      ManualPaymentStatus `json:"status"`
	SubmittedAt time.Time           `json:"submittedAt"`
	ConfirmedAt *time.Time          `json:"confirmedAt,omitempty"`
	Notes       string              `json:"notes,omitempty"`
	ProofURL    string              `json:"proofUrl,omitempty"`
	ReviewedBy  string              `json:"reviewedBy,omitempty"`
}

// Valid сообщает, известен ли тип ручного платежа.
func (t ManualPaymentType) Valid() bool {
	return t == ManualPlatformFee || t == ManualDonation
}
