package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskKind — тип побочной задачи, отправляемой в очередь.
type TaskKind string

const (
	TaskAudit   TaskKind = "audit"
	TaskNotify  TaskKind = "notify"
	TaskEmail   TaskKind = "email"
	TaskInvoice TaskKind = "invoice"
)

// AuditEntry — запись журнала аудита.
type AuditEntry struct {
	ActorID    string         `json:"actor_id"`
	ActionType string         `json:"action_type"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Notification — внутреннее уведомление пользователю.
type Notification struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// EmailMessage — письмо по шаблону.
type EmailMessage struct {
	Type         string            `json:"type"`
	To           string            `json:"to"`
	TemplateData map[string]string `json:"template_data,omitempty"`
}

// InvoiceRequest — данные для PDF-счета, который отправляется пользователю.
type InvoiceRequest struct {
	Number      string          `json:"number"`
	UserID      string          `json:"user_id"`
	Email       string          `json:"email"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	IssuedAt    time.Time       `json:"issued_at"`
}
