// Package models содержит доменные структуры платежного контура:
// пользователей, записи реестра платежей, ручные платежи, бейджи,
// записи программы раннего доступа и задачи побочных эффектов.
package models

import (
	"time"

	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
)

// User представляет зарегистрированного пользователя платформы.
type User struct {
	UUID            string     // Уникальный идентификатор пользователя
	Email           string     // Электронная почта
	PasswordHash    string     // Хэш пароля пользователя
	Role            roles.Role // Роль пользователя
	SetupPaid       bool       // Оплачен ли вступительный взнос
	SetupSkippedAt  *time.Time // Когда пользователь отложил оплату взноса
	SetupSkipReason string     // Причина, указанная при откладывании
	CreatedAt       time.Time
}

// TalentProfile — профиль специалиста на маркетплейсе.
type TalentProfile struct {
	UserID  string
	FeePaid bool
}

// HirerProfile — профиль работодателя на маркетплейсе.
type HirerProfile struct {
	UserID   string
	FeePaid  bool
	Verified bool
}
