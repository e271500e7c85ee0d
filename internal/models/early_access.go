package models

import "time"

// EarlyAccessStatus — состояние участника программы раннего доступа.
type EarlyAccessStatus string

const (
	EarlyAccessActive    EarlyAccessStatus = "active"
	EarlyAccessCompleted EarlyAccessStatus = "completed"
	EarlyAccessInactive  EarlyAccessStatus = "inactive"
)

// EarlyAccessEnrollment — место в ограниченной когорте раннего доступа.
type EarlyAccessEnrollment struct {
	UserID                string            `json:"userId"`
	SignupOrder           int               `json:"signupOrder"`
	Status                EarlyAccessStatus `json:"status"`
	IdeaSubmitted         bool              `json:"ideaSubmitted"`
	ConsultationCompleted bool              `json:"consultationCompleted"`
	LastActiveAt          time.Time         `json:"lastActiveAt"`
	CreatedAt             time.Time         `json:"createdAt"`
}

// Grants сообщает, дает ли запись статус раннего основателя.
func (e *EarlyAccessEnrollment) Grants() bool {
	if e == nil {
		return false
	}
	return e.Status == EarlyAccessActive || e.Status == EarlyAccessCompleted
}
