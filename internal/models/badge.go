package models

import "time"

const (
	BadgeDonorSupporter = "donor_supporter"
	BadgeEarlyFounder   = "early_founder"
)

// Badge — награда пользователя. Пара (UserID, Name) уникальна.
type Badge struct {
	UserID      string
	Name        string
	DateAwarded time.Time
}
