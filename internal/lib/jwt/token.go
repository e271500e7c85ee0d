// Package jwt выпускает и проверяет токены доступа HS256.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer и Audience проверяются при разборе токена.
	Issuer   = "venture-billing"
	Audience = "venture-api"

	// MinSecretLength — минимальная длина ключа HS256 в байтах.
	MinSecretLength = 32

	leeway = 30 * time.Second
)

// ErrWeakSecret возвращается для ключа короче MinSecretLength.
var ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")

// Claims — данные пользователя в токене.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Maker выпускает и разбирает токены.
type Maker interface {
	GenerateToken(userID, email, role string) (string, error)
	ParseToken(token string) (*Claims, error)
}

// HMACMaker подписывает токены общим секретом.
type HMACMaker struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewMaker создает HMACMaker. Короткий ключ отклоняется.
func NewMaker(secret string, ttl time.Duration) (*HMACMaker, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HMACMaker{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// GenerateToken выпускает токен на ttl с уникальным идентификатором.
func (m *HMACMaker) GenerateToken(userID, email, role string) (string, error) {
	const op = "jwt.GenerateToken"
	now := m.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken проверяет подпись, срок, издателя и аудиторию токена.
func (m *HMACMaker) ParseToken(token string) (*Claims, error) {
	const op = "jwt.ParseToken"
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
