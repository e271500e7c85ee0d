// Package auth содержит регистрацию и вход пользователей платформы.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/magabrotheeeer/venture-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/venture-billing/internal/lib/password"
	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

const minPasswordLen = 8

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя вместе с профилем маркетплейса и возвращает его ID.
	RegisterUser(ctx context.Context, user models.User) (string, error)

	// GetUserByEmail возвращает пользователя по email или models.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Enroller — запись в программу раннего доступа по реферальному коду.
type Enroller interface {
	Qualifies(code string) bool
	Enroll(ctx context.Context, userID, email string) (*models.EarlyAccessEnrollment, error)
}

// RegisterRequest — данные для регистрации.
type RegisterRequest struct {
	Email        string
	Password     string
	Role         roles.Role
	ReferralCode string
}

// Registration — результат регистрации.
type Registration struct {
	UserID      string
	EarlyAccess bool
}

// LoginResult — выданный токен и роль пользователя.
type LoginResult struct {
	Token  string
	UserID string
	Role   roles.Role
}

// Service отвечает за регистрацию и авторизацию.
type Service struct {
	users       UserRepository
	jwtMaker    jwt.Maker
	earlyAccess Enroller
	log         *slog.Logger
}

// New создает новый экземпляр Service. earlyAccess может быть nil.
func New(log *slog.Logger, users UserRepository, jwtMaker jwt.Maker, earlyAccess Enroller) *Service {
	return &Service{
		users:       users,
		jwtMaker:    jwtMaker,
		earlyAccess: earlyAccess,
		log:         log,
	}
}

// Register создает пользователя с хэшированием пароля. Подходящий реферальный
// код записывает его в когорту раннего доступа; заполненная когорта не мешает
// регистрации.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	const op = "auth.Register"
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%s: invalid email: %w", op, models.ErrValidation)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("%s: password too short: %w", op, models.ErrValidation)
	}
	if len(req.Password) > password.MaxLength {
		return nil, fmt.Errorf("%s: password too long: %w", op, models.ErrValidation)
	}
	if !roles.Selfregisterable(req.Role) {
		return nil, fmt.Errorf("%s: role %q: %w", op, req.Role, models.ErrValidation)
	}

	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	userID, err := s.users.RegisterUser(ctx, models.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         req.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", slog.String("user_id", userID), slog.String("role", string(req.Role)))

	res := &Registration{UserID: userID}
	if s.earlyAccess == nil || req.ReferralCode == "" {
		return res, nil
	}
	if !s.earlyAccess.Qualifies(req.ReferralCode) {
		s.log.Info("referral code does not qualify", slog.String("user_id", userID))
		return res, nil
	}
	_, err = s.earlyAccess.Enroll(ctx, userID, email)
	switch {
	case err == nil:
		res.EarlyAccess = true
	case errors.Is(err, models.ErrCohortFull), errors.Is(err, models.ErrAlreadyEnrolled):
		s.log.Info("early access not granted", slog.String("user_id", userID), sl.Err(err))
	default:
		s.log.Error("early access enrollment failed", slog.String("user_id", userID), sl.Err(err))
	}
	return res, nil
}

// Login проверяет пароль пользователя и генерирует JWT.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*LoginResult, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			password.Burn(rawPassword)
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ok, err := password.Matches(user.PasswordHash, rawPassword)
	if err != nil {
		s.log.Error("stored password hash is corrupt", slog.String("user_id", user.UUID), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	token, err := s.jwtMaker.GenerateToken(user.UUID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &LoginResult{Token: token, UserID: user.UUID, Role: user.Role}, nil
}
