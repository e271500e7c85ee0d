// Package password хеширует и проверяет пароли пользователей bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost — стоимость bcrypt для новых хешей.
const Cost = 12

// MaxLength — bcrypt учитывает только первые 72 байта.
const MaxLength = 72

// ErrTooLong возвращается для пароля длиннее MaxLength байт.
var ErrTooLong = errors.New("password exceeds 72 bytes")

// dummyHash сравнивается с паролем, когда пользователь не найден,
// чтобы время ответа не выдавало существование адреса.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("venture-billing-placeholder"), bcrypt.MinCost)

// GetHash возвращает bcrypt-хеш пароля.
func GetHash(password string) (string, error) {
	const op = "password.GetHash"
	if len(password) > MaxLength {
		return "", fmt.Errorf("%s: %w", op, ErrTooLong)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Matches сообщает, подходит ли пароль к хешу. Несовпадение не ошибка,
// ошибка возвращается только для поврежденного хеша. Пароль длиннее
// MaxLength никогда не совпадает: bcrypt отбросил бы хвост.
func Matches(hash, password string) (bool, error) {
	const op = "password.Matches"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return len(password) <= MaxLength, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", op, err)
	}
}

// Burn выполняет сравнение с фиктивным хешем.
func Burn(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
