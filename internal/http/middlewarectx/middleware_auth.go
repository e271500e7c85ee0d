// Package middlewarectx содержит HTTP middleware: проверку JWT, проверку
// возможностей роли, ограничение частоты запросов и метрики.
//
// JWTMiddleware проверяет наличие и валидность JWT токена в заголовке Authorization
// и в случае успеха кладет в контекст идентификатор, почту и роль пользователя.
// В случае ошибки проверки возвращает HTTP 401 Unauthorized с сообщением об ошибке.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID — ключ для UID пользователя в контексте
	UserID Key = "user_id"
	// Email — ключ для почты пользователя в контексте
	Email Key = "email"
	// Role — ключ для роли пользователя в контексте
	Role Key = "role"
)

// TokenParser описывает проверку JWT токена.
type TokenParser interface {
	ParseToken(token string) (*jwt.Claims, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			role, ok := roles.Parse(claims.Role)
			if !ok || claims.UserID == "" {
				log.Warn("token carries unknown role or empty user", slog.String("role", claims.Role))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			log.Debug("request authenticated", slog.String("user_id", claims.UserID), slog.String("token_id", claims.ID))
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.UserID, claims.Email, role)))
		})
	}
}

// WithUser кладет данные пользователя в контекст.
func WithUser(ctx context.Context, userID, email string, role roles.Role) context.Context {
	ctx = context.WithValue(ctx, UserID, userID)
	ctx = context.WithValue(ctx, Email, email)
	return context.WithValue(ctx, Role, role)
}

// UserIDFrom возвращает UID пользователя из контекста.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserID).(string)
	return id, ok && id != ""
}

// RoleFrom возвращает роль пользователя из контекста.
func RoleFrom(ctx context.Context) (roles.Role, bool) {
	role, ok := ctx.Value(Role).(roles.Role)
	return role, ok
}
