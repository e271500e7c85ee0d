package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
)

// RequireCapability пропускает запрос, только если роль из контекста
// разрешает действие. Ставится после JWTMiddleware.
func RequireCapability(log *slog.Logger, action roles.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			if !roles.Can(role, action) {
				log.Warn("capability denied",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("role", string(role)),
					slog.String("action", string(action)),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
