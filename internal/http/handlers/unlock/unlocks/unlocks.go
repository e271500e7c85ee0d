// Package unlocks отдает вычисленные возможности текущего пользователя.
package unlocks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/services/unlock"
)

// Service вычисляет возможности.
type Service interface {
	ForUser(ctx context.Context, userID string) (*unlock.State, error)
}

// Handler обрабатывает GET /me/unlocks.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Открытые возможности пользователя
// @Tags Unlocks
// @Produce json
// @Success 200 {object} unlock.State
// @Router /me/unlocks [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.unlock.unlocks"

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	state, err := h.service.ForUser(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to derive unlocks",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", userID),
			sl.Err(err),
		)
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(state))
}
