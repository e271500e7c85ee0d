// Package eastatus отдает состояние участия в программе раннего доступа.
package eastatus

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// Service возвращает запись участника.
type Service interface {
	Status(ctx context.Context, userID string) (*models.EarlyAccessEnrollment, error)
}

// Handler обрабатывает GET /early-access/status.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статус раннего доступа
// @Tags EarlyAccess
// @Produce json
// @Success 200 {object} map[string]any
// @Router /early-access/status [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.earlyaccess.status"

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	rec, err := h.service.Status(r.Context(), userID)
	if errors.Is(err, models.ErrNotFound) {
		render.JSON(w, r, response.OKWithData(map[string]any{"enrolled": false}))
		return
	}
	if err != nil {
		h.log.Error("failed to load early access status",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			sl.Err(err),
		)
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"enrolled":    true,
		"enrollment":  rec,
		"grantsPerks": rec.Grants(),
	}))
}
