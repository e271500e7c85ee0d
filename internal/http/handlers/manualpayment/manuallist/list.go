// Package manuallist отдает пользователю его заявки о переводах.
package manuallist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// Service возвращает заявки пользователя.
type Service interface {
	ListOwn(ctx context.Context, userID string) ([]*models.ManualPaymentRecord, error)
}

// Handler обрабатывает GET /manual-payments.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Мои заявки о переводах
// @Tags ManualPayments
// @Produce json
// @Success 200 {array} models.ManualPaymentRecord
// @Router /manual-payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.manualpayment.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	list, err := h.service.ListOwn(r.Context(), userID)
	if err != nil {
		log.Error("failed to list manual payments", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.ManualPaymentRecord{}
	}
	render.JSON(w, r, response.OKWithData(list))
}
