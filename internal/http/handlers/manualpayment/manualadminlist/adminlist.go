// Package manualadminlist отдает администратору очередь заявок о переводах.
package manualadminlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// Service возвращает заявки по статусу.
type Service interface {
	ListByStatus(ctx context.Context, status string) ([]*models.ManualPaymentRecord, error)
}

// Handler обрабатывает GET /super-admin/manual-payments?status=Pending.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Очередь заявок о переводах
// @Tags ManualPayments
// @Produce json
// @Param status query string false "Pending, Confirmed или Rejected"
// @Success 200 {array} models.ManualPaymentRecord
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /super-admin/manual-payments [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.manualpayment.adminlist"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	list, err := h.service.ListByStatus(r.Context(), r.URL.Query().Get("status"))
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
