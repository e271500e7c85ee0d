// Package manualdecision подтверждает или отклоняет заявку о переводе.
package manualdecision

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// Decision — решение администратора.
type Decision string

const (
	Confirm Decision = "confirm"
	Reject  Decision = "reject"
)

// Request — тело запроса. Для отклонения Note обязателен.
type Request struct {
	Note string `json:"note" validate:"max=1000"`
}

// Service применяет решение.
type Service interface {
	Confirm(ctx context.Context, adminID string, id int64, note string) (*models.ManualPaymentRecord, error)
	Reject(ctx context.Context, adminID string, id int64, reason string) (*models.ManualPaymentRecord, error)
}

// Handler обрабатывает POST /super-admin/manual-payments/{id}/{confirm|reject}.
type Handler struct {
	log      *slog.Logger
	service  Service
	decision Decision
	validate *validator.Validate
}

// New создает Handler для решения decision.
func New(log *slog.Logger, service Service, decision Decision) *Handler {
	return &Handler{log: log, service: service, decision: decision, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Решение по заявке о переводе
// @Description Подтверждение открывает доступ и выставляет счет. Повторное решение дает 409.
// @Tags ManualPayments
// @Accept json
// @Produce json
// @Param id path int true "ID заявки"
// @Param request body Request false "Комментарий или причина отказа"
// @Success 200 {object} models.ManualPaymentRecord
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /super-admin/manual-payments/{id}/confirm [post]
// @Router /super-admin/manual-payments/{id}/reject [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.manualpayment.decision"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("decision", string(h.decision)),
	)

	adminID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		log.Warn("invalid id", slog.String("id", chi.URLParam(r, "id")))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	var rec *models.ManualPaymentRecord
	if h.decision == Reject {
		rec, err = h.service.Reject(r.Context(), adminID, id, req.Note)
	} else {
		rec, err = h.service.Confirm(r.Context(), adminID, id, req.Note)
	}
	if err != nil {
		log.Error("decision failed", slog.Int64("id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(rec))
}
