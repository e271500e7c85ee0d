// Package eaprogress позволяет команде отмечать этапы программы раннего доступа.
package eaprogress

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/earlyaccess"
)

// Request — изменяемые этапы. Отсутствующее поле не меняется.
type Request struct {
	IdeaSubmitted         *bool `json:"ideaSubmitted"`
	ConsultationCompleted *bool `json:"consultationCompleted"`
}

// Params — параметры пути.
type Params struct {
	UserID string `validate:"required,uuid"`
}

// Service обновляет прогресс.
type Service interface {
	UpdateProgress(ctx context.Context, actorID, userID string, p earlyaccess.Progress) (*models.EarlyAccessEnrollment, error)
}

// Handler обрабатывает PUT /super-admin/early-access/{userId}/progress.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Прогресс участника раннего доступа
// @Tags EarlyAccess
// @Accept json
// @Produce json
// @Param userId path string true "UID участника"
// @Param request body Request true "Этапы"
// @Success 200 {object} models.EarlyAccessEnrollment
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /super-admin/early-access/{userId}/progress [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.earlyaccess.progress"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	actorID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	params := Params{UserID: chi.URLParam(r, "userId")}
	if err := h.validate.Struct(params); err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	rec, err := h.service.UpdateProgress(r.Context(), actorID, params.UserID, earlyaccess.Progress{
		IdeaSubmitted:         req.IdeaSubmitted,
		ConsultationCompleted: req.ConsultationCompleted,
	})
	if err != nil {
		log.Error("failed to update progress", slog.String("user_id", params.UserID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(rec))
}
