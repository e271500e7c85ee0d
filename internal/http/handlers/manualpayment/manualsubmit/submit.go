// Package manualsubmit принимает заявку о банковском переводе.
package manualsubmit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/manualpayment"
)

// Request — тело заявки.
type Request struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"required,len=3,alpha"`
	PaymentType string          `json:"paymentType" validate:"required,oneof=platform_fee donation"`
	ProofURL    string          `json:"proofUrl,omitempty" validate:"omitempty,url,max=2048"`
	Notes       string          `json:"notes,omitempty" validate:"max=1000"`
}

// Service создает заявку.
type Service interface {
	Submit(ctx context.Context, req manualpayment.SubmitRequest) (*models.ManualPaymentRecord, error)
}

// Handler обрабатывает POST /manual-payments.
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
// @Summary Сообщить о банковском переводе
// @Tags ManualPayments
// @Accept json
// @Produce json
// @Param request body Request true "Заявка"
// @Success 201 {object} models.ManualPaymentRecord
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /manual-payments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.manualpayment.submit"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	rec, err := h.service.Submit(r.Context(), manualpayment.SubmitRequest{
		UserID:      userID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		PaymentType: models.ManualPaymentType(req.PaymentType),
		ProofURL:    req.ProofURL,
		Notes:       req.Notes,
	})
	if err != nil {
		log.Error("submit failed", slog.String("user_id", userID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(rec))
}
