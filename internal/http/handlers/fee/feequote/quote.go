// Package feequote считает стоимость взноса в локальной валюте.
package feequote

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/services/payment"
)

// Request — параметры запроса.
type Request struct {
	Currency string `validate:"required,len=3,alpha"`
}

// Service считает стоимость.
type Service interface {
	Quote(ctx context.Context, userID string, scope payment.Scope, currency string) (*payment.Quote, error)
}

// Handler обрабатывает GET /{setup|marketplace}-fee/quote?currency=CUR.
type Handler struct {
	log      *slog.Logger
	service  Service
	scope    payment.Scope
	validate *validator.Validate
}

// New создает Handler для вида взноса scope.
func New(log *slog.Logger, service Service, scope payment.Scope) *Handler {
	return &Handler{log: log, service: service, scope: scope, validate: validator.New()}
}

// ServeHTTP godoc
// @Summary Стоимость взноса
// @Tags Fees
// @Produce json
// @Param currency query string true "ISO 4217"
// @Success 200 {object} payment.Quote
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /setup-fee/quote [get]
// @Router /marketplace-fee/quote [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.fee.quote"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("scope", string(h.scope)),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	req := Request{Currency: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))}
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	quote, err := h.service.Quote(r.Context(), userID, h.scope, req.Currency)
	if err != nil {
		log.Error("quote failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(quote))
}
