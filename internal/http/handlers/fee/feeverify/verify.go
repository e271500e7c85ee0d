// Package feeverify проверяет платеж по ссылке после возврата пользователя
// с платежной страницы.
package feeverify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/services/payment"
)

// Request — тело запроса.
type Request struct {
	Reference string `json:"reference" validate:"required,max=200"`
}

// Service проверяет платеж.
type Service interface {
	Verify(ctx context.Context, userID string, scope payment.Scope, reference string) (*payment.VerifyResult, error)
}

// Handler обрабатывает POST /{setup|marketplace}-fee/verify.
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
// @Summary Проверить платеж
// @Description Повторный вызов для завершенного платежа безопасен и ничего не меняет.
// @Tags Fees
// @Accept json
// @Produce json
// @Param request body Request true "Ссылка платежа"
// @Success 200 {object} map[string]any "ok и setupPaid или feePaid"
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /setup-fee/verify [post]
// @Router /marketplace-fee/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.fee.verify"
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

	res, err := h.service.Verify(r.Context(), userID, h.scope, req.Reference)
	if err != nil {
		log.Error("verify failed", sl.Ref(req.Reference), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	paidKey := "feePaid"
	if h.scope == payment.ScopeSetup {
		paidKey = "setupPaid"
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"ok":     res.OK,
		paidKey:  res.Paid,
		"status": res.Status,
	}))
}
