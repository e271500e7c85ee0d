// Package feesession создает платежную сессию у провайдера.
package feesession

import (
	"context"
	"encoding/json"
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

// Request — тело запроса.
type Request struct {
	Currency string `json:"currency" validate:"required,len=3,alpha"`
}

// Service создает сессию.
type Service interface {
	CreateSession(ctx context.Context, userID string, scope payment.Scope, currency string) (*payment.Session, error)
}

// Handler обрабатывает POST /{setup|marketplace}-fee/create-session.
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
// @Summary Создать платежную сессию
// @Description Пересчитывает взнос в валюту пользователя, выбирает провайдера
// @Description и возвращает ссылку на оплату. Запись реестра создается в статусе pending.
// @Tags Fees
// @Accept json
// @Produce json
// @Param request body Request true "Валюта оплаты"
// @Success 200 {object} payment.Session
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Взнос уже оплачен"
// @Failure 502 {object} response.ErrorResponse "Провайдер недоступен"
// @Router /setup-fee/create-session [post]
// @Router /marketplace-fee/create-session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.fee.session"
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
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	session, err := h.service.CreateSession(r.Context(), userID, h.scope, req.Currency)
	if err != nil {
		log.Error("create session failed", slog.String("user_id", userID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("checkout session created", slog.String("user_id", userID), sl.Ref(session.Reference))
	render.JSON(w, r, response.OKWithData(session))
}
