// Package feeconfig отдает публичные тарифы взносов.
package feeconfig

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/venture-billing/internal/http/response"
	"github.com/magabrotheeeer/venture-billing/internal/services/payment"
)

// Service возвращает тарифы.
type Service interface {
	Config() payment.FeeConfig
}

// Handler обрабатывает GET /setup-fee/config.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Тарифы взносов
// @Tags Fees
// @Produce json
// @Success 200 {object} payment.FeeConfig
// @Router /setup-fee/config [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(h.service.Config()))
}
