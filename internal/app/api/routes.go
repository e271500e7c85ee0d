package api

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/earlyaccess/eaprogress"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/earlyaccess/eastatus"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/fee/feeconfig"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/fee/feehistory"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/fee/feequote"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/fee/feesession"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/fee/feeskip"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/fee/feeverify"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/health"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/manualpayment/manualadminlist"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/manualpayment/manualdecision"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/manualpayment/manualdetail"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/manualpayment/manuallist"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/manualpayment/manualsubmit"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/unlock/unlocks"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/webhook"
	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/models"
	"github.com/magabrotheeeer/venture-billing/internal/services/auth"
	"github.com/magabrotheeeer/venture-billing/internal/services/earlyaccess"
	"github.com/magabrotheeeer/venture-billing/internal/services/manualpayment"
	"github.com/magabrotheeeer/venture-billing/internal/services/payment"
	"github.com/magabrotheeeer/venture-billing/internal/services/unlock"
)

// Deps — все, что нужно маршрутам.
type Deps struct {
	Auth          *auth.Service
	Payments      *payment.Service
	Reconciler    *payment.Reconciler
	ManualPayment *manualpayment.Service
	Unlocks       *unlock.Service
	EarlyAccess   *earlyaccess.Service
	Tokens        middlewarectx.TokenParser
	Limiter       *middlewarectx.Limiter
	HealthChecks  map[string]health.Checker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.Metrics,
	)

	// Вебхуки проверяются подписью, а не JWT
	r.Post("/webhooks/stripe", webhook.New(logger, models.GatewayStripe, webhook.StripeSignatureHeader, d.Reconciler.HandleStripe).ServeHTTP)
	r.Post("/webhooks/paystack", webhook.New(logger, models.GatewayPaystack, webhook.PaystackSignatureHeader, d.Reconciler.HandlePaystack).ServeHTTP)

	r.Get("/health", health.New(logger, d.HealthChecks).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, d.Limiter))

		// Открытые конечные точки
		r.Post("/auth/register", register.New(logger, d.Auth).ServeHTTP)
		r.Post("/auth/login", login.New(logger, d.Auth).ServeHTTP)
		r.Get("/setup-fee/config", feeconfig.New(logger, d.Payments).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))

			r.Route("/setup-fee", func(r chi.Router) {
				r.Use(middlewarectx.RequireCapability(logger, roles.PaySetupFee))
				r.Get("/quote", feequote.New(logger, d.Payments, payment.ScopeSetup).ServeHTTP)
				r.Post("/create-session", feesession.New(logger, d.Payments, payment.ScopeSetup).ServeHTTP)
				r.Post("/verify", feeverify.New(logger, d.Payments, payment.ScopeSetup).ServeHTTP)
				r.Put("/skip", feeskip.New(logger, d.Payments).ServeHTTP)
			})

			r.Route("/marketplace-fee", func(r chi.Router) {
				r.Use(middlewarectx.RequireCapability(logger, roles.PayMarketplaceFee))
				r.Get("/quote", feequote.New(logger, d.Payments, payment.ScopeMarketplace).ServeHTTP)
				r.Post("/create-session", feesession.New(logger, d.Payments, payment.ScopeMarketplace).ServeHTTP)
				r.Post("/verify", feeverify.New(logger, d.Payments, payment.ScopeMarketplace).ServeHTTP)
			})

			r.Get("/payments", feehistory.New(logger, d.Payments).ServeHTTP)

			r.With(middlewarectx.RequireCapability(logger, roles.SubmitManualPayment)).
				Post("/manual-payments", manualsubmit.New(logger, d.ManualPayment).ServeHTTP)
			r.Get("/manual-payments", manuallist.New(logger, d.ManualPayment).ServeHTTP)

			r.With(middlewarectx.RequireCapability(logger, roles.ViewUnlocks)).
				Get("/me/unlocks", unlocks.New(logger, d.Unlocks).ServeHTTP)
			r.Get("/early-access/status", eastatus.New(logger, d.EarlyAccess).ServeHTTP)

			r.Route("/super-admin", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(middlewarectx.RequireCapability(logger, roles.ReviewManualPayments))
					r.Get("/manual-payments", manualadminlist.New(logger, d.ManualPayment).ServeHTTP)
					r.Get("/manual-payments/{id}", manualdetail.New(logger, d.ManualPayment).ServeHTTP)
					r.Post("/manual-payments/{id}/confirm", manualdecision.New(logger, d.ManualPayment, manualdecision.Confirm).ServeHTTP)
					r.Post("/manual-payments/{id}/reject", manualdecision.New(logger, d.ManualPayment, manualdecision.Reject).ServeHTTP)
				})
				r.With(middlewarectx.RequireCapability(logger, roles.ManageEarlyAccess)).
					Put("/early-access/{userId}/progress", eaprogress.New(logger, d.EarlyAccess).ServeHTTP)
			})
		})
	})
}
