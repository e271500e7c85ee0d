// Package api собирает HTTP-приложение платежного контура: хранилище, кэш курсов,
// платежные шлюзы, публикацию побочных эффектов и маршруты.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/venture-billing/internal/cache"
	"github.com/magabrotheeeer/venture-billing/internal/config"
	"github.com/magabrotheeeer/venture-billing/internal/forex"
	"github.com/magabrotheeeer/venture-billing/internal/gateway"
	"github.com/magabrotheeeer/venture-billing/internal/gateway/paystack"
	"github.com/magabrotheeeer/venture-billing/internal/gateway/stripe"
	"github.com/magabrotheeeer/venture-billing/internal/http/handlers/health"
	"github.com/magabrotheeeer/venture-billing/internal/http/middlewarectx"
	"github.com/magabrotheeeer/venture-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/venture-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/migrations"
	"github.com/magabrotheeeer/venture-billing/internal/services/auth"
	"github.com/magabrotheeeer/venture-billing/internal/services/currency"
	"github.com/magabrotheeeer/venture-billing/internal/services/earlyaccess"
	"github.com/magabrotheeeer/venture-billing/internal/services/effects"
	"github.com/magabrotheeeer/venture-billing/internal/services/manualpayment"
	"github.com/magabrotheeeer/venture-billing/internal/services/payment"
	"github.com/magabrotheeeer/venture-billing/internal/services/unlock"
	"github.com/magabrotheeeer/venture-billing/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	mq     *rabbitmq.Session
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (app *App, err error) {
	const op = "app.api.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()
	version, err := migrations.Run(db.DB, cfg.MigrationsPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("database schema is up to date", slog.Uint64("version", uint64(version)))
	if err = db.SyncEarlyAccessCapacity(ctx, cfg.Capacity); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = cacheRedis.Close()
		}
	}()

	mq, err := rabbitmq.NewSession(logger, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay,
		rabbitmq.EffectsExchange, rabbitmq.EffectsQueues())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = mq.Close()
		}
	}()
	dispatcher := effects.NewPublisher(logger, mq)

	converter := currency.New(logger, forex.NewClient(cfg.ForexBaseURL, cfg.ForexTimeout), cacheRedis, cfg.RatesTTL)
	router := gateway.NewRouter(cfg.PaystackCurrencies,
		stripe.New(logger, cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.GatewayTimeout),
		paystack.New(logger, cfg.PaystackSecretKey, cfg.PaystackBaseURL, cfg.GatewayTimeout),
	)
	callbackURL := strings.TrimRight(cfg.PublicBaseURL, "/") + cfg.CallbackPath

	jwtMaker, err := jwt.NewMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	earlyAccessService := earlyaccess.New(logger, db, dispatcher, cfg.ReferralCode, cfg.InactiveAfter)

	deps := Deps{
		Auth:          auth.New(logger, db, jwtMaker, earlyAccessService),
		Payments:      payment.New(logger, db, converter, router, dispatcher, payment.FeesFromConfig(cfg.Fees), callbackURL),
		Reconciler:    payment.NewReconciler(logger, db, router, dispatcher),
		ManualPayment: manualpayment.New(logger, db, dispatcher),
		Unlocks:       unlock.New(logger, db, earlyAccessService),
		EarlyAccess:   earlyAccessService,
		Tokens:        jwtMaker,
		Limiter:       middlewarectx.NewLimiter(cfg.RPS, cfg.Burst),
		HealthChecks: map[string]health.Checker{
			"postgres": db.Ready,
			"redis":    cacheRedis.Ping,
			"rabbitmq": mq.Ready,
		},
	}

	r := chi.NewRouter()
	RegisterRoutes(r, logger, deps)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      r,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		mq:     mq,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.mq.Close(); err != nil {
		a.logger.Error("failed to close rabbitmq session", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
