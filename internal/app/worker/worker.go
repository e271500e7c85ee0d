// Package worker собирает воркер побочных эффектов: аудит, уведомления,
// письма и счета из очередей RabbitMQ.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/venture-billing/internal/config"
	"github.com/magabrotheeeer/venture-billing/internal/lib/invoice"
	"github.com/magabrotheeeer/venture-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/lib/smtp"
	"github.com/magabrotheeeer/venture-billing/internal/services/effects"
	senderservice "github.com/magabrotheeeer/venture-billing/internal/services/sender"
	"github.com/magabrotheeeer/venture-billing/internal/storage/repository"
)

type App struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	db       *repository.Storage
	executor *effects.Executor
	workers  int
	logger   *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.worker.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.EffectsExchange, rabbitmq.EffectsQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(logger, transport)
	executor := effects.NewExecutor(logger, db, senderService, invoice.Issuer{
		Name:    cfg.IssuerName,
		Address: cfg.IssuerAddress,
		Email:   cfg.IssuerEmail,
	})

	return &App{
		conn:     conn,
		ch:       ch,
		db:       db,
		executor: executor,
		workers:  cfg.EffectsWorkers,
		logger:   logger,
	}, nil
}

// Run запускает потребителей и ждет отмены ctx. При потере соединения с брокером
// возвращает ошибку с rabbitmq.ErrConnectionLost, чтобы процесс перезапустили.
func (a *App) Run(ctx context.Context) error {
	const op = "app.worker.Run"
	lost := rabbitmq.NotifyLost(a.conn, a.ch)
	for kind, handler := range a.executor.Handlers() {
		queue := rabbitmq.QueueName(kind)
		if err := rabbitmq.ConsumeMessages(ctx, a.logger, a.ch, queue, a.workers, handler); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", queue), sl.Err(err))
			a.close()
			return err
		}
		a.logger.Info("consumer started", slog.String("queue", queue), slog.Int("workers", a.workers))
	}

	select {
	case <-ctx.Done():
		a.logger.Info("effects worker shutting down gracefully")
		a.close()
		return nil
	case err := <-lost:
		a.logger.Error("consumers stopped", sl.Err(err))
		a.close()
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
