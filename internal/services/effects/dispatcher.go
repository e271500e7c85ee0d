// Package effects отвечает за побочные эффекты платежей: журнал аудита,
// уведомления, письма и PDF-счета. API ставит задачи в RabbitMQ через
// Publisher, а effects-worker выполняет их через Executor.
package effects

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/venture-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/venture-billing/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// Типы писем.
const (
	EmailPaymentReceipt        = "payment_receipt"
	EmailManualPaymentReceived = "manual_payment_received"
	EmailManualPaymentRejected = "manual_payment_rejected"
	EmailEarlyAccessWelcome    = "early_access_welcome"
)

// Dispatcher ставит побочные задачи. Методы не возвращают ошибок: сбой
// постановки логируется и не влияет на основную операцию.
type Dispatcher interface {
	Audit(ctx context.Context, entry models.AuditEntry)
	Notify(ctx context.Context, n models.Notification)
	Email(ctx context.Context, msg models.EmailMessage)
	Invoice(ctx context.Context, req models.InvoiceRequest)
}

type publishFunc func(kind models.TaskKind, message any) error

// Publisher публикует задачи в exchange побочных эффектов.
type Publisher struct {
	// amqp.Channel нельзя использовать из нескольких горутин одновременно
	mu      sync.Mutex
	publish publishFunc
	log     *slog.Logger
}

// ChannelSource выдает рабочий канал RabbitMQ.
type ChannelSource interface {
	Channel() (*amqp.Channel, error)
}

// NewPublisher создает Publisher. Канал берется из src перед каждой публикацией,
// а после закрытия канала брокером публикация повторяется один раз на новом.
func NewPublisher(log *slog.Logger, src ChannelSource) *Publisher {
	return newPublisher(log, func(kind models.TaskKind, message any) error {
		id, err := publishOn(src, kind, message)
		if errors.Is(err, amqp.ErrClosed) {
			log.Warn("channel closed during publish, retrying", slog.String("kind", string(kind)))
			id, err = publishOn(src, kind, message)
		}
		if err != nil {
			return err
		}
		log.Debug("side effect published", slog.String("kind", string(kind)), slog.String("message_id", id))
		return nil
	})
}

func publishOn(src ChannelSource, kind models.TaskKind, message any) (string, error) {
	ch, err := src.Channel()
	if err != nil {
		return "", err
	}
	return rabbitmq.Publish(ch, rabbitmq.EffectsExchange, string(kind), message)
}

func newPublisher(log *slog.Logger, fn publishFunc) *Publisher {
	return &Publisher{publish: fn, log: log}
}

// Audit ставит запись журнала аудита.
func (p *Publisher) Audit(_ context.Context, entry models.AuditEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	p.send(models.TaskAudit, entry)
}

// Notify ставит внутреннее уведомление.
func (p *Publisher) Notify(_ context.Context, n models.Notification) {
	p.send(models.TaskNotify, n)
}

// Email ставит письмо.
func (p *Publisher) Email(_ context.Context, msg models.EmailMessage) {
	p.send(models.TaskEmail, msg)
}

// Invoice ставит генерацию и отправку счета.
func (p *Publisher) Invoice(_ context.Context, req models.InvoiceRequest) {
	if req.IssuedAt.IsZero() {
		req.IssuedAt = time.Now().UTC()
	}
	p.send(models.TaskInvoice, req)
}

func (p *Publisher) send(kind models.TaskKind, message any) {
	p.mu.Lock()
	err := p.publish(kind, message)
	p.mu.Unlock()
	if err != nil {
		metrics.EffectsPublishFailures.WithLabelValues(string(kind)).Inc()
		p.log.Error("failed to publish side effect", slog.String("kind", string(kind)), sl.Err(err))
	}
}
