package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
)

// ErrConnectionLost возвращается, когда брокер закрыл соединение или канал.
var ErrConnectionLost = errors.New("rabbitmq connection lost")

// NotifyLost возвращает канал, в который придет одна ошибка с ErrConnectionLost,
// как только закроется соединение или канал. Штатное закрытие тоже считается потерей.
func NotifyLost(conn *amqp.Connection, ch *amqp.Channel) <-chan error {
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	lost := make(chan error, 1)
	go func() {
		var reason *amqp.Error
		select {
		case reason = <-connClosed:
		case reason = <-chClosed:
		}
		if reason != nil {
			lost <- fmt.Errorf("%w: %s", ErrConnectionLost, reason.Error())
			return
		}
		lost <- ErrConnectionLost
	}()
	return lost
}

type dialFunc func(attempts int) (*amqp.Connection, *amqp.Channel, error)

// Session держит соединение и канал с объявленной топологией. После разрыва
// следующий вызов Channel подключается заново и повторно объявляет очереди.
type Session struct {
	dial dialFunc
	log  *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
	lost <-chan error
}

// NewSession подключается к брокеру, делая до retries попыток, и объявляет
// exchange с очередями queues.
func NewSession(log *slog.Logger, url string, retries int, delay time.Duration, exchange string, queues []QueueConfig) (*Session, error) {
	const op = "rabbitmq.NewSession"
	s := &Session{
		log: log.With(slog.String("exchange", exchange)),
		dial: func(attempts int) (*amqp.Connection, *amqp.Channel, error) {
			conn, err := Connect(url, attempts, delay)
			if err != nil {
				return nil, nil, err
			}
			ch, err := SetupChannel(conn, exchange, queues)
			if err != nil {
				_ = conn.Close()
				return nil, nil, err
			}
			return conn, ch, nil
		},
	}
	if err := s.open(retries); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

func (s *Session) open(attempts int) error {
	conn, ch, err := s.dial(attempts)
	if err != nil {
		return err
	}
	s.conn, s.ch = conn, ch
	s.lost = NotifyLost(conn, ch)
	return nil
}

// Channel возвращает рабочий канал. Если соединение потеряно, делается одна
// попытка переподключения, чтобы не задерживать вызывающего.
func (s *Session) Channel() (*amqp.Channel, error) {
	const op = "rabbitmq.Session.Channel"
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch != nil {
		var reason error
		select {
		case reason = <-s.lost:
		default:
			if !s.conn.IsClosed() {
				return s.ch, nil
			}
			reason = ErrConnectionLost
		}
		s.log.Warn("rabbitmq connection lost, reconnecting", sl.Err(reason))
		_ = s.conn.Close()
		s.conn, s.ch = nil, nil
	}

	if err := s.open(1); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("rabbitmq connection restored")
	return s.ch, nil
}

// Ready проверяет, что канал доступен. Используется в /health.
func (s *Session) Ready(_ context.Context) error {
	_, err := s.Channel()
	return err
}

// Close закрывает соединение вместе с каналом.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn, s.ch = nil, nil
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}
