// Package rabbitmq содержит подключение к брокеру, объявление очередей
// побочных эффектов, публикацию и потребление сообщений.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"
)

// prefetch ограничивает число неподтвержденных сообщений на канал.
const prefetch = 10

// Connect подключается к RabbitMQ. Делает не больше retries попыток,
// пауза между ними растет экспоненциально начиная с delay.
func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	if retries < 1 {
		retries = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = delay
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	var conn *amqp.Connection
	err := backoff.Retry(func() error {
		c, err := amqp.Dial(connection)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, backoff.WithMaxRetries(policy, uint64(retries-1)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return conn, nil
}

// SetupChannel открывает канал и объявляет топологию: direct exchange с
// очередями queues и exchange недоставленных сообщений с очередью DeadLetterQueue.
// Сообщение, отклоненное без повторной доставки, попадает в DeadLetterQueue.
func SetupChannel(conn *amqp.Connection, exchange string, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := declareTopology(ch, exchange, queues); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ch, nil
}

func declareTopology(ch *amqp.Channel, exchange string, queues []QueueConfig) error {
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	dlx := DeadLetterExchange(exchange)
	if err := ch.ExchangeDeclare(dlx, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", dlx, err)
	}
	if _, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", DeadLetterQueue, err)
	}
	if err := ch.QueueBind(DeadLetterQueue, "", dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", DeadLetterQueue, err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	args := amqp.Table{"x-dead-letter-exchange": dlx}
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s with routing key %s: %w", q.QueueName, q.RoutingKey, err)
		}
	}
	return nil
}
