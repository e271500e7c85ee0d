package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// AppID помечает сообщения, опубликованные платежным контуром.
const AppID = "venture-billing"

// Publish публикует message в JSON с ключом routingKey. Сообщение сохраняется
// на диске брокера и получает уникальный MessageId для корреляции в логах.
func Publish(ch *amqp.Channel, exchange, routingKey string, message any) (string, error) {
	const op = "rabbitmq.Publish"
	body, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	msg := newPublishing(routingKey, body, time.Now())
	if err := ch.Publish(exchange, routingKey, false, false, msg); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return msg.MessageId, nil
}

func newPublishing(kind string, body []byte, now time.Time) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         kind,
		AppId:        AppID,
		Timestamp:    now.UTC(),
		Body:         body,
	}
}
