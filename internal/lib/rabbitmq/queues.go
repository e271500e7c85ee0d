package rabbitmq

import "github.com/magabrotheeeer/venture-billing/internal/models"

// EffectsExchange — exchange, через который идут задачи побочных эффектов.
const EffectsExchange = "side_effects"

// DeadLetterQueue собирает задачи, которые не удалось выполнить со второй попытки.
const DeadLetterQueue = "effects.dead"

// DeadLetterExchange возвращает имя exchange недоставленных сообщений для exchange.
func DeadLetterExchange(exchange string) string {
	return exchange + ".dlx"
}

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// EffectsQueues возвращает по одной очереди на каждый тип задачи.
// Ключ маршрутизации совпадает с models.TaskKind.
func EffectsQueues() []QueueConfig {
	kinds := []models.TaskKind{models.TaskAudit, models.TaskNotify, models.TaskEmail, models.TaskInvoice}
	queues := make([]QueueConfig, 0, len(kinds))
	for _, k := range kinds {
		queues = append(queues, QueueConfig{QueueName: QueueName(k), RoutingKey: string(k)})
	}
	return queues
}

// QueueName возвращает имя очереди для типа задачи.
func QueueName(kind models.TaskKind) string {
	return "effects." + string(kind)
}
