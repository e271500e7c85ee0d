package rabbitmq

import (
	"testing"
	"time"

	"github.com/streadway/amqp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/venture-billing/internal/models"
)

func TestEffectsQueues(t *testing.T) {
	queues := EffectsQueues()

	require.Len(t, queues, 4)
	assert.Equal(t, "effects.audit", queues[0].QueueName)
	assert.Equal(t, "audit", queues[0].RoutingKey)

	seen := map[string]bool{}
	for _, q := range queues {
		assert.Falsef(t, seen[q.QueueName], "duplicate queue name: %s", q.QueueName)
		seen[q.QueueName] = true
		assert.Equal(t, "effects."+q.RoutingKey, q.QueueName)
	}
}

func TestQueueName(t *testing.T) {
	assert.Equal(t, "effects.invoice", QueueName(models.TaskInvoice))
}

func TestDeadLetterExchange(t *testing.T) {
	assert.Equal(t, "side_effects.dlx", DeadLetterExchange(EffectsExchange))
	assert.Equal(t, "effects.dead", DeadLetterQueue)
}

func TestNewPublishing(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("WAT", 3600))
	first := newPublishing("invoice", []byte(`{}`), now)
	second := newPublishing("invoice", []byte(`{}`), now)

	assert.Equal(t, "application/json", first.ContentType)
	assert.Equal(t, amqp.Persistent, first.DeliveryMode)
	assert.Equal(t, "invoice", first.Type)
	assert.Equal(t, AppID, first.AppId)
	assert.Equal(t, time.UTC, first.Timestamp.Location())
	assert.NotEmpty(t, first.MessageId)
	assert.NotEqual(t, first.MessageId, second.MessageId)
}
