// Package notify provides Notifier implementations. Delivery is best-effort
// by contract; the moderation engine logs failures and moves on.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OutboxKey is the Redis list the host's mail worker drains.
const OutboxKey = "moderate:notifications"

// Message is one queued notification.
type Message struct {
	ID       string                 `json:"id"`
	UserID   uint                   `json:"user_id"`
	Template string                 `json:"template"`
	Context  map[string]interface{} `json:"context"`
	QueuedAt time.Time              `json:"queued_at"`
}

// RedisOutbox queues notifications on a Redis list for the host's delivery
// worker. The service itself never talks to a mail transport.
type RedisOutbox struct {
	Redis *redis.Client
	Ctx   context.Context
}

func NewRedisOutbox(rdb *redis.Client) *RedisOutbox {
	return &RedisOutbox{
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// Notify pushes one message onto the outbox list.
func (o *RedisOutbox) Notify(userID uint, template string, msgContext map[string]interface{}) error {
	message := Message{
		ID:       uuid.New().String(),
		UserID:   userID,
		Template: template,
		Context:  msgContext,
		QueuedAt: time.Now(),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return o.Redis.LPush(o.Ctx, OutboxKey, payload).Err()
}
