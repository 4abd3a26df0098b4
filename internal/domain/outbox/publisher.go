package outbox

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Publisher delivers a committed outbox event to the downstream transport.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// RedisPublisher fans events out over Redis Pub/Sub; every API instance's
// realtime hub subscribes to the topic channel.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a Redis-backed publisher.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.client.Publish(ctx, topic, payload).Err()
}
