package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel alerts are published on.
const DefaultChannel = "vault-ledger:alerts"

// RedisPublisher publishes messages as JSON on a Redis pub/sub channel.
// Delivery is fire-and-forget; subscribers that are offline miss messages.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher constructs a publisher on channel, or DefaultChannel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Send publishes the message.
func (p *RedisPublisher) Send(ctx context.Context, message Message) error {
	if p == nil || p.client == nil {
		return nil
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
