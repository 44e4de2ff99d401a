package pub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher publishes JSON events on a redis pub/sub channel.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
	logger  *zap.Logger
}

func NewRedisPublisher(rdb redis.UniversalClient, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: TransactionEventsChannel, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *TransactionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	p.logger.Debug("transaction event published",
		zap.String("event", event.EventType),
		zap.String("reference", event.Reference))
	return nil
}

// Close is a no-op; the redis client is shared and closed by its owner.
func (p *RedisPublisher) Close() error { return nil }
