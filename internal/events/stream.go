package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Stream exposes live lifecycle events to transport-layer consumers (SSE).
type Stream interface {
	Subscribe(ctx context.Context) (<-chan Event, func() error)
}

// RedisStream subscribes to the pub/sub channel the publisher broadcasts on.
type RedisStream struct {
	redisClient *redis.Client
	logger      *logrus.Logger
}

func NewRedisStream(client *redis.Client, logger *logrus.Logger) *RedisStream {
	return &RedisStream{
		redisClient: client,
		logger:      logger,
	}
}

// Subscribe returns a channel of decoded events and a close function. The
// channel is closed when the subscription ends or the context is cancelled.
// Messages that fail to decode are dropped with a log entry.
func (s *RedisStream) Subscribe(ctx context.Context) (<-chan Event, func() error) {
	pubsub := s.redisClient.Subscribe(ctx, eventChannel)
	out := make(chan Event)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.logger.WithError(err).Error("Failed to unmarshal streamed event")
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, pubsub.Close
}
