package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bravo-music/live/internal/domain"
	"github.com/bravo-music/live/internal/infrastructure/redis"
)

type LocalBroadcaster interface {
	BroadcastAll(msg domain.Message)
}

type RedisSubscriber interface {
	Subscribe(ctx context.Context, channel string) func(handler func(redis.Message) error) error
}

// Subscriber pushes session notices published by any coordinator to the
// sockets of this process.
type Subscriber struct {
	redisClient      RedisSubscriber
	localBroadcaster LocalBroadcaster
}

func NewSubscriber(redisClient RedisSubscriber, localBroadcaster LocalBroadcaster) *Subscriber {
	return &Subscriber{
		redisClient:      redisClient,
		localBroadcaster: localBroadcaster,
	}
}

func (s *Subscriber) Subscribe(ctx context.Context, channel string) error {
	subscriber := s.redisClient.Subscribe(ctx, channel)

	if err := subscriber(func(msg redis.Message) error {
		return s.Handle(ctx, []byte(msg.Payload))
	}); err != nil {
		slog.ErrorContext(ctx, "error subscribing to redis", "error", err)
		return fmt.Errorf("subscriber: %w", err)
	}

	return nil
}

// Handle forwards one notice. Unreadable notices are logged and skipped.
func (s *Subscriber) Handle(ctx context.Context, payload []byte) error {
	var notice domain.SessionNotice
	if err := json.Unmarshal(payload, &notice); err != nil {
		slog.WarnContext(ctx, "skipping unreadable session notice", "error", err)
		return nil
	}

	s.localBroadcaster.BroadcastAll(domain.LiveSessions(notice))
	return nil
}
