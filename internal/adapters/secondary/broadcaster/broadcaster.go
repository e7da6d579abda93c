package broadcaster

import (
	"context"
	"fmt"

	"github.com/bravo-music/live/internal/domain"
)

const DirectoryChannel = "live-sessions"

type Publisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// Broadcaster publishes session notices to every coordinator process.
type Broadcaster struct {
	publisher Publisher
	channel   string
}

func NewBroadcaster(publisher Publisher, channel string) *Broadcaster {
	if channel == "" {
		channel = DirectoryChannel
	}

	return &Broadcaster{publisher: publisher, channel: channel}
}

func (b *Broadcaster) Announce(ctx context.Context, notice domain.SessionNotice) error {
	if err := b.publisher.Publish(ctx, b.channel, notice); err != nil {
		return fmt.Errorf("publisher.Publish: %w", err)
	}

	return nil
}

// LocalBroadcaster hands notices straight to the local sockets. It serves
// single-process deployments that run without Redis.
type LocalBroadcaster struct {
	sink func(domain.Message)
}

func NewLocalBroadcaster(sink func(domain.Message)) *LocalBroadcaster {
	return &LocalBroadcaster{sink: sink}
}

func (b *LocalBroadcaster) Announce(ctx context.Context, notice domain.SessionNotice) error {
	b.sink(domain.LiveSessions(notice))
	return nil
}
