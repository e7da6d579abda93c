package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bravo-music/live/internal/adapters/secondary/persister"
	"github.com/bravo-music/live/internal/domain"
	"github.com/bravo-music/live/internal/infrastructure/pubsub"
	"github.com/hibiken/asynq"
)

type TrackUpdater interface {
	UpdateTrack(ctx context.Context, email string, track *domain.Track) error
}

type TaskSubscriber interface {
	Subscribe(ctx context.Context, topic string, handler pubsub.TaskHandlerFunc)
}

// Subscriber applies queued track changes to the room store.
type Subscriber struct {
	subscriber TaskSubscriber
	store      TrackUpdater
}

func NewSubscriber(subscriber TaskSubscriber, store TrackUpdater) *Subscriber {
	return &Subscriber{
		subscriber: subscriber,
		store:      store,
	}
}

func (s *Subscriber) Subscribe(ctx context.Context) {
	s.subscriber.Subscribe(ctx, persister.TaskPersistTrack, s.Handle)
}

func (s *Subscriber) Handle(ctx context.Context, t pubsub.Task) error {
	var u persister.TrackUpdate
	if err := json.Unmarshal(t.Payload, &u); err != nil {
		slog.ErrorContext(ctx, "json.Unmarshal", "task", t.Type, "error", err)
		return fmt.Errorf("json.Unmarshal: %w: %w", err, asynq.SkipRetry)
	}

	if err := s.store.UpdateTrack(ctx, u.Email, u.Track); err != nil {
		return fmt.Errorf("store.UpdateTrack: %w", err)
	}

	return nil
}
