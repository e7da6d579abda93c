package persister

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bravo-music/live/internal/domain"
)

const TaskPersistTrack = "room:persist_track"

const persistTimeout = 5 * time.Second

// TrackUpdate is the queued form of a track change.
type TrackUpdate struct {
	Email string        `json:"email"`
	Track *domain.Track `json:"track"`
}

// worker writes track changes one at a time from a single goroutine. Changes
// for a host that is still waiting are coalesced, so the last reported track
// is always the last one written.
type worker struct {
	mu      sync.Mutex
	pending map[string]*domain.Track
	order   []string
	wake    chan struct{}

	write func(ctx context.Context, email string, track *domain.Track) error
	what  string
}

func newWorker(what string, write func(ctx context.Context, email string, track *domain.Track) error) *worker {
	return &worker{
		pending: make(map[string]*domain.Track),
		wake:    make(chan struct{}, 1),
		write:   write,
		what:    what,
	}
}

// PersistTrack never blocks the caller. Failures are logged by the worker.
func (w *worker) PersistTrack(ctx context.Context, email string, track *domain.Track) {
	w.mu.Lock()
	if _, ok := w.pending[email]; !ok {
		w.order = append(w.order, email)
	}
	w.pending[email] = track
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run drains queued changes until ctx is done, then flushes what is left.
func (w *worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return nil
		case <-w.wake:
			w.drain(context.WithoutCancel(ctx))
		}
	}
}

func (w *worker) drain(ctx context.Context) {
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			w.mu.Unlock()
			return
		}
		email := w.order[0]
		w.order = w.order[1:]
		track := w.pending[email]
		delete(w.pending, email)
		w.mu.Unlock()

		writeCtx, cancel := context.WithTimeout(ctx, persistTimeout)
		if err := w.write(writeCtx, email, track); err != nil {
			slog.ErrorContext(ctx, "error "+w.what, "host", email, "error", err)
		}
		cancel()
	}
}

type TrackUpdater interface {
	UpdateTrack(ctx context.Context, email string, track *domain.Track) error
}

// InlinePersister writes tracks straight to the room store.
type InlinePersister struct {
	*worker
}

func NewInlinePersister(store TrackUpdater) *InlinePersister {
	return &InlinePersister{worker: newWorker("persisting track", store.UpdateTrack)}
}

type Publisher interface {
	Publish(ctx context.Context, t string, message any) error
}

// QueuePersister hands track changes to the task queue in the order they were
// reported. The worker side is adapters/primary/pubsub.
type QueuePersister struct {
	*worker
}

func NewQueuePersister(publisher Publisher) *QueuePersister {
	return &QueuePersister{worker: newWorker("queueing track update", func(ctx context.Context, email string, track *domain.Track) error {
		return publisher.Publish(ctx, TaskPersistTrack, TrackUpdate{Email: email, Track: track})
	})}
}
