package persister_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bravo-music/live/internal/adapters/secondary/persister"
	"github.com/bravo-music/live/internal/adapters/secondary/store"
	"github.com/bravo-music/live/internal/domain"
	"github.com/stretchr/testify/require"
)

type publisher struct {
	published chan persister.TrackUpdate
	topics    chan string
	err       error
}

func (p *publisher) Publish(ctx context.Context, t string, message any) error {
	b, err := json.Marshal(message)
	if err != nil {
		return err
	}

	var u persister.TrackUpdate
	if err := json.Unmarshal(b, &u); err != nil {
		return err
	}

	p.topics <- t
	p.published <- u
	return p.err
}

// gatedStore holds the first write until release is closed.
type gatedStore struct {
	mu      sync.Mutex
	written []*domain.Track
	started chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (s *gatedStore) UpdateTrack(ctx context.Context, email string, track *domain.Track) error {
	s.mu.Lock()
	first := len(s.written) == 0
	s.mu.Unlock()

	if first {
		s.started <- struct{}{}
		<-s.release
	}

	s.mu.Lock()
	s.written = append(s.written, track)
	s.mu.Unlock()
	return nil
}

func (s *gatedStore) tracks() []*domain.Track {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*domain.Track(nil), s.written...)
}

type runner interface {
	Run(ctx context.Context) error
}

func run(t *testing.T, r runner) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})
}

var (
	track  = &domain.Track{Name: "So What", Artist: "Miles Davis"}
	trackB = &domain.Track{Name: "Blue in Green", Artist: "Miles Davis"}
	trackC = &domain.Track{Name: "All Blues", Artist: "Miles Davis"}
)

func TestInlinePersister(t *testing.T) {
	t.Parallel()

	t.Run("it should write the track to the store", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		rooms := store.NewMemoryRoomStore()
		_, err := rooms.CreateRoom(ctx, domain.User{Email: "host@example.com"}, nil)
		require.NoError(t, err)

		p := persister.NewInlinePersister(rooms)
		run(t, p)
		p.PersistTrack(ctx, "host@example.com", track)

		require.Eventually(t, func() bool {
			room, _, _ := rooms.GetRoomByHost(ctx, "host@example.com")
			return domain.SameTrack(room.Track, track)
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("it should leave the latest track last when writes overlap", func(t *testing.T) {
		t.Parallel()

		s := newGatedStore()
		p := persister.NewInlinePersister(s)
		run(t, p)

		p.PersistTrack(context.Background(), "host@example.com", track)
		<-s.started

		p.PersistTrack(context.Background(), "host@example.com", trackB)
		p.PersistTrack(context.Background(), "host@example.com", trackC)
		close(s.release)

		require.Eventually(t, func() bool {
			return len(s.tracks()) == 2
		}, time.Second, 5*time.Millisecond)
		require.Equal(t, []*domain.Track{track, trackC}, s.tracks())
	})

	t.Run("it should flush pending tracks on shutdown", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		rooms := store.NewMemoryRoomStore()
		_, err := rooms.CreateRoom(ctx, domain.User{Email: "host@example.com"}, nil)
		require.NoError(t, err)

		p := persister.NewInlinePersister(rooms)
		p.PersistTrack(ctx, "host@example.com", track)

		stopped, cancel := context.WithCancel(ctx)
		cancel()
		require.NoError(t, p.Run(stopped))

		room, ok, err := rooms.GetRoomByHost(ctx, "host@example.com")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, track, room.Track)
	})
}

func TestQueuePersister(t *testing.T) {
	t.Parallel()

	t.Run("it should enqueue a track update task", func(t *testing.T) {
		t.Parallel()

		p := &publisher{published: make(chan persister.TrackUpdate, 1), topics: make(chan string, 1)}
		qp := persister.NewQueuePersister(p)
		run(t, qp)
		qp.PersistTrack(context.Background(), "host@example.com", track)

		require.Equal(t, persister.TaskPersistTrack, <-p.topics)
		require.Equal(t, persister.TrackUpdate{Email: "host@example.com", Track: track}, <-p.published)
	})

	t.Run("it should enqueue updates in the order they were reported", func(t *testing.T) {
		t.Parallel()

		p := &publisher{published: make(chan persister.TrackUpdate), topics: make(chan string, 4)}
		qp := persister.NewQueuePersister(p)
		run(t, qp)

		qp.PersistTrack(context.Background(), "a@example.com", track)
		require.Equal(t, persister.TrackUpdate{Email: "a@example.com", Track: track}, <-p.published)

		qp.PersistTrack(context.Background(), "a@example.com", trackB)
		qp.PersistTrack(context.Background(), "b@example.com", trackC)

		require.Equal(t, persister.TrackUpdate{Email: "a@example.com", Track: trackB}, <-p.published)
		require.Equal(t, persister.TrackUpdate{Email: "b@example.com", Track: trackC}, <-p.published)
	})

	t.Run("it should carry on after a publish failure", func(t *testing.T) {
		t.Parallel()

		p := &publisher{published: make(chan persister.TrackUpdate, 2), topics: make(chan string, 2), err: errors.New("queue down")}
		qp := persister.NewQueuePersister(p)
		run(t, qp)

		qp.PersistTrack(context.Background(), "host@example.com", track)
		<-p.published

		qp.PersistTrack(context.Background(), "host@example.com", trackB)
		require.Equal(t, trackB, (<-p.published).Track)
	})
}
