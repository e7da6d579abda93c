package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	subscriber "github.com/bravo-music/live/internal/adapters/primary/redis"
	"github.com/bravo-music/live/internal/adapters/secondary/broadcaster"
	"github.com/bravo-music/live/internal/domain"
	"github.com/bravo-music/live/internal/infrastructure/redis"
	"github.com/stretchr/testify/require"
)

type sockets struct {
	got chan domain.Message
}

func (s *sockets) BroadcastAll(msg domain.Message) {
	s.got <- msg
}

func TestSubscriber(t *testing.T) {
	t.Parallel()

	t.Run("it should push announced sessions to every local socket", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		local := &sockets{got: make(chan domain.Message, 1)}

		done := make(chan error, 1)
		go func() {
			done <- subscriber.NewSubscriber(client, local).Subscribe(ctx, broadcaster.DirectoryChannel)
		}()

		require.Eventually(t, func() bool {
			return mr.PubSubNumSub(broadcaster.DirectoryChannel)[broadcaster.DirectoryChannel] == 1
		}, time.Second, 5*time.Millisecond)

		notice := domain.SessionNotice{
			RoomID:    "r1",
			HostEmail: "host@example.com",
			Host:      domain.User{Email: "host@example.com"},
			Track:     &domain.Track{Name: "So What", Artist: "Miles Davis"},
			Live:      true,
		}
		require.NoError(t, broadcaster.NewBroadcaster(client, "").Announce(ctx, notice))

		select {
		case msg := <-local.got:
			require.Equal(t, domain.LiveSessions(notice), msg)
		case <-time.After(time.Second):
			t.Fatal("notice never arrived")
		}

		cancel()
		require.NoError(t, <-done)
	})

	t.Run("it should skip unreadable notices", func(t *testing.T) {
		local := &sockets{got: make(chan domain.Message, 1)}
		s := subscriber.NewSubscriber(nil, local)

		require.NoError(t, s.Handle(context.Background(), []byte("{oops")))
		require.Empty(t, local.got)
	})
}
