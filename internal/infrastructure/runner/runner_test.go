package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bravo-music/live/internal/infrastructure/runner"
	"github.com/stretchr/testify/require"
)

func TestRunner(t *testing.T) {
	t.Parallel()

	t.Run("it should stop every component when one fails", func(t *testing.T) {
		boom := errors.New("boom")
		r := runner.New(context.Background())

		r.Go("waiter", func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
		r.Go("failer", func(ctx context.Context) error {
			return boom
		})

		require.ErrorIs(t, r.Wait(), boom)
	})

	t.Run("it should stop when the parent context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		r := runner.New(ctx)

		r.Go("waiter", func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
		cancel()

		require.NoError(t, r.Wait())
	})
}
