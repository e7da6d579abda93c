package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	grpcadapter "github.com/bravo-music/live/internal/adapters/primary/grpc"
	httpadapter "github.com/bravo-music/live/internal/adapters/primary/http"
	queue "github.com/bravo-music/live/internal/adapters/primary/pubsub"
	subscriber "github.com/bravo-music/live/internal/adapters/primary/redis"
	"github.com/bravo-music/live/internal/adapters/primary/ws"
	"github.com/bravo-music/live/internal/adapters/secondary/broadcaster"
	"github.com/bravo-music/live/internal/adapters/secondary/messenger"
	"github.com/bravo-music/live/internal/adapters/secondary/persister"
	"github.com/bravo-music/live/internal/adapters/secondary/store"
	"github.com/bravo-music/live/internal/domain"
	"github.com/bravo-music/live/internal/infrastructure/config"
	"github.com/bravo-music/live/internal/infrastructure/log"
	"github.com/bravo-music/live/internal/infrastructure/loop"
	"github.com/bravo-music/live/internal/infrastructure/pubsub"
	"github.com/bravo-music/live/internal/infrastructure/redis"
	"github.com/bravo-music/live/internal/infrastructure/runner"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func Server(ctx context.Context, c *cobra.Command) error {
	path, _ := c.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("LIVE_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	log.Config(cfg.Log.Level, cfg.Log.Format)

	r := runner.New(ctx)
	ctx = r.Context()

	hub := messenger.NewHub(cfg.Server.SendBuffer)
	eventLoop := loop.New(0)

	var (
		rooms     domain.RoomStore
		pinger    httpadapter.Pinger
		announcer domain.Announcer
	)

	switch cfg.Store.Backend {
	case config.StoreRedis:
		redisClient := redis.NewClient(redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer redisClient.Close()

		rooms = store.NewRedisRoomStore(redisClient.Client)
		pinger = redisClient
		announcer = broadcaster.NewBroadcaster(redisClient, broadcaster.DirectoryChannel)

		directory := subscriber.NewSubscriber(redisClient, hub)
		r.Go("directory subscriber", func(ctx context.Context) error {
			if err := directory.Subscribe(ctx, broadcaster.DirectoryChannel); err != nil {
				return fmt.Errorf("directory.Subscribe: %w", err)
			}
			return nil
		})
	default:
		rooms = store.NewMemoryRoomStore()
		announcer = broadcaster.NewLocalBroadcaster(hub.BroadcastAll)
	}

	var trackPersister interface {
		domain.Persister
		Run(ctx context.Context) error
	} = persister.NewInlinePersister(rooms)
	if cfg.Store.Persistence == config.PersistQueue {
		opts := pubsub.RedisOptions{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}

		publisher := pubsub.NewPublisher(opts)
		defer publisher.Close()
		trackPersister = persister.NewQueuePersister(publisher)

		worker := pubsub.NewSubscriber(opts)
		queue.NewSubscriber(worker, rooms).Subscribe(ctx)
		r.Go("persistence worker", func(ctx context.Context) error {
			if err := worker.Start(); err != nil {
				return fmt.Errorf("worker.Start: %w", err)
			}

			<-ctx.Done()
			worker.Stop()
			return nil
		})
	}

	r.Go("track persister", trackPersister.Run)

	dispatcher := domain.NewDispatcher(rooms, domain.NewRegistry(), hub, trackPersister, announcer, eventLoop, domain.DispatcherConfig{
		DebounceWindow:    cfg.Live.DebounceWindow.Duration,
		SyncRetryInterval: cfg.Live.SyncRetryInterval.Duration,
		SyncMaxAttempts:   cfg.Live.SyncMaxAttempts,
		StaleGrace:        cfg.Live.StaleGrace.Duration,
	})

	wsHandler := ws.NewHandler(hub, dispatcher, eventLoop, ws.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		EventsPerSec:   cfg.Server.EventsPerSecond,
		EventBurst:     cfg.Server.EventBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           httpadapter.NewRouter(rooms, pinger, wsHandler, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthServer := grpcadapter.NewHealthServer()

	r.Go("event loop", func(ctx context.Context) error {
		healthServer.SetServing(true)
		defer healthServer.SetServing(false)

		return eventLoop.Run(ctx)
	})

	r.Go("sweeper", func(ctx context.Context) error {
		return eventLoop.Every(ctx, cfg.Live.SweepInterval.Duration, func() { dispatcher.Sweep(ctx) })
	})

	r.Go("grpc health server", func(ctx context.Context) error {
		return healthServer.Serve(ctx, cfg.Server.GRPCAddr)
	})

	r.Go("http server", func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() {
			slog.InfoContext(ctx, "starting server", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("srv.ListenAndServe: %w", err)
				return
			}
			errCh <- nil
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		slog.DebugContext(ctx, "initiating server shutdown")
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("srv.Shutdown: %w", err)
		}

		return nil
	})

	if err := r.Wait(); err != nil {
		return fmt.Errorf("r.Wait: %w", err)
	}

	return nil
}
