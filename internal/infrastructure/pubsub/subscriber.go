package pubsub

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

type Subscriber struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

// NewSubscriber builds a worker with a single consumer, so tasks of a queue
// are applied in the order they were enqueued. A retried task goes back to
// the end of the queue.
func NewSubscriber(opts RedisOptions) *Subscriber {
	srv := asynq.NewServer(
		opts.clientOpt(),
		asynq.Config{
			TaskCheckInterval: time.Millisecond * 100,
			Concurrency:       1,
			ShutdownTimeout:   10 * time.Second,
			Queues: map[string]int{
				"default": 10,
			},
			Logger: NewLogger(),
		},
	)

	return &Subscriber{
		srv: srv,
		mux: asynq.NewServeMux(),
	}
}

type TaskHandlerFunc func(ctx context.Context, t Task) error

func (c *Subscriber) Subscribe(ctx context.Context, topic string, handler TaskHandlerFunc) {
	c.mux.HandleFunc(topic, func(ctx context.Context, t *asynq.Task) error {
		return handler(ctx, Task{Type: t.Type(), Payload: t.Payload()})
	})
}

func (c *Subscriber) Start() error {
	return c.srv.Start(c.mux)
}

func (c *Subscriber) Stop() {
	c.srv.Shutdown()
}
