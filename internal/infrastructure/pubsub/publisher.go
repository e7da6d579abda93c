package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

type Task struct {
	Type    string
	Payload []byte
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func (o RedisOptions) clientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

type Publisher struct {
	client *asynq.Client
}

func NewPublisher(opts RedisOptions) *Publisher {
	return &Publisher{
		client: asynq.NewClient(opts.clientOpt()),
	}
}

// Publish enqueues message as a task of type t. Tasks are retried a few
// times and dropped after a minute.
func (p *Publisher) Publish(ctx context.Context, t string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	task := asynq.NewTask(t, payload, asynq.MaxRetry(3), asynq.Timeout(10*time.Second), asynq.Retention(time.Minute))
	if _, err := p.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("client.EnqueueContext: %w", err)
	}

	return nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
