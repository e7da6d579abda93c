package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	*redis.Client
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(opts Options) *Client {
	return &Client{Client: redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})}
}

type Message = redis.Message

var ErrFailedToReceiveMessage = errors.New("failed to receive message")

func (c *Client) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("client.Ping: %w", err)
	}

	return nil
}

// Subscribe returns a function that feeds every message of channel to
// handler until ctx is done. A handler error ends the subscription.
func (c *Client) Subscribe(ctx context.Context, channel string) func(handler func(Message) error) error {
	pubsub := c.Client.Subscribe(ctx, channel)

	return func(handler func(Message) error) error {
		defer pubsub.Close()

		if _, err := pubsub.Receive(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("pubsub.Receive: %w: %w", ErrFailedToReceiveMessage, err)
		}

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case m, ok := <-messages:
				if !ok {
					return fmt.Errorf("pubsub.Channel: %w", ErrFailedToReceiveMessage)
				}

				if err := handler(*m); err != nil {
					return fmt.Errorf("handler: %w", err)
				}
			}
		}
	}
}

func (c *Client) Publish(ctx context.Context, channel string, message any) error {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := c.Client.Publish(ctx, channel, msgBytes).Err(); err != nil {
		return fmt.Errorf("client.Publish: %w", err)
	}

	return nil
}
