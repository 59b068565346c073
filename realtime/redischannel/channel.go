// Package redischannel implements the realtime Dialer/Conn ports over Redis
// pub/sub. Inbound events arrive on a namespaced events channel; outbound
// messages are published to a commands channel under the same namespace.
package redischannel

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-entity-cache/realtime"
)

// Options configures the Redis connection and channel namespace.
type Options struct {
	// Addr is the Redis host:port. Required.
	Addr     string
	Password string
	DB       int

	// Prefix namespaces the pub/sub channels; defaults to "entitycache".
	Prefix string

	// Name identifies this stream within the prefix. Required.
	Name string
}

// Dialer dials Redis-backed realtime connections.
type Dialer struct {
	opts Options
}

var _ realtime.Dialer = (*Dialer)(nil)

// New creates a dialer. The name must not be empty; channels are namespaced
// as <prefix>:events:<name> (inbound) and <prefix>:commands:<name>
// (outbound).
func New(opts Options) (*Dialer, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("redischannel: name cannot be empty")
	}
	if opts.Prefix == "" {
		opts.Prefix = "entitycache"
	}
	return &Dialer{opts: opts}, nil
}

// EventsChannel returns the inbound pub/sub channel name.
func (d *Dialer) EventsChannel() string {
	return fmt.Sprintf("%s:events:%s", d.opts.Prefix, d.opts.Name)
}

// CommandsChannel returns the outbound pub/sub channel name.
func (d *Dialer) CommandsChannel() string {
	return fmt.Sprintf("%s:commands:%s", d.opts.Prefix, d.opts.Name)
}

// Dial connects to Redis, verifies reachability, and subscribes to the
// events channel. The returned Conn owns the client and the subscription.
func (d *Dialer) Dial(ctx context.Context) (realtime.Conn, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     d.opts.Addr,
		Password: d.opts.Password,
		DB:       d.opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redischannel: ping failed: %w", err)
	}

	pubsub := client.Subscribe(ctx, d.EventsChannel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		_ = client.Close()
		return nil, fmt.Errorf("redischannel: subscribe failed: %w", err)
	}

	return &conn{
		client:   client,
		pubsub:   pubsub,
		messages: pubsub.Channel(),
		outbound: d.CommandsChannel(),
	}, nil
}

type conn struct {
	client   *redis.Client
	pubsub   *redis.PubSub
	messages <-chan *redis.Message
	outbound string
}

func (c *conn) Send(ctx context.Context, payload []byte) error {
	if err := c.client.Publish(ctx, c.outbound, payload).Err(); err != nil {
		return fmt.Errorf("redischannel: publish failed: %w", err)
	}
	return nil
}

func (c *conn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-c.messages:
		if !ok {
			return nil, io.EOF
		}
		return []byte(msg.Payload), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *conn) Close() error {
	_ = c.pubsub.Close()
	return c.client.Close()
}
