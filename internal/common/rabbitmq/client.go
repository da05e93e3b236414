package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"rider-agent/internal/common/config"
)

// Client is a thin RabbitMQ connector. The agent only ever publishes, so a
// single connection with a lazily reopened publish channel is enough.
type Client struct {
	url    string
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	pubChan *amqp.Channel
}

func NewMQ(cfg config.RabbitMQ, logger *slog.Logger) *Client {
	return &Client{
		url:    fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Password, cfg.Host, cfg.Port),
		logger: logger,
	}
}

// Connect dials the broker. Further channel re-opens happen in Channel.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	c.conn = conn
	c.logger.Info("rmq_connected", "action", "connect")
	return nil
}

// Channel returns a live publish channel, reopening it if the previous one
// was closed by the broker.
func (c *Client) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		return nil, fmt.Errorf("rabbitmq connection not open")
	}
	if c.pubChan != nil && !c.pubChan.IsClosed() {
		return c.pubChan, nil
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c.pubChan = ch
	return ch, nil
}

// DeclareTopology declares the exchanges this agent publishes to.
func (c *Client) DeclareTopology(exchanges ...string) error {
	ch, err := c.Channel()
	if err != nil {
		return err
	}
	for _, ex := range exchanges {
		if err := ch.ExchangeDeclare(ex, "fanout", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}
	return nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pubChan != nil && !c.pubChan.IsClosed() {
		_ = c.pubChan.Close()
	}
	if c.conn != nil && !c.conn.IsClosed() {
		_ = c.conn.Close()
	}
}
