package bus

import (
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/parleylabs/parley-relay/internal/config"
)

// Client wraps the NATS connection used for best-effort turn events.
type Client struct {
	conn *nats.Conn
	log  *slog.Logger
}

func Connect(cfg config.BusConfig, log *slog.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name("parley-relay"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
		nats.DrainTimeout(drainWait),
	}

	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))

	return &Client{conn: conn, log: log}, nil
}

// Publish marshals and publishes an event. Event publication is advisory:
// failures are logged and swallowed so a bus outage never fails a turn.
func (c *Client) Publish(subject string, event any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		c.log.Warn("failed to marshal bus event", slog.String("subject", subject), slog.String("error", err.Error()))
		return
	}
	if err := c.conn.Publish(subject, data); err != nil {
		c.log.Warn("failed to publish bus event", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}

// Cap on how long shutdown waits for buffered events to flush.
const drainWait = 2 * time.Second

// Close drains the connection so buffered events are flushed before the
// socket goes away. Drain completes asynchronously; wait for the connection
// to report closed, with a hard cap, then fall back to a plain close.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info("draining NATS connection")
	if err := c.conn.Drain(); err != nil {
		c.log.Warn("failed to drain NATS connection", slog.String("error", err.Error()))
		c.conn.Close()
		return
	}
	deadline := time.Now().Add(drainWait + time.Second)
	for !c.conn.IsClosed() {
		if time.Now().After(deadline) {
			c.log.Warn("NATS drain did not finish in time")
			c.conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}
