package tcp

import (
	"context"
	"net"
	"sync"
	"time"

	"farmdustry.io/internal/protocol"
)

// Client is a player connection to a server.
type Client struct {
	c  net.Conn
	r  *protocol.Reader
	mu sync.Mutex
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{Timeout: 10 * time.Second}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{c: c, r: protocol.NewReader(c)}, nil
}

// Send writes pre-encoded records.
func (c *Client) Send(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.c.Write(b)
	return err
}

func (c *Client) SendCommand(cmd protocol.Command) error {
	return c.Send(protocol.Encode(cmd))
}

// Next blocks for the next record from the server.
func (c *Client) Next() (protocol.Command, error) { return c.r.Next() }

// Run hands every received record to fn until the connection ends, fn fails
// or ctx is cancelled.
func (c *Client) Run(ctx context.Context, fn func(protocol.Command) error) error {
	stop := context.AfterFunc(ctx, func() { _ = c.c.Close() })
	defer stop()
	for {
		cmd, err := c.r.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if err := fn(cmd); err != nil {
			return err
		}
	}
}

func (c *Client) Close() error { return c.c.Close() }
