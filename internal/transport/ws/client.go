package ws

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"farmdustry.io/internal/protocol"
)

// errClosed maps a clean close frame onto the EOF sessions expect.
var errClosed = io.EOF

type Client struct {
	c       *websocket.Conn
	mu      sync.Mutex
	pending []protocol.Command
}

// Dial connects to a ws://host/v1/ws endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(maxMessage)
	return &Client{c: c}, nil
}

func (c *Client) SendCommand(cmd protocol.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.c.WriteMessage(websocket.BinaryMessage, protocol.Encode(cmd))
}

func (c *Client) Next() (protocol.Command, error) {
	for len(c.pending) == 0 {
		typ, msg, err := c.c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, errClosed
			}
			return nil, err
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		cmds, err := protocol.DecodeAll(msg)
		if err != nil {
			return nil, err
		}
		c.pending = cmds
	}
	cmd := c.pending[0]
	c.pending = c.pending[1:]
	return cmd, nil
}

func (c *Client) Run(ctx context.Context, fn func(protocol.Command) error) error {
	stop := context.AfterFunc(ctx, func() { _ = c.c.Close() })
	defer stop()
	for {
		cmd, err := c.Next()
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

func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.c.Close()
}
