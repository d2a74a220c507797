// Package ws bridges browser clients onto the same record stream as TCP.
// Each binary message carries one or more whole records.
package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/transport/peers"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	maxMessage   = 64 * 1024
)

type Server struct {
	hub *peers.Hub
	log *log.Logger
	ctx context.Context

	upgrader websocket.Upgrader
}

// NewServer ends every session when ctx is cancelled.
func NewServer(ctx context.Context, hub *peers.Hub, logger *log.Logger) *Server {
	return &Server{
		hub: hub,
		log: logger,
		ctx: ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		c, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		conn := newConn(c)
		defer conn.Shutdown()

		err = s.hub.Serve(s.ctx, conn, r.RemoteAddr, conn.next)
		if err != nil && s.log != nil {
			s.log.Printf("ws %s: %v", r.RemoteAddr, err)
		}
	}
}

// conn adapts a websocket to peers.Conn and splits messages into records.
type conn struct {
	c       *websocket.Conn
	mu      sync.Mutex
	pending []protocol.Command
	failed  error
	stop    chan struct{}
	once    sync.Once
}

func newConn(c *websocket.Conn) *conn {
	wc := &conn{c: c, stop: make(chan struct{})}
	c.SetReadLimit(maxMessage)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})
	go wc.pingLoop()
	return wc
}

func (w *conn) Send(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteMessage(websocket.BinaryMessage, b)
}

func (w *conn) Shutdown() error {
	var err error
	w.once.Do(func() {
		close(w.stop)
		err = w.c.Close()
	})
	return err
}

func (w *conn) pingLoop() {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-t.C:
			if err := w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// next returns buffered records first and reads another message when none
// are left. Text messages are ignored. Records decoded ahead of a malformed
// one are still returned before the error, as on a TCP stream.
func (w *conn) next() (protocol.Command, error) {
	for len(w.pending) == 0 {
		if w.failed != nil {
			return nil, w.failed
		}
		typ, msg, err := w.c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, errClosed
			}
			return nil, err
		}
		_ = w.c.SetReadDeadline(time.Now().Add(pongWait))
		if typ != websocket.BinaryMessage {
			continue
		}
		w.pending, w.failed = protocol.DecodeAll(msg)
	}
	cmd := w.pending[0]
	w.pending = w.pending[1:]
	return cmd, nil
}
