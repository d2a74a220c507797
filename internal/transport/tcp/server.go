// Package tcp serves the binary record stream over raw TCP.
package tcp

import (
	"context"
	"errors"
	"log"
	"net"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/transport/peers"
)

const writeTimeout = 5 * time.Second

type Server struct {
	hub *peers.Hub
	log *log.Logger
	swg sizedwaitgroup.SizedWaitGroup
}

// NewServer serves at most maxConns sockets at once; further accepts wait
// for a slot.
func NewServer(hub *peers.Hub, maxConns int, logger *log.Logger) *Server {
	if maxConns <= 0 {
		maxConns = 255
	}
	return &Server{hub: hub, log: logger, swg: sizedwaitgroup.New(maxConns)}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts until ctx ends or ln fails, then waits for open sessions.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.log != nil {
		s.log.Printf("tcp listening on %s", ln.Addr())
	}
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var err error
	for {
		if werr := s.swg.AddWithContext(ctx); werr != nil {
			break
		}
		c, aerr := ln.Accept()
		if aerr != nil {
			s.swg.Done()
			if ctx.Err() == nil && !errors.Is(aerr, net.ErrClosed) {
				err = aerr
			}
			break
		}
		go func() {
			defer s.swg.Done()
			s.serveConn(ctx, c)
		}()
	}
	s.swg.Wait()
	return err
}

func (s *Server) serveConn(ctx context.Context, c net.Conn) {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	conn := &socket{c: c}
	r := protocol.NewReader(c)
	err := s.hub.Serve(ctx, conn, c.RemoteAddr().String(), r.Next)
	if err != nil && s.log != nil {
		s.log.Printf("tcp %s: %v", c.RemoteAddr(), err)
	}
	_ = conn.Shutdown()
}

// socket adapts a net.Conn to peers.Conn.
type socket struct {
	mu sync.Mutex
	c  net.Conn
}

func (s *socket) Send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := s.c.Write(b)
	return err
}

func (s *socket) Shutdown() error { return s.c.Close() }
