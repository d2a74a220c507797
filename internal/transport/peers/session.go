package peers

import (
	"context"
	"errors"
	"io"
	"log"
	"net"

	"golang.org/x/time/rate"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/engine"
)

// Sink is the simulation side of a session.
type Sink interface {
	Submit(ctx context.Context, env engine.Envelope) error
	Join(ctx context.Context, req engine.JoinRequest) error
	Leave(ctx context.Context, playerID uint8) error
	CountRateLimited()
}

// NextFunc yields the next decoded record from a connection.
type NextFunc func() (protocol.Command, error)

type Hub struct {
	Registry *Registry
	Sink     Sink
	Log      *log.Logger

	// CommandsPerSecond <= 0 disables limiting.
	CommandsPerSecond float64
	Burst             int
}

func (h *Hub) limiter() *rate.Limiter {
	if h.CommandsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := h.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.CommandsPerSecond), burst)
}

func (h *Hub) logf(format string, args ...any) {
	if h.Log != nil {
		h.Log.Printf(format, args...)
	}
}

// Serve runs one client session until the connection fails, the peer is
// kicked or ctx ends. All records from the connection are submitted in
// stream order; Leave is sent after the last one.
func (h *Hub) Serve(ctx context.Context, conn Conn, remote string, next NextFunc) error {
	p, err := h.Registry.Add(conn, remote)
	if err != nil {
		_ = conn.Shutdown()
		return err
	}
	// Deferred first so it runs last: the id is freed only after the engine
	// has taken the leave.
	defer h.Registry.Remove(p.ID)

	join := engine.JoinRequest{
		PlayerID:  p.ID,
		SessionID: p.SessionID,
		Remote:    remote,
		Attach:    func(burst []byte) { h.Registry.Attach(p.ID, burst) },
	}
	if err := h.Sink.Join(ctx, join); err != nil {
		return err
	}
	defer func() { _ = h.Sink.Leave(context.Background(), p.ID) }()
	h.logf("join player=%d session=%s remote=%s", p.ID, p.SessionID, remote)

	go p.writeLoop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			p.kick()
		case <-p.Done():
		}
	}()

	lim := h.limiter()
	for {
		cmd, err := next()
		if err != nil {
			switch {
			case protocol.IsProtocolError(err):
				h.logf("protocol error player=%d: %v", p.ID, err)
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
				h.logf("leave player=%d", p.ID)
				err = nil
			default:
				h.logf("read error player=%d: %v", p.ID, err)
			}
			return err
		}
		if !lim.Allow() {
			h.Sink.CountRateLimited()
			continue
		}
		env := engine.Envelope{PlayerID: p.ID, SessionID: p.SessionID, Command: cmd}
		if err := h.Sink.Submit(ctx, env); err != nil {
			return err
		}
	}
}
