// Package peers tracks connected clients, assigns their player ids and fans
// tick broadcasts out to them.
package peers

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"

	"farmdustry.io/internal/protocol"
)

// Conn is the raw socket a peer is served over.
type Conn interface {
	Send(b []byte) error
	Shutdown() error
}

var ErrFull = errors.New("peers: no free player id")

type Peer struct {
	ID        uint8
	SessionID string
	Remote    string

	conn     Conn
	queue    chan []byte
	done     chan struct{}
	once     sync.Once
	attached bool // guarded by Registry.mu
}

// Done is closed once the peer has been kicked or removed.
func (p *Peer) Done() <-chan struct{} { return p.done }

func (p *Peer) kick() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Shutdown()
	})
}

// Registry assigns ids 1..max (0 is the server) and owns every peer's
// outbound queue.
type Registry struct {
	mu    deadlock.RWMutex
	byID  map[uint8]*Peer
	last  uint8
	max   int
	qsize int

	log    *log.Logger
	kicked atomic.Uint64
}

func NewRegistry(maxPeers, queueSize int, logger *log.Logger) *Registry {
	if maxPeers <= 0 || maxPeers > 255 {
		maxPeers = 255
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Registry{
		byID:  map[uint8]*Peer{},
		max:   maxPeers,
		qsize: queueSize,
		log:   logger,
	}
}

// Add registers a new peer with its SetPlayerId record queued. The peer gets
// no broadcasts until Attach hands it the world state.
func (r *Registry) Add(conn Conn, remote string) (*Peer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.nextIDLocked()
	if !ok {
		return nil, ErrFull
	}
	p := &Peer{
		ID:        id,
		SessionID: uuid.NewString(),
		Remote:    remote,
		conn:      conn,
		queue:     make(chan []byte, r.qsize),
		done:      make(chan struct{}),
	}
	p.queue <- protocol.Encode(protocol.SetPlayerID{PlayerID: id})
	r.byID[id] = p
	r.last = id
	return p, nil
}

// nextIDLocked scans forward from the last assigned id so a just-freed id is
// not handed out again immediately.
func (r *Registry) nextIDLocked() (uint8, bool) {
	id := int(r.last)
	for i := 0; i < r.max; i++ {
		id = id%r.max + 1
		if _, taken := r.byID[uint8(id)]; !taken {
			return uint8(id), true
		}
	}
	return 0, false
}

// Attach queues the join burst for id and subscribes the peer to
// broadcasts. Unknown or already attached ids are ignored.
func (r *Registry) Attach(id uint8, burst []byte) {
	r.mu.Lock()
	p := r.byID[id]
	if p == nil || p.attached {
		r.mu.Unlock()
		return
	}
	full := false
	if len(burst) > 0 {
		select {
		case p.queue <- burst:
		default:
			full = true
		}
	}
	p.attached = !full
	r.mu.Unlock()

	if full {
		r.kicked.Add(1)
		if r.log != nil {
			r.log.Printf("peer %d (%s): outbound queue full on attach, disconnecting", p.ID, p.Remote)
		}
		r.Remove(id)
	}
}

func (r *Registry) Remove(id uint8) {
	r.mu.Lock()
	p := r.byID[id]
	delete(r.byID, id)
	r.mu.Unlock()
	if p != nil {
		p.kick()
	}
}

// Broadcast queues b for every peer. A peer whose queue is full is
// disconnected: skipping a delta would leave its mirror out of sync.
func (r *Registry) Broadcast(b []byte) {
	var slow []*Peer
	r.mu.RLock()
	for _, p := range r.byID {
		if !p.attached {
			continue
		}
		select {
		case p.queue <- b:
		default:
			slow = append(slow, p)
		}
	}
	r.mu.RUnlock()

	for _, p := range slow {
		r.kicked.Add(1)
		if r.log != nil {
			r.log.Printf("peer %d (%s): outbound queue full, disconnecting", p.ID, p.Remote)
		}
		r.Remove(p.ID)
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Kicked counts peers dropped for falling behind.
func (r *Registry) Kicked() uint64 { return r.kicked.Load() }

// writeLoop drains the peer's queue onto its connection.
func (p *Peer) writeLoop() {
	for {
		select {
		case <-p.done:
			return
		case b := <-p.queue:
			if err := p.conn.Send(b); err != nil {
				p.kick()
				return
			}
		}
	}
}
