package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/catalogs"
	"farmdustry.io/internal/sim/engine"
	"farmdustry.io/internal/sim/tuning"
	"farmdustry.io/internal/transport/peers"
)

func TestBridge_BatchedMessage(t *testing.T) {
	cats := catalogs.Default()
	cfg, _ := engine.ConfigFromTuning(tuning.Defaults(), cats)
	eng := engine.New(cfg, cats)
	reg := peers.NewRegistry(8, 64, nil)
	eng.SetBroadcaster(engine.BroadcasterFunc(reg.Broadcast))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	engDone := make(chan struct{})
	go func() { _ = eng.Run(ctx); close(engDone) }()
	defer func() { cancel(); <-engDone }()

	srv := NewServer(ctx, &peers.Hub{Registry: reg, Sink: eng}, nil)
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	c, err := Dial(ctx, "ws"+strings.TrimPrefix(hs.URL, "http"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()

	first, err := c.Next()
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if id, ok := first.(protocol.SetPlayerID); !ok || id.PlayerID != 1 {
		t.Fatalf("first record %#v", first)
	}

	var batch []byte
	batch = protocol.AppendCommand(batch, protocol.PlantCrop{Y: 1, X: 1, Crop: catalogs.CropCarrot})
	batch = protocol.AppendCommand(batch, protocol.PlantCrop{Y: 1, X: 2, Crop: catalogs.CropCarrot})
	c.mu.Lock()
	err = c.c.WriteMessage(websocket.BinaryMessage, batch)
	c.mu.Unlock()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	adds := 0
	err = c.Run(ctx, func(cmd protocol.Command) error {
		if _, ok := cmd.(protocol.AddCrop); ok {
			adds++
			if adds == 2 {
				cancel()
			}
		}
		return nil
	})
	if adds != 2 {
		t.Fatalf("adds=%d err=%v", adds, err)
	}
}

type recordingSink struct {
	mu   sync.Mutex
	cmds []protocol.Command
	left bool
}

func (s *recordingSink) Submit(_ context.Context, env engine.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmds = append(s.cmds, env.Command)
	return nil
}

func (s *recordingSink) Join(context.Context, engine.JoinRequest) error { return nil }

func (s *recordingSink) Leave(context.Context, uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.left = true
	return nil
}

func (s *recordingSink) CountRateLimited() {}

func TestBridge_ValidPrefixSubmittedBeforeDecodeError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sink := &recordingSink{}
	srv := NewServer(ctx, &peers.Hub{Registry: peers.NewRegistry(8, 64, nil), Sink: sink}, nil)
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()

	c, err := Dial(ctx, "ws"+strings.TrimPrefix(hs.URL, "http"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	if _, err := c.Next(); err != nil {
		t.Fatalf("handshake: %v", err)
	}

	msg := protocol.Encode(protocol.PlantCrop{Y: 1, X: 1, Crop: catalogs.CropCarrot})
	msg = append(msg, 0xFF)
	c.mu.Lock()
	err = c.c.WriteMessage(websocket.BinaryMessage, msg)
	c.mu.Unlock()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		left, n := sink.left, len(sink.cmds)
		sink.mu.Unlock()
		if left {
			if n != 1 {
				t.Fatalf("submitted %d records, want 1", n)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session did not end on the malformed record")
}
