// Package engine runs the authoritative simulation loop: it serialises every
// client command onto one goroutine, dispatches it, and broadcasts the
// resulting game commands once per tick.
package engine

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/catalogs"
	"farmdustry.io/internal/sim/dispatch"
	"farmdustry.io/internal/sim/entities"
	"farmdustry.io/internal/sim/inventory"
	"farmdustry.io/internal/sim/tuning"
	"farmdustry.io/internal/sim/world"
)

type Config struct {
	TickRateHz int
	InboxSize  int

	World              world.Config
	PlayerSpeed        float32
	PickupRadius       float32
	MaxInventoryVolume int
	Starter            []inventory.Stack
	Rules              tuning.Rules

	SnapshotEveryTicks int
}

// ConfigFromTuning maps tuning values onto an engine config. Unknown starter
// item ids are returned so the caller can log them.
func ConfigFromTuning(t tuning.Tuning, cats *catalogs.Catalogs) (Config, []string) {
	starter, unknown := inventory.StarterStacks(cats, t.StarterItems)
	return Config{
		TickRateHz: t.TickRateHz,
		InboxSize:  t.InboxSize,
		World: world.Config{
			Size:                   t.WorldSize,
			CropRate:               t.CropRate,
			StructureUpdateSeconds: t.StructureUpdateSeconds,
		},
		PlayerSpeed:        t.PlayerSpeed,
		PickupRadius:       t.PickupRadius,
		MaxInventoryVolume: t.MaxInventoryVolume,
		Starter:            starter,
		Rules:              t.Rules,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
	}, unknown
}

var ErrStopped = errors.New("engine stopped")

type Engine struct {
	cfg Config

	world   *world.World
	inv     *inventory.List
	players *entities.Players
	drops   *entities.ItemDrops
	disp    *dispatch.Dispatcher
	out     *CommandList

	inbox chan Envelope
	join  chan JoinRequest
	leave chan uint8
	snaps chan chan State
	done  chan struct{}

	broadcaster Broadcaster
	tickLogger  TickLogger
	auditLogger AuditLogger
	snapSink    chan<- State

	tick    uint64
	peers   int
	actor   uint8
	inputs  []RecordedInput
	joining []JoinRequest
	stats   counters
	metrics atomic.Value

	rateLimited atomic.Uint64
}

type counters struct {
	accepted uint64
	rejected map[string]uint64
	lastStep time.Duration
}

func New(cfg Config, cats *catalogs.Catalogs) *Engine {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 10
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 1024
	}
	if cats == nil {
		cats = catalogs.Default()
	}
	e := &Engine{
		cfg:     cfg,
		world:   world.New(cfg.World, cats),
		inv:     inventory.NewList(cfg.MaxInventoryVolume, cats.UnitVolume, cfg.Starter),
		players: entities.NewPlayers(cfg.PlayerSpeed),
		drops:   entities.NewItemDrops(),
		out:     NewCommandList(),
		inbox:   make(chan Envelope, cfg.InboxSize),
		join:    make(chan JoinRequest),
		leave:   make(chan uint8),
		snaps:   make(chan chan State),
		done:    make(chan struct{}),
		stats:   counters{rejected: map[string]uint64{}},
	}
	e.disp = &dispatch.Dispatcher{
		World:        e.world,
		Inventories:  e.inv,
		Players:      e.players,
		Drops:        e.drops,
		Rules:        cfg.Rules,
		PickupRadius: cfg.PickupRadius,
		Out:          dispatch.EmitterFunc(e.emit),
	}
	e.publishMetrics()
	return e
}

func (e *Engine) SetBroadcaster(b Broadcaster) { e.broadcaster = b }
func (e *Engine) SetTickLogger(l TickLogger)   { e.tickLogger = l }
func (e *Engine) SetAuditLogger(l AuditLogger) { e.auditLogger = l }

// SetSnapshotSink receives a State every SnapshotEveryTicks ticks. Sends
// never block; a snapshot is skipped if the sink is full.
func (e *Engine) SetSnapshotSink(ch chan<- State) { e.snapSink = ch }
func (e *Engine) World() *world.World             { return e.world }
func (e *Engine) Inventories() *inventory.List    { return e.inv }
func (e *Engine) Players() *entities.Players      { return e.players }
func (e *Engine) Drops() *entities.ItemDrops      { return e.drops }

// Submit queues an envelope, blocking while the inbox is full.
func (e *Engine) Submit(ctx context.Context, env Envelope) error {
	select {
	case e.inbox <- env:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join returns once the loop has taken the request, so it is handled before
// any command the session submits afterwards.
func (e *Engine) Join(ctx context.Context, req JoinRequest) error {
	select {
	case e.join <- req:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave must be called after the player's last Submit so the session's
// commands are applied before its inventory is dropped. Like Join it returns
// once the loop has taken the request, so the id can be handed out again.
func (e *Engine) Leave(ctx context.Context, playerID uint8) error {
	select {
	case e.leave <- playerID:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot asks the running loop for a copy of the current state.
func (e *Engine) Snapshot(ctx context.Context) (State, error) {
	resp := make(chan State, 1)
	select {
	case e.snaps <- resp:
	case <-e.done:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case st := <-resp:
		return st, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Run owns the simulation until ctx is cancelled. Commands are dispatched as
// they arrive; the ticker advances time and flushes the command list.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	interval := time.Second / time.Duration(e.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-e.join:
			e.handleJoin(req)
		case id := <-e.leave:
			e.drainInbox()
			e.handleLeave(id)
		case env := <-e.inbox:
			e.handleEnvelope(env)
		case resp := <-e.snaps:
			resp <- e.State()
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			e.step(dt)
		}
	}
}

// StepOnce applies envs in order and then runs one tick of dt seconds. It is
// the deterministic entry point for tests and replay.
func (e *Engine) StepOnce(dt float32, envs []Envelope) (tick uint64, digest string) {
	for _, env := range envs {
		e.handleEnvelope(env)
	}
	tick = e.tick
	digest = e.step(dt)
	return tick, digest
}

// Replay re-applies a recorded tick.
func (e *Engine) Replay(entry TickLogEntry) (digest string, err error) {
	if entry.Tick != e.tick {
		return "", fmt.Errorf("replay: expected tick %d, got %d", e.tick, entry.Tick)
	}
	for i, in := range entry.Inputs {
		switch in.Type {
		case InputJoin:
			e.handleJoin(JoinRequest{PlayerID: in.PlayerID})
		case InputLeave:
			e.handleLeave(in.PlayerID)
		case InputCommand:
			raw, err := hex.DecodeString(in.Data)
			if err != nil {
				return "", fmt.Errorf("replay: tick %d input %d: %w", entry.Tick, i, err)
			}
			cmd, _, err := protocol.Decode(raw, 0)
			if err != nil {
				return "", fmt.Errorf("replay: tick %d input %d: %w", entry.Tick, i, err)
			}
			e.handleEnvelope(Envelope{PlayerID: in.PlayerID, Command: cmd})
		default:
			return "", fmt.Errorf("replay: tick %d input %d: unknown type %q", entry.Tick, i, in.Type)
		}
	}
	return e.step(entry.DeltaTime), nil
}

// drainInbox applies every envelope already queued, so a leave never
// overtakes the leaving session's own commands.
func (e *Engine) drainInbox() {
	for {
		select {
		case env := <-e.inbox:
			e.handleEnvelope(env)
		default:
			return
		}
	}
}

func (e *Engine) handleJoin(req JoinRequest) {
	e.peers++
	e.inv.Get(req.PlayerID)
	if req.Attach != nil {
		e.joining = append(e.joining, req)
	}
	e.inputs = append(e.inputs, RecordedInput{Type: InputJoin, PlayerID: req.PlayerID})
}

func (e *Engine) handleLeave(id uint8) {
	if e.peers > 0 {
		e.peers--
	}
	e.inv.Remove(id)
	e.inputs = append(e.inputs, RecordedInput{Type: InputLeave, PlayerID: id})
	kept := e.joining[:0]
	for _, req := range e.joining {
		if req.PlayerID != id {
			kept = append(kept, req)
		}
	}
	e.joining = kept
}

func (e *Engine) handleEnvelope(env Envelope) {
	if env.Command == nil {
		return
	}
	e.actor = env.PlayerID
	res := e.disp.Dispatch(env.PlayerID, env.Command)
	e.actor = 0
	if res.Accepted {
		e.stats.accepted++
	} else {
		e.stats.rejected[res.Code]++
	}
	e.inputs = append(e.inputs, RecordedInput{
		Type:     InputCommand,
		PlayerID: env.PlayerID,
		Data:     hex.EncodeToString(protocol.Encode(env.Command)),
	})
}

// CountRateLimited records a command dropped by a transport before it
// reached the inbox. Safe for concurrent use.
func (e *Engine) CountRateLimited() { e.rateLimited.Add(1) }

func (e *Engine) emit(c protocol.Command) {
	e.out.Emit(c)
	if e.auditLogger == nil {
		return
	}
	if a, ok := auditFor(e.tick, e.actor, c); ok {
		_ = e.auditLogger.WriteAudit(a)
	}
}

func (e *Engine) step(dt float32) string {
	start := time.Now()

	e.world.UpdateCrops(dt)
	e.world.UpdateStructures(dt)
	e.players.UpdateAll(dt)

	buf := e.out.Flush(dt)
	if e.broadcaster != nil {
		e.broadcaster.Broadcast(buf)
	}
	e.attachJoined()

	digest := e.Digest()
	if e.tickLogger != nil {
		_ = e.tickLogger.WriteTick(TickLogEntry{
			Tick:         e.tick,
			DeltaTime:    dt,
			Inputs:       e.inputs,
			EmittedBytes: len(buf),
			Digest:       digest,
		})
	}
	e.inputs = nil
	e.tick++
	if e.snapSink != nil && e.cfg.SnapshotEveryTicks > 0 && e.tick%uint64(e.cfg.SnapshotEveryTicks) == 0 {
		select {
		case e.snapSink <- e.State():
		default:
		}
	}
	e.stats.lastStep = time.Since(start)
	e.publishMetrics()
	return digest
}
