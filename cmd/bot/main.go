package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/catalogs"
	"farmdustry.io/internal/sim/entities"
	"farmdustry.io/internal/sim/mirror"
	"farmdustry.io/internal/sim/tuning"
	"farmdustry.io/internal/transport/tcp"
	"farmdustry.io/internal/transport/ws"
)

type link interface {
	SendCommand(cmd protocol.Command) error
	Run(ctx context.Context, fn func(protocol.Command) error) error
	Close() error
}

func main() {
	var (
		addr       = flag.String("addr", "localhost:25566", "tcp server address")
		url        = flag.String("ws", "", "ws url, e.g. ws://localhost:8080/v1/ws (overrides -addr)")
		tuningPath = flag.String("tuning", "", "tuning.yaml matching the server (default: built-in defaults)")
		every      = flag.Int("every", 5, "act once every N ticks")
		seed       = flag.Int64("seed", 1, "rng seed")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	tune := tuning.Defaults()
	if *tuningPath != "" {
		t, err := tuning.Load(*tuningPath)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = t
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		conn link
		err  error
	)
	if *url != "" {
		conn, err = ws.Dial(ctx, *url)
	} else {
		conn, err = tcp.Dial(ctx, *addr)
	}
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	b := &bot{
		m:     mirror.New(tune, catalogs.Default()),
		rng:   rand.New(rand.NewSource(*seed)),
		send:  conn.SendCommand,
		every: uint64(max(*every, 1)),
		log:   logger,
	}
	err = conn.Run(ctx, b.handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("disconnected: %v", err)
	}
	logger.Printf("ticks=%d elapsed=%.1fs crops=%d drops=%d", b.m.Ticks(), b.m.Elapsed(), len(b.m.World.Crops()), b.m.Drops.Len())
}

type bot struct {
	m     *mirror.Mirror
	rng   *rand.Rand
	send  func(protocol.Command) error
	every uint64
	log   *log.Logger
}

func (b *bot) handle(cmd protocol.Command) error {
	if err := b.m.Apply(cmd); err != nil {
		if errors.Is(err, mirror.ErrDiverged) {
			b.log.Printf("%v", err)
			return nil
		}
		return err
	}
	switch v := cmd.(type) {
	case protocol.SetPlayerID:
		b.log.Printf("assigned player id %d", v.PlayerID)
	case protocol.Tick:
		if b.m.Ticks()%b.every == 0 {
			return b.act()
		}
	}
	return nil
}

// act harvests a ripe crop if there is one, otherwise plants, drops or walks.
func (b *bot) act() error {
	id, ok := b.m.PlayerID()
	if !ok {
		return nil
	}
	for _, c := range b.m.World.Crops() {
		if c.Crop.Growth >= 1 {
			return b.send(protocol.HarvestCrop{PlayerID: id, Y: c.Y, X: c.X})
		}
	}
	size := b.m.World.Size()
	y, x := uint8(b.rng.Intn(size)), uint8(b.rng.Intn(size))
	switch {
	case b.m.Inventory.CountItem(catalogs.ItemCarrotSeed) > 0:
		return b.send(protocol.PlantCrop{PlayerID: id, Y: y, X: x, Crop: catalogs.CropCarrot})
	case b.m.Drops.Len() > 0:
		var target protocol.PickupItem
		b.m.Drops.Each(func(_ int32, d entities.ItemDrop) {
			target = protocol.PickupItem{PlayerID: id, Y: d.Y, X: d.X}
		})
		return b.send(target)
	default:
		vy := float32(b.rng.Intn(3) - 1)
		vx := float32(b.rng.Intn(3) - 1)
		return b.send(protocol.UpdatePlayerLocation{PlayerID: id, Y: float32(y), X: float32(x), YVelocity: vy, XVelocity: vx})
	}
}
