// Package dispatch applies player actions to the simulation state and emits
// the authoritative game commands that describe the change.
//
// Dispatch never sends anything itself. Emitted commands go to an Emitter,
// which on the server is the per-tick command list.
package dispatch

import (
	"farmdustry.io/internal/protocol"
	"farmdustry.io/internal/sim/entities"
	"farmdustry.io/internal/sim/inventory"
	"farmdustry.io/internal/sim/tuning"
	"farmdustry.io/internal/sim/world"
)

type Emitter interface {
	Emit(protocol.Command)
}

type EmitterFunc func(protocol.Command)

func (f EmitterFunc) Emit(c protocol.Command) { f(c) }

// Dispatcher is the simulation context the handlers run against. It is not
// safe for concurrent use.
type Dispatcher struct {
	World       *world.World
	Inventories *inventory.List
	Players     *entities.Players
	Drops       *entities.ItemDrops
	Rules       tuning.Rules

	PickupRadius float32

	Out Emitter
}

// Result describes what happened to one action. Rejections are not errors:
// the client is never told, the code only feeds logs and metrics.
type Result struct {
	Accepted bool
	Code     string
	Message  string
	Emitted  int
}

func ok(n int) Result { return Result{Accepted: true, Emitted: n} }

func reject(code, msg string) Result { return Result{Code: code, Message: msg} }

type handler func(d *Dispatcher, c protocol.Command) Result

var handlers = map[protocol.Kind]handler{
	protocol.KindPlantCrop:            handlePlantCrop,
	protocol.KindHarvestCrop:          handleHarvestCrop,
	protocol.KindPlaceStructure:       handlePlaceStructure,
	protocol.KindDestroyStructure:     handleDestroyStructure,
	protocol.KindDropItem:             handleDropItem,
	protocol.KindPickupItem:           handlePickupItem,
	protocol.KindUpdatePlayerLocation: handleUpdatePlayerLocation,
}

// Dispatch applies cmd on behalf of playerID. The session's player id
// replaces whatever id the payload carries.
func (d *Dispatcher) Dispatch(playerID uint8, cmd protocol.Command) Result {
	if cmd == nil {
		return reject(protocol.RejectBadRequest, "nil command")
	}
	if !cmd.Kind().IsPlayerAction() {
		return reject(protocol.RejectNotAction, cmd.Kind().String()+" is not a player action")
	}
	h, found := handlers[cmd.Kind()]
	if !found {
		return reject(protocol.RejectUnknownType, "no handler for "+cmd.Kind().String())
	}
	return h(d, protocol.WithPlayerID(cmd, playerID))
}

func (d *Dispatcher) emit(c protocol.Command) {
	if d.Out != nil {
		d.Out.Emit(c)
	}
}

func (d *Dispatcher) cellCode(y, x uint8) string {
	if d.World.OutOfBounds(int(y), int(x)) {
		return protocol.RejectOutOfBounds
	}
	return protocol.RejectOccupied
}
