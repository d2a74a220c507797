package engine

import "farmdustry.io/internal/protocol"

// Envelope is one decoded client command tagged with its session.
type Envelope struct {
	PlayerID  uint8
	SessionID string
	Command   protocol.Command
}

type JoinRequest struct {
	PlayerID  uint8
	SessionID string
	Remote    string

	// Attach, if set, is called from the loop at the end of the first tick
	// after the join with the world encoded as records. The session must not
	// receive broadcasts before that burst.
	Attach func(burst []byte)
}

// Broadcaster receives each tick's buffer in a single call.
type Broadcaster interface {
	Broadcast(b []byte)
}

type BroadcasterFunc func([]byte)

func (f BroadcasterFunc) Broadcast(b []byte) { f(b) }

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// Input kinds recorded in the tick log.
const (
	InputJoin    = "JOIN"
	InputLeave   = "LEAVE"
	InputCommand = "CMD"
)

// RecordedInput is one accepted input in arrival order. Data holds the
// command record hex-encoded.
type RecordedInput struct {
	Type     string `json:"type"`
	PlayerID uint8  `json:"player_id"`
	Data     string `json:"data,omitempty"`
}

type TickLogEntry struct {
	Tick         uint64          `json:"tick"`
	DeltaTime    float32         `json:"dt"`
	Inputs       []RecordedInput `json:"inputs,omitempty"`
	EmittedBytes int             `json:"emitted_bytes"`
	Digest       string          `json:"digest"`
}

// AuditEntry records one authoritative state change.
type AuditEntry struct {
	Tick   uint64     `json:"tick"`
	Actor  uint8      `json:"actor"`
	Action string     `json:"action"`
	Pos    [2]float32 `json:"pos"`
	Type   uint8      `json:"type,omitempty"`
	Amount int32      `json:"amount,omitempty"`
	DropID int32      `json:"drop_id,omitempty"`
}
