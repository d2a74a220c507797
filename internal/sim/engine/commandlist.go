package engine

import (
	"github.com/sasha-s/go-deadlock"

	"farmdustry.io/internal/protocol"
)

// CommandList accumulates encoded game commands between ticks. Append and
// Flush are atomic with respect to each other.
type CommandList struct {
	mu      deadlock.Mutex
	buf     []byte
	records int
}

func NewCommandList() *CommandList { return &CommandList{} }

// Emit appends one encoded command.
func (l *CommandList) Emit(c protocol.Command) {
	l.mu.Lock()
	l.buf = protocol.AppendCommand(l.buf, c)
	l.records++
	l.mu.Unlock()
}

// Flush appends Tick(dt), hands back the whole buffer and starts a new one.
// The returned slice is owned by the caller.
func (l *CommandList) Flush(dt float32) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := protocol.AppendCommand(l.buf, protocol.Tick{DeltaTime: dt})
	l.buf = make([]byte, 0, cap(out))
	l.records = 0
	return out
}

// Pending reports how many commands and bytes await the next flush.
func (l *CommandList) Pending() (records, size int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records, len(l.buf)
}
