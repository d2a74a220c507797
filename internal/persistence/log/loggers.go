// Package log writes the tick and audit journals as hourly zstd-compressed
// JSONL files and reads them back for replay.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"farmdustry.io/internal/sim/engine"
)

const hourLayout = "2006-01-02-15"

// journal appends one JSON value per line to <dir>/<prefix>-<UTC hour>.jsonl.zst
// and moves to a new file when the hour changes. Every line is flushed so a
// reader can follow a live run.
type journal struct {
	dir    string
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	hour string
	file *os.File
	zw   *zstd.Encoder
	bw   *bufio.Writer
}

func newJournal(dir, prefix string) *journal {
	return &journal{dir: dir, prefix: prefix, now: time.Now}
}

func (j *journal) appendJSON(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s journal: %w", j.prefix, err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if h := j.now().UTC().Format(hourLayout); h != j.hour {
		if err := j.open(h); err != nil {
			return err
		}
	}
	if _, err := j.bw.Write(line); err != nil {
		return err
	}
	return j.bw.Flush()
}

func (j *journal) open(hour string) error {
	if err := j.closeFile(); err != nil {
		return err
	}
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return err
	}
	name := filepath.Join(j.dir, j.prefix+"-"+hour+".jsonl.zst")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	// Reopening an hour appends a new zstd frame; the decoder reads them as one stream.
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	j.file, j.zw, j.bw = f, zw, bufio.NewWriterSize(zw, 64*1024)
	j.hour = hour
	return nil
}

func (j *journal) closeFile() error {
	if j.file == nil {
		return nil
	}
	err := errors.Join(j.bw.Flush(), j.zw.Close(), j.file.Close())
	j.file, j.zw, j.bw = nil, nil, nil
	j.hour = ""
	return err
}

func (j *journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeFile()
}

// TickLogger writes one JSONL entry per tick under dataDir/ticks.
type TickLogger struct{ j *journal }

func NewTickLogger(dataDir string) *TickLogger {
	return &TickLogger{j: newJournal(TickDir(dataDir), "ticks")}
}

func (l *TickLogger) WriteTick(e engine.TickLogEntry) error { return l.j.appendJSON(e) }
func (l *TickLogger) Close() error                          { return l.j.Close() }

// AuditLogger writes one JSONL entry per state change under dataDir/audit.
type AuditLogger struct{ j *journal }

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{j: newJournal(AuditDir(dataDir), "audit")}
}

func (l *AuditLogger) WriteAudit(e engine.AuditEntry) error { return l.j.appendJSON(e) }
func (l *AuditLogger) Close() error                         { return l.j.Close() }

func TickDir(dataDir string) string  { return filepath.Join(dataDir, "ticks") }
func AuditDir(dataDir string) string { return filepath.Join(dataDir, "audit") }
