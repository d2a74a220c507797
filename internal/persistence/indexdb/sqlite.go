// Package indexdb keeps a queryable SQLite index of the tick and audit
// journals. The JSONL files stay the source of truth; rows are written by a
// background goroutine and dropped if it falls behind.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"farmdustry.io/internal/sim/catalogs"
	"farmdustry.io/internal/sim/engine"
	"farmdustry.io/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTick    atomic.Uint64
	dropAudit   atomic.Uint64
	writeErrors atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
)

type req struct {
	kind  reqKind
	tick  engine.TickLogEntry
	audit engine.AuditEntry
}

// Stats describes the writer queue.
type Stats struct {
	QueueDepth     int    `json:"queue_depth"`
	QueueCapacity  int    `json:"queue_capacity"`
	DropTickTotal  uint64 `json:"drop_tick_total"`
	DropAuditTotal uint64 `json:"drop_audit_total"`
	WriteErrors    uint64 `json:"write_errors"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, queue)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick INTEGER PRIMARY KEY,
			dt REAL NOT NULL,
			digest TEXT NOT NULL,
			inputs INTEGER NOT NULL,
			emitted_bytes INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS inputs (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			player_id INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_inputs_player_tick ON inputs(player_id, tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			actor INTEGER NOT NULL,
			action TEXT NOT NULL,
			y REAL NOT NULL,
			x REAL NOT NULL,
			type INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			drop_id INTEGER NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor_tick ON audits(actor, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains the queue and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteTick(entry engine.TickLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
	default:
		s.dropTick.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry engine.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropTickTotal:  s.dropTick.Load(),
		DropAuditTotal: s.dropAudit.Load(),
		WriteErrors:    s.writeErrors.Load(),
	}
}

// UpsertCatalogs stores the catalog and the tuning actually applied, so a
// database can be read without the config files that produced it.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, err := json.Marshal(cats.Items); err == nil {
		rows = append(rows, kv{"items", cats.Digest, b})
	}
	if b, err := json.Marshal(cats.Crops); err == nil {
		rows = append(rows, kv{"crops", cats.Digest, b})
	}
	if b, err := json.Marshal(cats.Structures); err == nil {
		rows = append(rows, kv{"structures", cats.Digest, b})
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(b)
		rows = append(rows, kv{"tuning", hex.EncodeToString(sum[:]), b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

const (
	batchOps  = 2000
	batchWait = 2 * time.Second

	sqlInsertTick  = `INSERT OR REPLACE INTO ticks(tick,dt,digest,inputs,emitted_bytes) VALUES(?,?,?,?,?)`
	sqlInsertInput = `INSERT OR REPLACE INTO inputs(tick,seq,type,player_id,data) VALUES(?,?,?,?,?)`
	sqlInsertAudit = `INSERT OR REPLACE INTO audits(tick,seq,actor,action,y,x,type,amount,drop_id) VALUES(?,?,?,?,?,?,?,?,?)`
)

// batch is the writer's open transaction. Statements prepared on it are
// closed when it commits or rolls back.
type batch struct {
	tx                 *sql.Tx
	tick, input, audit *sql.Stmt
	ops                int
	started            time.Time
}

func (s *SQLiteIndex) begin() (*batch, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	b := &batch{tx: tx, started: time.Now()}
	for _, p := range []struct {
		dst **sql.Stmt
		q   string
	}{{&b.tick, sqlInsertTick}, {&b.input, sqlInsertInput}, {&b.audit, sqlInsertAudit}} {
		st, err := tx.Prepare(p.q)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		*p.dst = st
	}
	return b, nil
}

func (b *batch) addTick(t engine.TickLogEntry) error {
	if _, err := b.tick.Exec(int64(t.Tick), t.DeltaTime, t.Digest, len(t.Inputs), t.EmittedBytes); err != nil {
		return err
	}
	for i, in := range t.Inputs {
		if _, err := b.input.Exec(int64(t.Tick), i, in.Type, int(in.PlayerID), in.Data); err != nil {
			return err
		}
	}
	b.ops += 1 + len(t.Inputs)
	return nil
}

func (b *batch) addAudit(a engine.AuditEntry, seq int) error {
	_, err := b.audit.Exec(int64(a.Tick), seq, int(a.Actor), a.Action,
		a.Pos[0], a.Pos[1], int(a.Type), a.Amount, a.DropID)
	if err == nil {
		b.ops++
	}
	return err
}

func (b *batch) due() bool {
	return b.ops >= batchOps || time.Since(b.started) >= batchWait
}

// loop owns the database connection. A failed row rolls back the whole open
// batch; the journals still hold the data.
func (s *SQLiteIndex) loop() {
	var (
		b         *batch
		auditTick uint64
		auditSeq  int
	)
	for r := range s.ch {
		if b == nil {
			var err error
			if b, err = s.begin(); err != nil {
				s.writeErrors.Add(1)
				time.Sleep(50 * time.Millisecond)
				continue
			}
		}

		var err error
		switch r.kind {
		case reqTick:
			err = b.addTick(r.tick)
		case reqAudit:
			if r.audit.Tick != auditTick {
				auditTick, auditSeq = r.audit.Tick, 0
			}
			err = b.addAudit(r.audit, auditSeq)
			auditSeq++
		}
		if err != nil {
			_ = b.tx.Rollback()
			b = nil
			s.writeErrors.Add(1)
			continue
		}
		if b.due() {
			if err := b.tx.Commit(); err != nil {
				s.writeErrors.Add(1)
			}
			b = nil
		}
	}
	if b != nil {
		if err := b.tx.Commit(); err != nil {
			s.writeErrors.Add(1)
		}
	}
}
