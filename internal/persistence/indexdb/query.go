package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"farmdustry.io/internal/sim/engine"
	"farmdustry.io/internal/sim/tuning"
)

// TickDigest returns the digest indexed for tick.
func (s *SQLiteIndex) TickDigest(ctx context.Context, tick uint64) (string, bool, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM ticks WHERE tick = ?`, int64(tick)).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}

// AuditByActor returns the newest entries for one player, newest first.
func (s *SQLiteIndex) AuditByActor(ctx context.Context, actor uint8, limit int) ([]engine.AuditEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, actor, action, y, x, type, amount, drop_id FROM audits
		 WHERE actor = ? ORDER BY tick DESC, seq DESC LIMIT ?`, int(actor), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.AuditEntry
	for rows.Next() {
		var (
			a           engine.AuditEntry
			tick        int64
			actorID, ty int
		)
		if err := rows.Scan(&tick, &actorID, &a.Action, &a.Pos[0], &a.Pos[1], &ty, &a.Amount, &a.DropID); err != nil {
			return nil, err
		}
		a.Tick, a.Actor, a.Type = uint64(tick), uint8(actorID), uint8(ty)
		out = append(out, a)
	}
	return out, rows.Err()
}

// LastTick reports the highest indexed tick.
func (s *SQLiteIndex) LastTick(ctx context.Context) (uint64, bool, error) {
	var t sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(tick) FROM ticks`).Scan(&t); err != nil {
		return 0, false, err
	}
	if !t.Valid {
		return 0, false, nil
	}
	return uint64(t.Int64), true, nil
}

// StoredTuning returns the tuning recorded by UpsertCatalogs.
func (s *SQLiteIndex) StoredTuning(ctx context.Context) (tuning.Tuning, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT json FROM catalogs WHERE name = 'tuning'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return tuning.Tuning{}, false, nil
	}
	if err != nil {
		return tuning.Tuning{}, false, err
	}
	var t tuning.Tuning
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return tuning.Tuning{}, false, err
	}
	return t, true, nil
}
