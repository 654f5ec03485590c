package indexdb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
)

type SyncRow struct {
	Tick    uint64
	Kind    string
	Pos     [3]int
	Changed []string
	Removed bool
	Record  string
}

type SnapshotRow struct {
	Tick     uint64
	Path     string
	Chunks   int
	Machines int
	Levers   int
}

// SyncHistory returns the newest sync rows for one machine position,
// newest first.
func (s *SQLiteIndex) SyncHistory(ctx context.Context, pos [3]int, limit int) ([]SyncRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, kind, changed, removed, record_json FROM sync_events
		 WHERE x=? AND y=? AND z=? ORDER BY tick DESC, seq DESC LIMIT ?`,
		pos[0], pos[1], pos[2], limit)
	if err != nil {
		return nil, eris.Wrap(err, "query sync history")
	}
	defer rows.Close()

	var out []SyncRow
	for rows.Next() {
		var (
			r       = SyncRow{Pos: pos}
			tick    int64
			changed string
			removed int
			rec     sql.NullString
		)
		if err := rows.Scan(&tick, &r.Kind, &changed, &removed, &rec); err != nil {
			return nil, eris.Wrap(err, "scan sync row")
		}
		r.Tick = uint64(tick)
		if changed != "" {
			r.Changed = strings.Split(changed, ",")
		}
		r.Removed = removed != 0
		r.Record = rec.String
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "iterate sync rows")
}

// LastTick is the highest indexed tick, or false when nothing is indexed.
func (s *SQLiteIndex) LastTick(ctx context.Context) (uint64, bool, error) {
	var tick sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(tick) FROM ticks`).Scan(&tick); err != nil {
		return 0, false, eris.Wrap(err, "query last tick")
	}
	if !tick.Valid {
		return 0, false, nil
	}
	return uint64(tick.Int64), true, nil
}

// RejectedCommands counts rejected commands per error code.
func (s *SQLiteIndex) RejectedCommands(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(code,''), COUNT(*) FROM commands WHERE accepted=0 GROUP BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "query rejected commands")
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, eris.Wrap(err, "scan rejected row")
		}
		out[code] = n
	}
	return out, eris.Wrap(rows.Err(), "iterate rejected rows")
}

func (s *SQLiteIndex) Snapshots(ctx context.Context) ([]SnapshotRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, path, chunks, machines, levers FROM snapshots ORDER BY tick`)
	if err != nil {
		return nil, eris.Wrap(err, "query snapshots")
	}
	defer rows.Close()
	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var tick int64
		if err := rows.Scan(&tick, &r.Path, &r.Chunks, &r.Machines, &r.Levers); err != nil {
			return nil, eris.Wrap(err, "scan snapshot row")
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "iterate snapshots")
}
