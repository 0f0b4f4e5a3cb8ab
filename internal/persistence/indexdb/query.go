package indexdb

import (
	"context"
	"database/sql"
)

type StructureRow struct {
	ID     string `json:"id"`
	Tick   int64  `json:"tick"`
	CellX  int    `json:"cell_x"`
	CellZ  int    `json:"cell_z"`
	Start  [3]int `json:"start"`
	Facing string `json:"facing"`
	Pieces int    `json:"pieces"`
	Min    [3]int `json:"min"`
	Max    [3]int `json:"max"`
}

type ChunkEventRow struct {
	Tick   int64  `json:"tick"`
	Event  string `json:"event"`
	Chunk  [3]int `json:"chunk"`
	Pieces int    `json:"pieces"`
}

type AuditRow struct {
	Tick   int64  `json:"tick"`
	Seq    int    `json:"seq"`
	Action string `json:"action"`
	Pos    [3]int `json:"pos"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	Meta   int    `json:"meta"`
	Reason string `json:"reason,omitempty"`
}

func ListStructures(ctx context.Context, db *sql.DB, limit int) ([]StructureRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT id,tick,cell_x,cell_z,start_x,start_y,start_z,facing,pieces,min_x,min_y,min_z,max_x,max_y,max_z FROM structures ORDER BY cell_x, cell_z LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StructureRow
	for rows.Next() {
		var r StructureRow
		if err := rows.Scan(&r.ID, &r.Tick, &r.CellX, &r.CellZ,
			&r.Start[0], &r.Start[1], &r.Start[2], &r.Facing, &r.Pieces,
			&r.Min[0], &r.Min[1], &r.Min[2], &r.Max[0], &r.Max[1], &r.Max[2]); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListChunkEvents returns the most recent chunk events, newest first. An
// empty event matches every kind.
func ListChunkEvents(ctx context.Context, db *sql.DB, event string, limit int) ([]ChunkEventRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT tick,event,cx,cy,cz,pieces FROM chunk_events WHERE (?='' OR event=?) ORDER BY id DESC LIMIT ?`, event, event, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ChunkEventRow
	for rows.Next() {
		var r ChunkEventRow
		if err := rows.Scan(&r.Tick, &r.Event, &r.Chunk[0], &r.Chunk[1], &r.Chunk[2], &r.Pieces); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AuditsAt returns the mutation history of one block in tick order.
func AuditsAt(ctx context.Context, db *sql.DB, x, y, z int) ([]AuditRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT tick,seq,action,x,y,z,from_block,to_block,meta,COALESCE(reason,'') FROM audits WHERE x=? AND y=? AND z=? ORDER BY tick, seq`, x, y, z)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		if err := rows.Scan(&r.Tick, &r.Seq, &r.Action, &r.Pos[0], &r.Pos[1], &r.Pos[2], &r.From, &r.To, &r.Meta, &r.Reason); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
