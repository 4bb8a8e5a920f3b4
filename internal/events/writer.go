package events

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"opsmap/internal/domain"
)

// Writer appends lifecycle events to the events table.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, evt domain.Event) error {
	ts := evt.TS
	if ts == "" {
		now := w.Now
		if now == nil {
			now = time.Now
		}
		ts = domain.FormatTime(now())
	}
	payload := evt.Payload
	if payload == "" {
		payload = "{}"
	}
	_, err := w.DB.ExecContext(ctx, `INSERT INTO events(ts,type,workspace_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evt.Type, nullable(evt.WorkspaceID), evt.EntityKind, nullable(evt.EntityID), evt.ActorID, payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

type Filter struct {
	WorkspaceID string
	Type        string
	EntityKind  string
	EntityID    string
	// Cursor returns events older than this id when > 0.
	Cursor int64
	Limit  int
}

// Latest returns matching events, newest first.
func (w Writer) Latest(ctx context.Context, f Filter) ([]domain.Event, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	clauses := []string{"1=1"}
	var args []any
	if f.WorkspaceID != "" {
		clauses = append(clauses, "workspace_id=?")
		args = append(args, f.WorkspaceID)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.EntityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, f.EntityKind)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, f.EntityID)
	}
	if f.Cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Cursor)
	}
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(workspace_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE %s ORDER BY id DESC LIMIT ?`,
		strings.Join(clauses, " AND "))
	args = append(args, f.Limit)
	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.WorkspaceID, &e.EntityKind, &e.EntityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
