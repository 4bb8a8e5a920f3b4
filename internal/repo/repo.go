package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"opsmap/internal/domain"
	"opsmap/internal/remote"
)

type Repo struct {
	DB  *sql.DB
	Now func() time.Time
}

var (
	ErrNotFound  = domain.ErrNotFound
	ErrForbidden = remote.ErrForbidden
)

const stateKey = "state"

func (r Repo) now() string {
	if r.Now == nil {
		return domain.FormatTime(time.Now())
	}
	return domain.FormatTime(r.Now())
}

// Load returns the persisted local state blob, or nil when none was saved.
func (r Repo) Load(ctx context.Context) ([]byte, error) {
	var blob string
	err := r.DB.QueryRowContext(ctx, `SELECT blob FROM local_state WHERE key=?`, stateKey).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load local state: %w", err)
	}
	return []byte(blob), nil
}

// Save replaces the local state blob.
func (r Repo) Save(ctx context.Context, blob []byte) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO local_state(key,blob,updated_at) VALUES (?,?,?)
ON CONFLICT(key) DO UPDATE SET blob=excluded.blob, updated_at=excluded.updated_at`, stateKey, string(blob), r.now())
	if err != nil {
		return fmt.Errorf("save local state: %w", err)
	}
	return nil
}

func scanWorkspace(row interface{ Scan(...any) error }) (domain.Workspace, error) {
	var doc string
	var ws domain.Workspace
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return ws, ErrNotFound
		}
		return ws, err
	}
	if err := json.Unmarshal([]byte(doc), &ws); err != nil {
		return ws, fmt.Errorf("decode workspace: %w", err)
	}
	return ws, nil
}

// ListWorkspaces returns the workspaces owned by owner, oldest first.
func (r Repo) ListWorkspaces(ctx context.Context, owner string) ([]domain.Workspace, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT doc FROM workspaces WHERE owner_user_id=? ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Workspace{}
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ws)
	}
	return res, rows.Err()
}

// GetWorkspace returns a workspace owned by owner. A workspace owned by someone
// else reports ErrForbidden.
func (r Repo) GetWorkspace(ctx context.Context, owner, id string) (domain.Workspace, error) {
	ws, err := scanWorkspace(r.DB.QueryRowContext(ctx, `SELECT doc FROM workspaces WHERE id=?`, id))
	if err != nil {
		return ws, err
	}
	if ws.OwnerUserID != owner {
		return domain.Workspace{}, ErrForbidden
	}
	return ws, nil
}

// PutWorkspace stores ws for owner, creating it when new. The owner of an existing
// workspace never changes.
func (r Repo) PutWorkspace(ctx context.Context, owner string, ws domain.Workspace) (domain.Workspace, bool, error) {
	if ws.ID == "" {
		return ws, false, fmt.Errorf("%w: workspace id is required", domain.ErrInvalidInput)
	}
	ws.OwnerUserID = owner
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return ws, false, err
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT owner_user_id FROM workspaces WHERE id=?`, ws.ID).Scan(&current)
	created := err == sql.ErrNoRows
	if err != nil && !created {
		return ws, false, err
	}
	if !created && current != owner {
		return ws, false, ErrForbidden
	}
	now := r.now()
	if ws.CreatedAt == "" {
		ws.CreatedAt = now
	}
	doc, err := json.Marshal(ws)
	if err != nil {
		return ws, false, fmt.Errorf("encode workspace: %w", err)
	}
	if created {
		_, err = tx.ExecContext(ctx, `INSERT INTO workspaces(id,owner_user_id,name,doc,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
			ws.ID, owner, ws.Name, string(doc), ws.CreatedAt, now)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE workspaces SET name=?, doc=?, updated_at=? WHERE id=?`, ws.Name, string(doc), now, ws.ID)
	}
	if err != nil {
		return ws, false, err
	}
	return ws, created, tx.Commit()
}

func (r Repo) DeleteWorkspace(ctx context.Context, owner, id string) error {
	var current string
	err := r.DB.QueryRowContext(ctx, `SELECT owner_user_id FROM workspaces WHERE id=?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if current != owner {
		return ErrForbidden
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM workspaces WHERE id=? AND owner_user_id=?`, id, owner)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadWorkspacesForUser and UpsertWorkspace let a Repo act as a sync remote.
func (r Repo) LoadWorkspacesForUser(ctx context.Context, userID string) ([]domain.Workspace, error) {
	return r.ListWorkspaces(ctx, userID)
}

func (r Repo) UpsertWorkspace(ctx context.Context, ws domain.Workspace) error {
	_, _, err := r.PutWorkspace(ctx, ws.OwnerUserID, ws)
	return err
}
