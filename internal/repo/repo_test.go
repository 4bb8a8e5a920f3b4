package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"opsmap/internal/db"
	"opsmap/internal/domain"
	"opsmap/internal/migrate"
	"opsmap/internal/repo"
)

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn, Now: func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }}
}

func TestMigrateIsRepeatable(t *testing.T) {
	r := newRepo(t)
	v, err := migrate.Migrate(context.Background(), r.DB)
	if err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	latest, err := migrate.Latest()
	if err != nil || v != latest {
		t.Fatalf("version %d, latest %d (%v)", v, latest, err)
	}
}

func TestLocalStateBlob(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	blob, err := r.Load(ctx)
	if err != nil || blob != nil {
		t.Fatalf("empty load: %q %v", blob, err)
	}
	if err := r.Save(ctx, []byte(`{"version":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := r.Save(ctx, []byte(`{"version":2}`)); err != nil {
		t.Fatalf("save again: %v", err)
	}
	blob, err = r.Load(ctx)
	if err != nil || string(blob) != `{"version":2}` {
		t.Fatalf("load: %q %v", blob, err)
	}
}

func TestWorkspacesAreOwnerScoped(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	ws := domain.Workspace{ID: "w1", Name: "Acme", CreatedAt: "2024-01-01T00:00:00Z"}
	saved, created, err := r.PutWorkspace(ctx, "alice", ws)
	if err != nil || !created || saved.OwnerUserID != "alice" {
		t.Fatalf("put: %+v %v %v", saved, created, err)
	}
	ws.Name = "Acme Corp"
	if _, created, err := r.PutWorkspace(ctx, "alice", ws); err != nil || created {
		t.Fatalf("update: %v %v", created, err)
	}
	if _, _, err := r.PutWorkspace(ctx, "bob", ws); !errors.Is(err, repo.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := r.GetWorkspace(ctx, "bob", "w1"); !errors.Is(err, repo.ErrForbidden) {
		t.Fatalf("expected forbidden get, got %v", err)
	}

	list, err := r.ListWorkspaces(ctx, "alice")
	if err != nil || len(list) != 1 || list[0].Name != "Acme Corp" {
		t.Fatalf("list: %+v %v", list, err)
	}
	other, err := r.LoadWorkspacesForUser(ctx, "bob")
	if err != nil || len(other) != 0 {
		t.Fatalf("bob list: %+v %v", other, err)
	}

	if err := r.DeleteWorkspace(ctx, "bob", "w1"); !errors.Is(err, repo.ErrForbidden) {
		t.Fatalf("expected forbidden delete, got %v", err)
	}
	if err := r.DeleteWorkspace(ctx, "alice", "w1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := r.GetWorkspace(ctx, "alice", "w1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
