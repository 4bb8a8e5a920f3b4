package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"opsmap/internal/domain"
)

func workspace(id, owner, created string) domain.Workspace {
	return domain.Workspace{
		ID:          id,
		OwnerUserID: owner,
		Name:        id,
		CreatedAt:   created,
		Company:     domain.Company{ID: "c-" + id, Name: id},
		Functions:   []domain.Function{{ID: "f-" + id, CompanyID: "c-" + id, Name: "Sales", Status: domain.StatusDraft}},
	}
}

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestRedisStoreFiltersByOwner(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertWorkspace(ctx, workspace("w2", "alice", "2024-01-02T00:00:00Z")))
	require.NoError(t, store.UpsertWorkspace(ctx, workspace("w1", "alice", "2024-01-01T00:00:00Z")))
	require.NoError(t, store.UpsertWorkspace(ctx, workspace("w3", "bob", "2024-01-01T00:00:00Z")))

	got, err := store.LoadWorkspacesForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "w1", got[0].ID)
	require.Equal(t, "w2", got[1].ID)
	require.Equal(t, "Sales", got[0].Functions[0].Name)

	none, err := store.LoadWorkspacesForUser(ctx, "carol")
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRedisStoreRejectsForeignWrites(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertWorkspace(ctx, workspace("w1", "alice", "2024-01-01T00:00:00Z")))

	err := store.UpsertWorkspace(ctx, workspace("w1", "bob", "2024-01-01T00:00:00Z"))
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, store.DeleteWorkspace(ctx, "bob", "w1"), ErrForbidden)

	require.NoError(t, store.DeleteWorkspace(ctx, "alice", "w1"))
	got, err := store.LoadWorkspacesForUser(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, got)
	require.ErrorIs(t, store.DeleteWorkspace(ctx, "alice", "w1"), domain.ErrNotFound)
}

func TestRedisStoreUnreachable(t *testing.T) {
	store, s := setupTestRedis(t)
	s.Close()
	_, err := store.LoadWorkspacesForUser(context.Background(), "alice")
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	m := NewMemory(workspace("w1", "alice", "2024-01-01T00:00:00Z"))
	ctx := context.Background()
	got, err := m.LoadWorkspacesForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].Name = "changed"
	stored, _ := m.Get("w1")
	require.Equal(t, "w1", stored.Name)

	require.ErrorIs(t, m.UpsertWorkspace(ctx, workspace("w1", "bob", "")), ErrForbidden)

	boom := errors.New("offline")
	m.Fail(boom)
	_, err = m.LoadWorkspacesForUser(ctx, "alice")
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, m.Loads())
}

func TestRedisStoreServesHostedAPI(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	empty, err := store.ListWorkspaces(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	saved, created, err := store.PutWorkspace(ctx, "alice", workspace("w1", "", "2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "alice", saved.OwnerUserID)

	_, created, err = store.PutWorkspace(ctx, "alice", workspace("w1", "", "2024-01-01T00:00:00Z"))
	require.NoError(t, err)
	require.False(t, created)

	got, err := store.GetWorkspace(ctx, "alice", "w1")
	require.NoError(t, err)
	require.Equal(t, "Sales", got.Functions[0].Name)

	_, err = store.GetWorkspace(ctx, "bob", "w1")
	require.ErrorIs(t, err, ErrForbidden)
	_, _, err = store.PutWorkspace(ctx, "bob", workspace("w1", "", ""))
	require.ErrorIs(t, err, ErrForbidden)
	_, err = store.GetWorkspace(ctx, "alice", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
