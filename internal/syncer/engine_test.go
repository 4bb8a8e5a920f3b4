package syncer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"opsmap/internal/authn"
	"opsmap/internal/domain"
	"opsmap/internal/remote"
	"opsmap/internal/store"
)

func newStore() *store.Store {
	n := 0
	return store.New(store.Options{
		Now: func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		},
	})
}

func remoteWorkspace(id, owner string) domain.Workspace {
	w := domain.Workspace{
		ID:          id,
		OwnerUserID: owner,
		Name:        "Remote " + id,
		CreatedAt:   "2023-06-01T00:00:00Z",
		UpdatedAt:   "2023-06-01T00:00:00Z",
		Company:     domain.Company{ID: "c-" + id, Name: "Acme", CreatedAt: "2023-06-01T00:00:00Z", UpdatedAt: "2023-06-01T00:00:00Z"},
	}
	w.Functions = []domain.Function{{ID: "f-" + id, CompanyID: w.Company.ID, Name: "Sales", Status: domain.StatusActive, UpdatedAt: "2023-06-01T00:00:00Z"}}
	return w
}

func TestSyncAdoptsRemoteOnce(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	rem := remote.NewMemory(remoteWorkspace("rw1", "alice"), remoteWorkspace("rw2", "bob"))
	eng := New(Options{Store: st, Remote: rem, Session: authn.Static("alice", nil)})

	res, err := eng.OnSessionChange(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Stats.Adopted)
	require.False(t, res.CreatedDefault)
	require.Equal(t, "alice", st.CurrentUserID())
	require.Equal(t, "rw1", st.ActiveWorkspaceID())
	require.Len(t, st.GetUserWorkspaces("alice"), 1)

	meta := eng.Status()
	require.Equal(t, store.SyncIdle, meta.Status)
	require.True(t, meta.Enabled)
	require.NotEmpty(t, meta.LastSyncedAt)

	res, err = eng.OnSessionChange(ctx)
	require.NoError(t, err)
	require.Equal(t, "already loaded", res.Skipped)
	require.Equal(t, 1, rem.Loads())
}

func TestSyncWaitsForSession(t *testing.T) {
	rem := remote.NewMemory()
	eng := New(Options{Store: newStore(), Remote: rem, Session: authn.NewState(nil)})

	res, err := eng.OnSessionChange(context.Background())
	require.NoError(t, err)
	require.Equal(t, "session not loaded", res.Skipped)
	require.Zero(t, rem.Loads())
}

func TestSyncWithoutRemote(t *testing.T) {
	st := newStore()
	eng := New(Options{Store: st, Session: authn.Static("alice", nil)})
	require.False(t, eng.Enabled())

	_, err := eng.Sync(context.Background())
	require.ErrorIs(t, err, domain.ErrNotConfigured)
	require.False(t, eng.Status().Enabled)

	owned := st.GetUserWorkspaces("alice")
	require.Len(t, owned, 1)
	require.Equal(t, store.DefaultWorkspaceName, owned[0].Name)
}

func TestSyncNewUserGetsUploadedDefault(t *testing.T) {
	st := newStore()
	rem := remote.NewMemory()
	eng := New(Options{Store: st, Remote: rem, Session: authn.Static("alice", nil)})

	res, err := eng.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, res.CreatedDefault)
	require.Equal(t, 1, res.Uploaded)

	id := st.ActiveWorkspaceID()
	uploaded, ok := rem.Get(id)
	require.True(t, ok)
	require.Equal(t, "alice", uploaded.OwnerUserID)
}

func TestSyncFailureKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	require.NoError(t, st.SetCurrentUser(ctx, "alice"))
	_, err := st.CreateWorkspaceForUser(ctx, "Local", "alice")
	require.NoError(t, err)
	_, err = st.AddFunction(ctx, store.FunctionInput{Name: "Finance"})
	require.NoError(t, err)
	before := st.GetUserWorkspaces("alice")

	rem := remote.NewMemory()
	rem.Fail(errors.New("offline"))
	eng := New(Options{Store: st, Remote: rem, Session: authn.Static("alice", nil)})

	_, err = eng.Sync(ctx)
	require.ErrorIs(t, err, domain.ErrSync)
	meta := eng.Status()
	require.Equal(t, store.SyncError, meta.Status)
	require.Contains(t, meta.Error, "offline")
	require.Equal(t, before, st.GetUserWorkspaces("alice"))

	rem.Fail(nil)
	res, err := eng.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, store.SyncIdle, eng.Status().Status)
	require.Empty(t, eng.Status().Error)
	require.Equal(t, 1, res.Stats.LocalOnly)

	uploaded, ok := rem.Get(before[0].ID)
	require.True(t, ok)
	require.Len(t, uploaded.Functions, 1)
}

func TestSyncUploadsLocalEdits(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	rem := remote.NewMemory(remoteWorkspace("rw1", "alice"))
	eng := New(Options{Store: st, Remote: rem, Session: authn.Static("alice", nil)})

	res, err := eng.Sync(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Uploaded)

	require.NoError(t, st.RenameWorkspace(ctx, "Renamed"))
	res, err = eng.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Uploaded)

	uploaded, _ := rem.Get("rw1")
	require.Equal(t, "Renamed", uploaded.Name)

	res, err = eng.Sync(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Uploaded)
}

func TestSyncSkipsLocallyDeletedWorkspace(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	rem := remote.NewMemory(remoteWorkspace("rw1", "alice"), remoteWorkspace("rw2", "alice"))
	eng := New(Options{Store: st, Remote: rem, Session: authn.Static("alice", nil)})

	_, err := eng.Sync(ctx)
	require.NoError(t, err)
	require.NoError(t, st.DeleteWorkspace(ctx, "rw1"))

	res, err := eng.Sync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Stats.Skipped)
	_, err = st.Workspace("rw1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// gatedRemote blocks loads for one user until released, then fails them with err when set.
type gatedRemote struct {
	*remote.Memory
	user    string
	err     error
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRemote) LoadWorkspacesForUser(ctx context.Context, userID string) ([]domain.Workspace, error) {
	if userID == g.user {
		close(g.entered)
		<-g.release
		if g.err != nil {
			return nil, g.err
		}
	}
	return g.Memory.LoadWorkspacesForUser(ctx, userID)
}

func TestSyncDiscardsResultAfterIdentityChange(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	sess := authn.Static("alice", nil)
	rem := &gatedRemote{
		Memory:  remote.NewMemory(remoteWorkspace("rw1", "alice")),
		user:    "alice",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	eng := New(Options{Store: st, Remote: rem, Session: sess})

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := eng.Sync(ctx)
		done <- outcome{res, err}
	}()

	<-rem.entered
	sess.SignIn("bob")
	require.NoError(t, st.SetCurrentUser(ctx, "bob"))
	close(rem.release)

	out := <-done
	require.NoError(t, out.err)
	require.Equal(t, "identity changed", out.res.Skipped)
	require.Empty(t, st.GetUserWorkspaces("alice"))
	require.Equal(t, "bob", st.CurrentUserID())
	meta := eng.Status()
	require.Equal(t, store.SyncIdle, meta.Status)
	require.Empty(t, meta.Error)
	require.Empty(t, meta.CycleUserID)
}

func TestSyncFailedLoadAfterIdentityChangeLeavesNewUserAlone(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	require.NoError(t, st.SetCurrentUser(ctx, "bob"))
	bobWs, err := st.CreateWorkspaceForUser(ctx, "Bob", "bob")
	require.NoError(t, err)

	sess := authn.Static("alice", nil)
	rem := &gatedRemote{
		Memory:  remote.NewMemory(),
		user:    "alice",
		err:     errors.New("offline"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	eng := New(Options{Store: st, Remote: rem, Session: sess})

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := eng.Sync(ctx)
		done <- outcome{res, err}
	}()

	<-rem.entered
	sess.SignIn("bob")
	require.NoError(t, st.SetCurrentUser(ctx, "bob"))
	close(rem.release)

	out := <-done
	require.NoError(t, out.err)
	require.Equal(t, "identity changed", out.res.Skipped)
	require.False(t, out.res.CreatedDefault)
	require.Empty(t, st.GetUserWorkspaces("alice"))

	active, ok := st.ActiveWorkspace()
	require.True(t, ok)
	require.Equal(t, bobWs.ID, active.ID)
	require.Equal(t, "bob", active.OwnerUserID)

	meta := eng.Status()
	require.Equal(t, store.SyncIdle, meta.Status)
	require.Empty(t, meta.Error)
}

func TestCycleForCurrentUserOnly(t *testing.T) {
	ctx := context.Background()
	st := newStore()
	require.NoError(t, st.SetCurrentUser(ctx, "bob"))

	_, _, err := st.EnsureCurrentDefaultWorkspace(ctx, "alice")
	require.ErrorIs(t, err, store.ErrStaleIdentity)
	require.Empty(t, st.GetUserWorkspaces("alice"))

	err = st.UpdateSyncMetaFor(ctx, "alice", func(m *store.SyncMeta) { m.Error = "boom" })
	require.ErrorIs(t, err, store.ErrStaleIdentity)
	require.Empty(t, st.SyncMeta().Error)

	ws, created, err := st.EnsureCurrentDefaultWorkspace(ctx, "bob")
	require.NoError(t, err)
	require.True(t, created)
	version := st.Snapshot().Version
	again, created, err := st.EnsureCurrentDefaultWorkspace(ctx, "bob")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, ws.ID, again.ID)
	require.Equal(t, version, st.Snapshot().Version)
}

func TestValidTransition(t *testing.T) {
	require.True(t, validTransition(store.SyncIdle, store.SyncSyncing))
	require.True(t, validTransition(store.SyncSyncing, store.SyncError))
	require.True(t, validTransition(store.SyncError, store.SyncSyncing))
	require.False(t, validTransition(store.SyncIdle, store.SyncError))
	require.False(t, validTransition(store.SyncError, store.SyncIdle))
}
