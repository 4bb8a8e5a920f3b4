// Package syncer reconciles the local workspace store with the remote store of
// the signed-in user.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"opsmap/internal/authn"
	"opsmap/internal/domain"
	"opsmap/internal/metrics"
	"opsmap/internal/remote"
	"opsmap/internal/store"
)

// Result summarizes one sync cycle.
type Result struct {
	UserID         string
	Skipped        string
	Stats          Stats
	Uploaded       int
	UploadFailures int
	CreatedDefault bool
}

type Options struct {
	Store   *store.Store
	Remote  remote.Store
	Session authn.Session
	Logger  *zerolog.Logger
	Now     func() time.Time
}

// Engine runs sync cycles. Concurrent requests for the same user share one cycle.
type Engine struct {
	store   *store.Store
	remote  remote.Store
	session authn.Session
	log     zerolog.Logger
	now     func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	loadedFor string
}

func New(opts Options) *Engine {
	e := &Engine{
		store:   opts.Store,
		remote:  opts.Remote,
		session: opts.Session,
		now:     opts.Now,
	}
	if opts.Logger != nil {
		e.log = opts.Logger.With().Str("component", "sync").Logger()
	} else {
		e.log = zerolog.Nop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Enabled reports whether a remote store is configured.
func (e *Engine) Enabled() bool {
	return e.remote != nil
}

// Status returns the persisted sync metadata.
func (e *Engine) Status() store.SyncMeta {
	return e.store.SyncMeta()
}

// OnSessionChange reacts to the sign-in state. It switches the store to the
// signed-in user and runs one sync per user; calling it again for the same user
// is a no-op. Nothing happens before the session is loaded.
func (e *Engine) OnSessionChange(ctx context.Context) (Result, error) {
	if !e.session.Loaded() {
		return Result{Skipped: "session not loaded"}, nil
	}
	user := e.session.UserID()
	if e.store.CurrentUserID() != user {
		if err := e.store.SetCurrentUser(ctx, user); err != nil {
			return Result{}, err
		}
	}
	if user == "" {
		e.setLoadedFor("")
		return Result{Skipped: "signed out"}, nil
	}
	if e.loaded(user) {
		return Result{UserID: user, Skipped: "already loaded"}, nil
	}
	return e.Sync(ctx)
}

// Sync runs a cycle for the signed-in user regardless of earlier cycles.
func (e *Engine) Sync(ctx context.Context) (Result, error) {
	if !e.session.Loaded() {
		return Result{Skipped: "session not loaded"}, nil
	}
	user := e.session.UserID()
	if user == "" {
		return Result{Skipped: "signed out"}, nil
	}
	if e.remote == nil {
		return e.disabled(ctx, user)
	}
	v, err, shared := e.group.Do(user, func() (any, error) {
		return e.run(ctx, user)
	})
	if shared {
		e.log.Debug().Str("user", user).Msg("joined running sync")
	}
	res, _ := v.(Result)
	return res, err
}

// disabled keeps the store usable offline and reports the missing remote.
func (e *Engine) disabled(ctx context.Context, user string) (Result, error) {
	res := Result{UserID: user, Skipped: "remote not configured"}
	if e.store.CurrentUserID() != user {
		if err := e.store.SetCurrentUser(ctx, user); err != nil {
			return res, err
		}
	}
	if err := e.store.UpdateSyncMeta(ctx, func(m *store.SyncMeta) {
		m.Enabled = false
		m.Status = store.SyncIdle
		m.Error = ""
	}); err != nil {
		return res, err
	}
	_, created, err := e.store.EnsureDefaultWorkspace(ctx, user)
	if err != nil {
		return res, err
	}
	res.CreatedDefault = created
	e.setLoadedFor(user)
	return res, domain.ConfigurationError{Reason: "no remote store"}
}

func (e *Engine) run(ctx context.Context, user string) (Result, error) {
	start := e.now()
	res := Result{UserID: user}
	log := e.log.With().Str("user", user).Logger()

	if e.store.CurrentUserID() != user {
		if err := e.store.SetCurrentUser(ctx, user); err != nil {
			return res, err
		}
	}
	if err := e.transition(ctx, user, store.SyncSyncing, ""); err != nil {
		if errors.Is(err, store.ErrStaleIdentity) {
			return e.discard(ctx, log, res, start)
		}
		return res, err
	}

	remoteWs, err := e.remote.LoadWorkspacesForUser(ctx, user)
	if e.stale(user) {
		return e.discard(ctx, log, res, start)
	}
	if err != nil {
		syncErr := &domain.SyncError{Op: "load", Err: err}
		log.Warn().Err(err).Msg("load remote workspaces failed")
		e.fail(ctx, user, syncErr, start)
		// a brand-new user still gets somewhere to work while offline
		if _, created, ensureErr := e.store.EnsureCurrentDefaultWorkspace(ctx, user); ensureErr == nil {
			res.CreatedDefault = created
		}
		return res, syncErr
	}

	var uploads []domain.Workspace
	err = e.store.Reconcile(ctx, user, func(local []domain.Workspace, deleted []domain.Tombstone) ([]domain.Workspace, error) {
		merged, up, stats := MergeAll(local, deleted, remoteWs, user)
		uploads, res.Stats = up, stats
		return merged, nil
	})
	if errors.Is(err, store.ErrStaleIdentity) {
		return e.discard(ctx, log, res, start)
	}
	if err != nil {
		syncErr := &domain.SyncError{Op: "merge", Err: err}
		e.fail(ctx, user, syncErr, start)
		return res, syncErr
	}

	ws, created, err := e.store.EnsureCurrentDefaultWorkspace(ctx, user)
	if errors.Is(err, store.ErrStaleIdentity) {
		return e.discard(ctx, log, res, start)
	}
	if err != nil {
		syncErr := &domain.SyncError{Op: "default workspace", Err: err}
		e.fail(ctx, user, syncErr, start)
		return res, syncErr
	}
	if created {
		res.CreatedDefault = true
		uploads = append(uploads, ws)
	}

	var uploadErr error
	for _, ws := range uploads {
		if e.stale(user) {
			return e.discard(ctx, log, res, start)
		}
		if err := e.remote.UpsertWorkspace(ctx, ws); err != nil {
			metrics.RecordUpload("error")
			log.Warn().Err(err).Str("workspace", ws.ID).Msg("upload failed")
			res.UploadFailures++
			if uploadErr == nil {
				uploadErr = &domain.SyncError{Op: "upload " + ws.ID, Err: err}
			}
			continue
		}
		metrics.RecordUpload("ok")
		res.Uploaded++
	}
	if e.stale(user) {
		return e.discard(ctx, log, res, start)
	}
	e.setLoadedFor(user)
	if uploadErr != nil {
		e.fail(ctx, user, uploadErr, start)
		return res, uploadErr
	}

	err = e.store.UpdateSyncMetaFor(ctx, user, func(m *store.SyncMeta) {
		m.Enabled = true
		m.Status = store.SyncIdle
		m.Error = ""
		m.LastSyncedAt = domain.FormatTime(e.now())
		m.LastUserID = user
		m.CycleUserID = ""
	})
	if errors.Is(err, store.ErrStaleIdentity) {
		return e.discard(ctx, log, res, start)
	}
	if err != nil {
		return res, err
	}
	metrics.RecordSync("ok", e.now().Sub(start))
	log.Info().
		Int("adopted", res.Stats.Adopted).
		Int("merged", res.Stats.Merged).
		Int("local_only", res.Stats.LocalOnly).
		Int("uploaded", res.Uploaded).
		Dur("took", e.now().Sub(start)).
		Msg("sync complete")
	return res, nil
}

func (e *Engine) stale(user string) bool {
	return e.store.CurrentUserID() != user
}

// discard drops the cycle of a user who is no longer signed in. The status it
// set goes back to idle unless a newer cycle has taken it over.
func (e *Engine) discard(ctx context.Context, log zerolog.Logger, res Result, start time.Time) (Result, error) {
	log.Info().Msg("identity changed during sync; result discarded")
	metrics.RecordSync("stale", e.now().Sub(start))
	if err := e.store.UpdateSyncMeta(ctx, func(m *store.SyncMeta) {
		if m.Status == store.SyncSyncing && m.CycleUserID == res.UserID {
			m.Status = store.SyncIdle
			m.Error = ""
			m.CycleUserID = ""
		}
	}); err != nil {
		log.Error().Err(err).Msg("reset sync status")
	}
	res.Skipped = "identity changed"
	return res, nil
}

// transition moves the status along idle→syncing→idle|error and error→syncing.
// Only the current user's cycle may write it.
func (e *Engine) transition(ctx context.Context, user string, to store.SyncStatus, msg string) error {
	return e.store.UpdateSyncMetaFor(ctx, user, func(m *store.SyncMeta) {
		if to == store.SyncSyncing && m.Status == store.SyncSyncing && m.CycleUserID != user {
			m.CycleUserID = user
			return
		}
		if !validTransition(m.Status, to) {
			return
		}
		m.Enabled = true
		m.Status = to
		m.Error = msg
		m.CycleUserID = ""
		if to == store.SyncSyncing {
			m.CycleUserID = user
		}
	})
}

func validTransition(from, to store.SyncStatus) bool {
	switch from {
	case store.SyncIdle, "":
		return to == store.SyncSyncing
	case store.SyncSyncing:
		return to == store.SyncIdle || to == store.SyncError
	case store.SyncError:
		return to == store.SyncSyncing
	}
	return false
}

func (e *Engine) fail(ctx context.Context, user string, err error, start time.Time) {
	metrics.RecordSync("error", e.now().Sub(start))
	if updErr := e.transition(ctx, user, store.SyncError, err.Error()); updErr != nil && !errors.Is(updErr, store.ErrStaleIdentity) {
		e.log.Error().Err(updErr).Msg("record sync error")
	}
}

func (e *Engine) loaded(user string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadedFor == user
}

func (e *Engine) setLoadedFor(user string) {
	e.mu.Lock()
	e.loadedFor = user
	e.mu.Unlock()
}
