// Package app wires the local database, the workspace store, the remote
// collaborator and the sync engine from an opsmap.yml configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"opsmap/internal/authn"
	"opsmap/internal/config"
	"opsmap/internal/db"
	"opsmap/internal/events"
	"opsmap/internal/logging"
	"opsmap/internal/migrate"
	"opsmap/internal/remote"
	"opsmap/internal/repo"
	"opsmap/internal/store"
	"opsmap/internal/syncer"
	opsmapsdk "opsmap/sdk/go"
)

// App is one opened local workspace directory.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Store   *store.Store
	Session *authn.State
	Remote  remote.Store
	Sync    *syncer.Engine
	Log     zerolog.Logger

	closers []func() error
}

// Options tweak Open for tests.
type Options struct {
	LogOutput io.Writer
	Now       func() time.Time
	NewID     func() string
	// Remote replaces the remote built from the config.
	Remote remote.Store
}

// OpenDB opens and migrates the SQLite database in dir.
func OpenDB(ctx context.Context, dir string) (*sql.DB, error) {
	conn, err := db.Open(db.Config{Dir: dir})
	if err != nil {
		return nil, err
	}
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Open restores the local store and builds the sync engine. The session is
// signed in as cfg.User.ID; call a.Sync.OnSessionChange to run the first cycle.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, opts.LogOutput)
	if err != nil {
		return nil, err
	}
	conn, err := OpenDB(ctx, cfg.Local.Dir)
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}
	a := &App{Config: cfg, DB: conn, Log: log}
	a.closers = append(a.closers, conn.Close)
	a.Repo = repo.Repo{DB: conn, Now: opts.Now}
	a.Events = events.Writer{DB: conn, Now: opts.Now}

	st, err := store.Open(ctx, store.Options{
		Persister: a.Repo,
		Auditor:   a.Events,
		Logger:    &a.Log,
		Now:       opts.Now,
		NewID:     opts.NewID,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = st

	a.Session = authn.Static(cfg.User.ID, TokenSource(cfg))
	a.Remote = opts.Remote
	if a.Remote == nil {
		rs, closeFn, err := NewRemote(ctx, cfg, a.Repo, a.Session)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Remote = rs
		if closeFn != nil {
			a.closers = append(a.closers, closeFn)
		}
	}
	a.Sync = syncer.New(syncer.Options{
		Store:   a.Store,
		Remote:  a.Remote,
		Session: a.Session,
		Logger:  &a.Log,
		Now:     opts.Now,
	})
	return a, nil
}

// Close releases the database and any remote connection.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// TokenSource mints short-lived tokens when a JWT secret is configured and
// otherwise hands out the static remote token.
func TokenSource(cfg *config.Config) authn.TokenFunc {
	if cfg.Auth.JWTSecret != "" {
		return authn.MintingTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}
	static := cfg.Remote.Token
	return func(context.Context, string) (string, error) {
		return static, nil
	}
}

// NewRemote builds the remote store selected by cfg.Remote.Kind. It returns a
// nil store for kind none, which leaves sync disabled.
func NewRemote(ctx context.Context, cfg *config.Config, local repo.Repo, session authn.Session) (remote.Store, func() error, error) {
	switch cfg.Remote.Kind {
	case "", config.RemoteNone:
		return nil, nil, nil
	case config.RemoteHTTP:
		client := opsmapsdk.New(cfg.Remote.URL)
		if cfg.Remote.Timeout > 0 {
			client.Timeout = cfg.Remote.Timeout
		}
		return remote.NewHTTPStore(client, session.Token), nil, nil
	case config.RemoteRedis:
		rs, err := remote.NewRedisStore(cfg.Remote.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	case config.RemoteLocal:
		if cfg.Remote.URL == "" || sameDir(cfg.Remote.URL, cfg.Local.Dir) {
			return local, nil, nil
		}
		conn, err := OpenDB(ctx, cfg.Remote.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("open remote database: %w", err)
		}
		return repo.Repo{DB: conn}, conn.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown remote kind %q", cfg.Remote.Kind)
	}
}

func sameDir(a, b string) bool {
	if b == "" {
		b = "."
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
