// Package store holds the authoritative in-memory workspace model.
//
// A Store is constructed once per session and shared by the CLI, the sync
// engine and any other consumer. Every mutation is staged on a copy of the
// active workspace, committed only if it fully succeeds, persisted as one
// blob and then broadcast to subscribers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"opsmap/internal/domain"
	"opsmap/internal/metrics"
)

// ErrStaleIdentity is returned when a sync write targets a user that is no longer current.
var ErrStaleIdentity = errors.New("sync result belongs to a previous identity")

// errNoop ends an update without committing.
var errNoop = errors.New("no change")

// Persister stores the serialized store under a single key.
// Load returns (nil, nil) when nothing was saved yet.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// Auditor records lifecycle events.
type Auditor interface {
	Append(ctx context.Context, evt domain.Event) error
}

type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncError   SyncStatus = "error"
)

type SyncMeta struct {
	Enabled      bool       `json:"enabled"`
	Status       SyncStatus `json:"status"`
	Error        string     `json:"error,omitempty"`
	LastSyncedAt string     `json:"last_synced_at,omitempty"`
	LastUserID   string     `json:"last_user_id,omitempty"`
	CycleUserID  string     `json:"cycle_user_id,omitempty"` // user whose cycle set the syncing status
}

// State is the full persisted content of the store.
type State struct {
	Workspaces        []domain.Workspace `json:"workspaces"`
	ActiveWorkspaceID string             `json:"active_workspace_id,omitempty"`
	CurrentUserID     string             `json:"current_user_id,omitempty"`
	DeletedWorkspaces []domain.Tombstone `json:"deleted_workspaces,omitempty"`
	Sync              SyncMeta           `json:"sync"`
	Version           int64              `json:"version"`
}

func (s State) clone() State {
	out := s
	out.Workspaces = domain.CloneAll(s.Workspaces)
	out.DeletedWorkspaces = append([]domain.Tombstone(nil), s.DeletedWorkspaces...)
	return out
}

type Options struct {
	Persister Persister
	Auditor   Auditor
	Logger    *zerolog.Logger
	Now       func() time.Time
	NewID     func() string
}

type Store struct {
	mu         sync.Mutex
	state      State
	persister  Persister
	auditor    Auditor
	log        zerolog.Logger
	now        func() time.Time
	newID      func() string
	lastStamp  time.Time
	persistErr error

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New builds an empty store.
func New(opts Options) *Store {
	s := &Store{
		persister: opts.Persister,
		auditor:   opts.Auditor,
		now:       opts.Now,
		newID:     opts.NewID,
		subs:      map[int]func(State){},
	}
	if opts.Logger != nil {
		s.log = *opts.Logger
	} else {
		s.log = zerolog.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.state.Sync.Status = SyncIdle
	return s
}

// Open builds a store and restores the last persisted state. A missing or
// corrupt blob yields an empty store rather than an error.
func Open(ctx context.Context, opts Options) (*Store, error) {
	s := New(opts)
	if s.persister == nil {
		return s, nil
	}
	blob, err := s.persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local state: %w", err)
	}
	if len(blob) == 0 {
		return s, nil
	}
	var st State
	if err := json.Unmarshal(blob, &st); err != nil {
		s.log.Warn().Err(err).Msg("local state is corrupt; starting empty")
		return s, nil
	}
	if st.Sync.Status == "" || st.Sync.Status == SyncSyncing {
		st.Sync.Status = SyncIdle
		st.Sync.CycleUserID = ""
	}
	s.state = st
	return s, nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// LastPersistError is the error of the most recent failed local write, if any.
func (s *Store) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// Subscribe registers fn to receive a snapshot after every committed change.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(snap State) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap.clone())
	}
}

// stamp returns a strictly increasing modification marker.
func (s *Store) stamp() string {
	t := s.now().UTC()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = t
	return domain.FormatTime(t)
}

// commitLocked bumps the version and writes the blob. Caller holds s.mu.
func (s *Store) commitLocked(ctx context.Context) State {
	s.state.Version++
	if s.persister != nil {
		blob, err := json.Marshal(s.state)
		if err == nil {
			err = s.persister.Save(ctx, blob)
		}
		s.persistErr = err
		if err != nil {
			metrics.PersistFailures.Inc()
			s.log.Warn().Err(err).Int64("version", s.state.Version).Msg("persist local state")
		}
	}
	return s.state.clone()
}

// txn is the staging area handed to a mutation.
type txn struct {
	ws     *domain.Workspace
	now    string
	actor  string
	events []domain.Event
}

func (t *txn) record(eventType string, kind domain.EntityKind, id string, payload map[string]any) {
	data, _ := json.Marshal(payload)
	t.events = append(t.events, domain.Event{
		TS:          t.now,
		Type:        eventType,
		WorkspaceID: t.ws.ID,
		EntityKind:  string(kind),
		EntityID:    id,
		ActorID:     t.actor,
		Payload:     string(data),
	})
}

func (t *txn) tombstone(kind domain.EntityKind, id string) {
	for i := range t.ws.Tombstones {
		if t.ws.Tombstones[i].Kind == kind && t.ws.Tombstones[i].ID == id {
			t.ws.Tombstones[i].DeletedAt = t.now
			return
		}
	}
	t.ws.Tombstones = append(t.ws.Tombstones, domain.Tombstone{Kind: kind, ID: id, DeletedAt: t.now})
}

// mutate stages fn on a copy of the active workspace and commits it only if fn succeeds.
func (s *Store) mutate(ctx context.Context, op string, fn func(t *txn) error) error {
	s.mu.Lock()
	idx := s.activeIndexLocked()
	if idx < 0 {
		active := s.state.ActiveWorkspaceID
		s.mu.Unlock()
		metrics.StoreMutations.WithLabelValues(op, "error").Inc()
		return domain.NotFoundError{Kind: domain.KindWorkspace, ID: active}
	}
	staged := s.state.Workspaces[idx].Clone()
	t := &txn{ws: &staged, now: s.stamp(), actor: s.state.CurrentUserID}
	if err := fn(t); err != nil {
		s.mu.Unlock()
		metrics.StoreMutations.WithLabelValues(op, "error").Inc()
		return err
	}
	s.state.Workspaces[idx] = staged
	snap := s.commitLocked(ctx)
	s.mu.Unlock()

	metrics.StoreMutations.WithLabelValues(op, "ok").Inc()
	s.audit(ctx, t.events)
	s.notify(snap)
	return nil
}

// update applies fn to the whole state (workspace-level operations).
func (s *Store) update(ctx context.Context, op string, fn func(st *State, now string) error) error {
	s.mu.Lock()
	staged := s.state.clone()
	if err := fn(&staged, s.stamp()); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errNoop) {
			return nil
		}
		metrics.StoreMutations.WithLabelValues(op, "error").Inc()
		return err
	}
	staged.Version = s.state.Version
	s.state = staged
	snap := s.commitLocked(ctx)
	s.mu.Unlock()

	metrics.StoreMutations.WithLabelValues(op, "ok").Inc()
	s.notify(snap)
	return nil
}

func (s *Store) audit(ctx context.Context, events []domain.Event) {
	if s.auditor == nil {
		return
	}
	for _, evt := range events {
		if err := s.auditor.Append(ctx, evt); err != nil {
			s.log.Warn().Err(err).Str("type", evt.Type).Str("entity_id", evt.EntityID).Msg("append audit event")
		}
	}
}

func (s *Store) activeIndexLocked() int {
	return workspaceIndex(s.state.Workspaces, s.state.ActiveWorkspaceID)
}

func workspaceIndex(list []domain.Workspace, id string) int {
	if id == "" {
		return -1
	}
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
