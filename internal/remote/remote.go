// Package remote holds the hosted copies a workspace store synchronizes against.
// Every implementation filters by owner; callers never re-check ownership.
package remote

import (
	"context"
	"errors"
	"sort"
	"sync"

	"opsmap/internal/domain"
)

// ErrForbidden is returned when a write targets a workspace owned by someone else.
var ErrForbidden = errors.New("workspace belongs to another user")

// Store is the capability consumed by the sync engine.
type Store interface {
	LoadWorkspacesForUser(ctx context.Context, userID string) ([]domain.Workspace, error)
	UpsertWorkspace(ctx context.Context, ws domain.Workspace) error
}

func sortByCreation(list []domain.Workspace) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt < list[j].CreatedAt
		}
		return list[i].ID < list[j].ID
	})
}

// Memory is an in-process Store, used for local-only demos and tests.
type Memory struct {
	mu    sync.Mutex
	items map[string]domain.Workspace
	err   error
	loads int
}

func NewMemory(seed ...domain.Workspace) *Memory {
	m := &Memory{items: map[string]domain.Workspace{}}
	for _, ws := range seed {
		m.items[ws.ID] = ws.Clone()
	}
	return m
}

// Fail makes every following call return err until Fail(nil).
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Loads is the number of LoadWorkspacesForUser calls served.
func (m *Memory) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

func (m *Memory) LoadWorkspacesForUser(_ context.Context, userID string) ([]domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Workspace
	for _, ws := range m.items {
		if ws.OwnerUserID == userID {
			out = append(out, ws.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (m *Memory) UpsertWorkspace(_ context.Context, ws domain.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if cur, ok := m.items[ws.ID]; ok && cur.OwnerUserID != ws.OwnerUserID {
		return ErrForbidden
	}
	m.items[ws.ID] = ws.Clone()
	return nil
}

// Get returns a copy of a stored workspace.
func (m *Memory) Get(id string) (domain.Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.items[id]
	if !ok {
		return domain.Workspace{}, false
	}
	return ws.Clone(), true
}
