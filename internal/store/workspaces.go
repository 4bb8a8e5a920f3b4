package store

import (
	"context"
	"sort"
	"strings"

	"opsmap/internal/domain"
)

// DefaultWorkspaceName is used for the workspace created for a brand-new user.
const DefaultWorkspaceName = "My Workspace"

// CreateWorkspaceForUser allocates a workspace and its company with fresh IDs and makes it active.
func (s *Store) CreateWorkspaceForUser(ctx context.Context, name, userID string) (domain.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Workspace{}, domain.InvalidInput("workspace name is required")
	}
	if strings.TrimSpace(userID) == "" {
		return domain.Workspace{}, domain.InvalidInput("user id is required")
	}
	var created domain.Workspace
	err := s.update(ctx, "workspace.create", func(st *State, now string) error {
		created = s.addWorkspace(st, name, userID, now)
		return nil
	})
	if err != nil {
		return domain.Workspace{}, err
	}
	return created.Clone(), nil
}

func (s *Store) addWorkspace(st *State, name, userID, now string) domain.Workspace {
	ws := domain.Workspace{
		ID:          s.newID(),
		OwnerUserID: userID,
		Name:        name,
		CreatedAt:   now,
		UpdatedAt:   now,
		Company: domain.Company{
			ID:        s.newID(),
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	st.Workspaces = append(st.Workspaces, ws)
	st.ActiveWorkspaceID = ws.ID
	return ws
}

// SwitchWorkspace makes id active. Unknown ids are ignored.
func (s *Store) SwitchWorkspace(ctx context.Context, id string) {
	s.mu.Lock()
	exists := workspaceIndex(s.state.Workspaces, id) >= 0
	same := s.state.ActiveWorkspaceID == id
	s.mu.Unlock()
	if !exists || same {
		return
	}
	_ = s.update(ctx, "workspace.switch", func(st *State, _ string) error {
		if workspaceIndex(st.Workspaces, id) >= 0 {
			st.ActiveWorkspaceID = id
		}
		return nil
	})
}

// GetUserWorkspaces returns the workspaces owned by userID, oldest first.
func (s *Store) GetUserWorkspaces(userID string) []domain.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return userWorkspaces(s.state.Workspaces, userID)
}

func userWorkspaces(all []domain.Workspace, userID string) []domain.Workspace {
	var out []domain.Workspace
	for _, ws := range all {
		if ws.OwnerUserID == userID {
			out = append(out, ws.Clone())
		}
	}
	sortWorkspaces(out)
	return out
}

func sortWorkspaces(list []domain.Workspace) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt < list[j].CreatedAt
		}
		return list[i].ID < list[j].ID
	})
}

// VisibleWorkspaces returns the current user's workspaces.
func (s *Store) VisibleWorkspaces() []domain.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return userWorkspaces(s.state.Workspaces, s.state.CurrentUserID)
}

// CurrentUserID is the signed-in user, or "" when signed out.
func (s *Store) CurrentUserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentUserID
}

// SetCurrentUser changes the signed-in user, moving the active selection to one of
// the user's workspaces when the current one belongs to someone else.
func (s *Store) SetCurrentUser(ctx context.Context, userID string) error {
	return s.update(ctx, "session.user", func(st *State, _ string) error {
		st.CurrentUserID = userID
		selectActive(st)
		return nil
	})
}

// selectActive keeps the active workspace within the current user's set.
func selectActive(st *State) {
	if idx := workspaceIndex(st.Workspaces, st.ActiveWorkspaceID); idx >= 0 && st.Workspaces[idx].OwnerUserID == st.CurrentUserID {
		return
	}
	owned := userWorkspaces(st.Workspaces, st.CurrentUserID)
	if len(owned) == 0 {
		st.ActiveWorkspaceID = ""
		return
	}
	st.ActiveWorkspaceID = owned[0].ID
}

// ActiveWorkspace returns a copy of the active workspace.
func (s *Store) ActiveWorkspace() (domain.Workspace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.activeIndexLocked()
	if idx < 0 {
		return domain.Workspace{}, false
	}
	return s.state.Workspaces[idx].Clone(), true
}

// ActiveWorkspaceID returns the id of the active workspace, or "".
func (s *Store) ActiveWorkspaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveWorkspaceID
}

// Workspace returns a copy of the workspace with id.
func (s *Store) Workspace(id string) (domain.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := workspaceIndex(s.state.Workspaces, id)
	if idx < 0 {
		return domain.Workspace{}, domain.NotFoundError{Kind: domain.KindWorkspace, ID: id}
	}
	return s.state.Workspaces[idx].Clone(), nil
}

// RenameWorkspace changes the active workspace name.
func (s *Store) RenameWorkspace(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.InvalidInput("workspace name is required")
	}
	return s.mutate(ctx, "workspace.rename", func(t *txn) error {
		t.ws.Name = name
		t.ws.UpdatedAt = t.now
		return nil
	})
}

// CompanyPatch updates the company profile; nil fields are left alone.
type CompanyPatch struct {
	Name     *string
	Industry *string
	Size     *string
}

func (s *Store) UpdateCompany(ctx context.Context, patch CompanyPatch) (domain.Company, error) {
	var out domain.Company
	err := s.mutate(ctx, "company.update", func(t *txn) error {
		c := &t.ws.Company
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return domain.InvalidInput("company name is required")
			}
			c.Name = name
		}
		if patch.Industry != nil {
			c.Industry = *patch.Industry
		}
		if patch.Size != nil {
			c.Size = *patch.Size
		}
		c.UpdatedAt = t.now
		out = *c
		return nil
	})
	return out, err
}

// DeleteWorkspace removes a workspace and remembers the deletion so a later merge does not re-adopt it.
func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	return s.update(ctx, "workspace.delete", func(st *State, now string) error {
		idx := workspaceIndex(st.Workspaces, id)
		if idx < 0 {
			return domain.NotFoundError{Kind: domain.KindWorkspace, ID: id}
		}
		st.Workspaces = append(st.Workspaces[:idx], st.Workspaces[idx+1:]...)
		st.DeletedWorkspaces = append(st.DeletedWorkspaces, domain.Tombstone{Kind: domain.KindWorkspace, ID: id, DeletedAt: now})
		if st.ActiveWorkspaceID == id {
			st.ActiveWorkspaceID = ""
		}
		selectActive(st)
		return nil
	})
}

// EnsureDefaultWorkspace creates the default workspace for userID when the user owns none.
func (s *Store) EnsureDefaultWorkspace(ctx context.Context, userID string) (domain.Workspace, bool, error) {
	if owned := s.GetUserWorkspaces(userID); len(owned) > 0 {
		return owned[0], false, nil
	}
	ws, err := s.CreateWorkspaceForUser(ctx, DefaultWorkspaceName, userID)
	if err != nil {
		return domain.Workspace{}, false, err
	}
	return ws, true, nil
}

// EnsureCurrentDefaultWorkspace is EnsureDefaultWorkspace for a sync cycle. The
// check and the creation happen under one lock, and nothing changes with
// ErrStaleIdentity when userID is no longer the current user.
func (s *Store) EnsureCurrentDefaultWorkspace(ctx context.Context, userID string) (domain.Workspace, bool, error) {
	var ws domain.Workspace
	created := false
	err := s.update(ctx, "workspace.default", func(st *State, now string) error {
		if st.CurrentUserID != userID {
			return ErrStaleIdentity
		}
		if owned := userWorkspaces(st.Workspaces, userID); len(owned) > 0 {
			ws = owned[0]
			return errNoop
		}
		ws = s.addWorkspace(st, DefaultWorkspaceName, userID, now)
		created = true
		return nil
	})
	if err != nil {
		return domain.Workspace{}, false, err
	}
	return ws.Clone(), created, nil
}

// SyncMeta returns the persisted synchronization metadata.
func (s *Store) SyncMeta() SyncMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Sync
}

// UpdateSyncMeta applies fn to the sync metadata and persists it.
func (s *Store) UpdateSyncMeta(ctx context.Context, fn func(*SyncMeta)) error {
	return s.update(ctx, "sync.meta", func(st *State, _ string) error {
		fn(&st.Sync)
		return nil
	})
}

// UpdateSyncMetaFor is UpdateSyncMeta limited to the cycle of userID. It returns
// ErrStaleIdentity without writing when userID is no longer the current user.
func (s *Store) UpdateSyncMetaFor(ctx context.Context, userID string, fn func(*SyncMeta)) error {
	return s.update(ctx, "sync.meta", func(st *State, _ string) error {
		if st.CurrentUserID != userID {
			return ErrStaleIdentity
		}
		fn(&st.Sync)
		return nil
	})
}

// Reconcile replaces the workspace collection with the result of fn, computed
// under the store lock from the current local copy. Nothing changes when fn
// fails or when userID is no longer the current user.
func (s *Store) Reconcile(ctx context.Context, userID string, fn func(local []domain.Workspace, deleted []domain.Tombstone) ([]domain.Workspace, error)) error {
	return s.update(ctx, "sync.reconcile", func(st *State, _ string) error {
		if st.CurrentUserID != userID {
			return ErrStaleIdentity
		}
		merged, err := fn(domain.CloneAll(st.Workspaces), append([]domain.Tombstone(nil), st.DeletedWorkspaces...))
		if err != nil {
			return err
		}
		st.Workspaces = merged
		selectActive(st)
		return nil
	})
}
