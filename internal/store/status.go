package store

import (
	"context"

	"opsmap/internal/domain"
	"opsmap/internal/lifecycle"
)

type statusRef struct {
	status *domain.Status
	touch  func(string)
}

func statusOf(ws *domain.Workspace, kind domain.EntityKind, id string) (statusRef, error) {
	switch kind {
	case domain.KindFunction:
		f, err := lookup(ws.Functions, kind, id)
		if err != nil {
			return statusRef{}, err
		}
		return statusRef{&f.Status, f.Touch}, nil
	case domain.KindSubFunction:
		sf, err := lookup(ws.SubFunctions, kind, id)
		if err != nil {
			return statusRef{}, err
		}
		return statusRef{&sf.Status, sf.Touch}, nil
	case domain.KindCoreActivity:
		a, err := lookup(ws.CoreActivities, kind, id)
		if err != nil {
			return statusRef{}, err
		}
		return statusRef{&a.Status, a.Touch}, nil
	case domain.KindWorkflow:
		w, err := lookup(ws.Workflows, kind, id)
		if err != nil {
			return statusRef{}, err
		}
		return statusRef{&w.Status, w.Touch}, nil
	}
	return statusRef{}, domain.InvalidInput("%s entities carry no status", kind)
}

// Apply runs a lifecycle action on a mappable entity of the active workspace
// and records the matching audit event.
func (s *Store) Apply(ctx context.Context, kind domain.EntityKind, id string, action lifecycle.Action) (domain.Status, error) {
	if !action.Valid() {
		return "", domain.InvalidInput("unknown action %q", action)
	}
	var next domain.Status
	err := s.mutate(ctx, "status."+string(action), func(t *txn) error {
		ref, err := statusOf(t.ws, kind, id)
		if err != nil {
			return err
		}
		from := *ref.status
		to, err := lifecycle.TransitionFor(kind, from, action)
		if err != nil {
			return err
		}
		*ref.status = to
		ref.touch(t.now)
		t.record(action.EventType(), kind, id, map[string]any{"from": from, "to": to})
		next = to
		return nil
	})
	return next, err
}

func (s *Store) Publish(ctx context.Context, kind domain.EntityKind, id string) (domain.Status, error) {
	return s.Apply(ctx, kind, id, lifecycle.ActionPublish)
}

func (s *Store) StartEdit(ctx context.Context, kind domain.EntityKind, id string) (domain.Status, error) {
	return s.Apply(ctx, kind, id, lifecycle.ActionStartEdit)
}

func (s *Store) Archive(ctx context.Context, kind domain.EntityKind, id string) (domain.Status, error) {
	return s.Apply(ctx, kind, id, lifecycle.ActionArchive)
}

func (s *Store) Restore(ctx context.Context, kind domain.EntityKind, id string) (domain.Status, error) {
	return s.Apply(ctx, kind, id, lifecycle.ActionRestore)
}

// AllowedActions lists the lifecycle actions currently accepted by an entity.
func (s *Store) AllowedActions(kind domain.EntityKind, id string) ([]lifecycle.Action, error) {
	var out []lifecycle.Action
	err := s.view(func(ws *domain.Workspace) error {
		ref, err := statusOf(ws, kind, id)
		if err != nil {
			return err
		}
		out = lifecycle.AllowedTransitions(*ref.status)
		return nil
	})
	return out, err
}

// markEdited moves an active or placeholder entity back to draft after a content change.
func markEdited(t *txn, kind domain.EntityKind, id string, status *domain.Status) {
	if next, ok := lifecycle.FillGap(*status); ok {
		t.record(lifecycle.GapFilledEvent, kind, id, map[string]any{"from": *status, "to": next})
		*status = next
		return
	}
	if *status != domain.StatusActive {
		return
	}
	next, err := lifecycle.TransitionFor(kind, *status, lifecycle.ActionStartEdit)
	if err != nil {
		return
	}
	t.record(lifecycle.ActionStartEdit.EventType(), kind, id, map[string]any{"from": *status, "to": next})
	*status = next
}
