package store

import (
	"context"

	"opsmap/internal/domain"
	"opsmap/internal/lifecycle"
)

type ActivityInput struct {
	Name        string
	Notes       string
	OwnerID     *string
	RoleID      *string
	Placeholder bool
}

// ActivityPatch updates a core activity. An empty OwnerID or RoleID clears the reference.
type ActivityPatch struct {
	Name    *string
	Notes   *string
	OwnerID *string
	RoleID  *string
}

func (s *Store) AddCoreActivity(ctx context.Context, in ActivityInput) (domain.CoreActivity, error) {
	name, err := requireText("activity name", in.Name)
	if err != nil {
		return domain.CoreActivity{}, err
	}
	var out domain.CoreActivity
	err = s.mutate(ctx, "activity.add", func(t *txn) error {
		a := domain.CoreActivity{
			ID:        s.newID(),
			CompanyID: t.ws.Company.ID,
			Name:      name,
			Notes:     in.Notes,
			Status:    lifecycle.InitialStatus(in.Placeholder),
			UpdatedAt: t.now,
		}
		if err := setActivityRefs(t.ws, &a, in.OwnerID, in.RoleID); err != nil {
			return err
		}
		t.ws.CoreActivities = append(t.ws.CoreActivities, a)
		out = a
		return nil
	})
	return out, err
}

func setActivityRefs(ws *domain.Workspace, a *domain.CoreActivity, ownerID, roleID *string) error {
	if ownerID != nil {
		if *ownerID == "" {
			a.OwnerID = nil
		} else {
			if _, err := lookup(ws.People, domain.KindPerson, *ownerID); err != nil {
				return err
			}
			v := *ownerID
			a.OwnerID = &v
		}
	}
	if roleID != nil {
		if *roleID == "" {
			a.RoleID = nil
		} else {
			if _, err := lookup(ws.Roles, domain.KindRole, *roleID); err != nil {
				return err
			}
			v := *roleID
			a.RoleID = &v
		}
	}
	return nil
}

func (s *Store) UpdateCoreActivity(ctx context.Context, id string, patch ActivityPatch) (domain.CoreActivity, error) {
	var out domain.CoreActivity
	err := s.mutate(ctx, "activity.update", func(t *txn) error {
		a, err := lookup(t.ws.CoreActivities, domain.KindCoreActivity, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name, err := requireText("activity name", *patch.Name)
			if err != nil {
				return err
			}
			a.Name = name
		}
		if patch.Notes != nil {
			a.Notes = *patch.Notes
		}
		if err := setActivityRefs(t.ws, a, patch.OwnerID, patch.RoleID); err != nil {
			return err
		}
		markEdited(t, domain.KindCoreActivity, a.ID, &a.Status)
		a.Touch(t.now)
		out = *a
		return nil
	})
	return out, err
}

// DeleteCoreActivity removes an activity with its links and checklist.
func (s *Store) DeleteCoreActivity(ctx context.Context, id string) error {
	return s.mutate(ctx, "activity.delete", func(t *txn) error {
		if _, err := lookup(t.ws.CoreActivities, domain.KindCoreActivity, id); err != nil {
			return err
		}
		t.ws.CoreActivities, _ = removeRecords(t.ws.CoreActivities, func(a *domain.CoreActivity) bool { return a.ID == id })
		t.tombstone(domain.KindCoreActivity, id)
		t.dropSubFunctionLinks(func(l *domain.SubFunctionActivity) bool { return l.ActivityID == id })
		t.dropStepLinks(func(l *domain.StepActivity) bool { return l.ActivityID == id })
		t.dropSoftwareLinks(func(l *domain.ActivitySoftware) bool { return l.ActivityID == id })
		t.dropChecklistItems(func(c *domain.ChecklistItem) bool { return c.CoreActivityID == id })
		return nil
	})
}

// LinkActivityToSubFunction places an existing activity under a sub-function at index (nil appends).
func (s *Store) LinkActivityToSubFunction(ctx context.Context, subFunctionID, activityID string, index *int) (domain.SubFunctionActivity, error) {
	var out domain.SubFunctionActivity
	err := s.mutate(ctx, "subfunction.link", func(t *txn) error {
		if _, err := lookup(t.ws.SubFunctions, domain.KindSubFunction, subFunctionID); err != nil {
			return err
		}
		if _, err := lookup(t.ws.CoreActivities, domain.KindCoreActivity, activityID); err != nil {
			return err
		}
		key := domain.LinkKey(subFunctionID, activityID)
		if has(t.ws.SubFunctionActivities, key) {
			return domain.InvalidInput("activity %s already linked to sub-function %s", activityID, subFunctionID)
		}
		link := domain.SubFunctionActivity{ActivityID: activityID}
		t.ws.SubFunctionActivities = insertOrdered(t.ws.SubFunctionActivities, link, subFunctionID, index, t.now)
		t.untombstone(domain.KindSubFunctionActivity, key)
		out, _ = get(t.ws.SubFunctionActivities, key)
		return nil
	})
	return out, err
}

func (s *Store) UnlinkActivityFromSubFunction(ctx context.Context, subFunctionID, activityID string) error {
	return s.mutate(ctx, "subfunction.unlink", func(t *txn) error {
		key := domain.LinkKey(subFunctionID, activityID)
		if _, err := lookup(t.ws.SubFunctionActivities, domain.KindSubFunctionActivity, key); err != nil {
			return err
		}
		t.dropSubFunctionLinks(func(l *domain.SubFunctionActivity) bool { return l.Key() == key })
		return nil
	})
}

// MoveSubFunctionActivity repositions a link, possibly into another sub-function.
func (s *Store) MoveSubFunctionActivity(ctx context.Context, subFunctionID, activityID, toSubFunctionID string, index int) error {
	return s.mutate(ctx, "subfunction.link.move", func(t *txn) error {
		key := domain.LinkKey(subFunctionID, activityID)
		if _, err := lookup(t.ws.SubFunctionActivities, domain.KindSubFunctionActivity, key); err != nil {
			return err
		}
		if _, err := lookup(t.ws.SubFunctions, domain.KindSubFunction, toSubFunctionID); err != nil {
			return err
		}
		if toSubFunctionID != subFunctionID {
			dest := domain.LinkKey(toSubFunctionID, activityID)
			if has(t.ws.SubFunctionActivities, dest) {
				return domain.InvalidInput("activity %s already linked to sub-function %s", activityID, toSubFunctionID)
			}
			t.tombstone(domain.KindSubFunctionActivity, key)
			t.untombstone(domain.KindSubFunctionActivity, dest)
		}
		out, err := moveOrdered(t.ws.SubFunctionActivities, key, toSubFunctionID, index, t.now)
		if err != nil {
			return err
		}
		t.ws.SubFunctionActivities = out
		return nil
	})
}

func (s *Store) LinkActivityToStep(ctx context.Context, stepID, activityID string, index *int) (domain.StepActivity, error) {
	var out domain.StepActivity
	err := s.mutate(ctx, "step.link", func(t *txn) error {
		if _, err := lookup(t.ws.Steps, domain.KindStep, stepID); err != nil {
			return err
		}
		if _, err := lookup(t.ws.CoreActivities, domain.KindCoreActivity, activityID); err != nil {
			return err
		}
		key := domain.LinkKey(stepID, activityID)
		if has(t.ws.StepActivities, key) {
			return domain.InvalidInput("activity %s already linked to step %s", activityID, stepID)
		}
		link := domain.StepActivity{ActivityID: activityID}
		t.ws.StepActivities = insertOrdered(t.ws.StepActivities, link, stepID, index, t.now)
		t.untombstone(domain.KindStepActivity, key)
		out, _ = get(t.ws.StepActivities, key)
		return nil
	})
	return out, err
}

func (s *Store) UnlinkActivityFromStep(ctx context.Context, stepID, activityID string) error {
	return s.mutate(ctx, "step.unlink", func(t *txn) error {
		key := domain.LinkKey(stepID, activityID)
		if _, err := lookup(t.ws.StepActivities, domain.KindStepActivity, key); err != nil {
			return err
		}
		t.dropStepLinks(func(l *domain.StepActivity) bool { return l.Key() == key })
		return nil
	})
}

func (s *Store) MoveStepActivity(ctx context.Context, stepID, activityID, toStepID string, index int) error {
	return s.mutate(ctx, "step.link.move", func(t *txn) error {
		key := domain.LinkKey(stepID, activityID)
		if _, err := lookup(t.ws.StepActivities, domain.KindStepActivity, key); err != nil {
			return err
		}
		if _, err := lookup(t.ws.Steps, domain.KindStep, toStepID); err != nil {
			return err
		}
		if toStepID != stepID {
			dest := domain.LinkKey(toStepID, activityID)
			if has(t.ws.StepActivities, dest) {
				return domain.InvalidInput("activity %s already linked to step %s", activityID, toStepID)
			}
			t.tombstone(domain.KindStepActivity, key)
			t.untombstone(domain.KindStepActivity, dest)
		}
		out, err := moveOrdered(t.ws.StepActivities, key, toStepID, index, t.now)
		if err != nil {
			return err
		}
		t.ws.StepActivities = out
		return nil
	})
}

// LinkSoftware records that an activity uses a software product. Linking twice is a no-op.
func (s *Store) LinkSoftware(ctx context.Context, activityID, softwareID string) error {
	return s.mutate(ctx, "software.link", func(t *txn) error {
		if _, err := lookup(t.ws.CoreActivities, domain.KindCoreActivity, activityID); err != nil {
			return err
		}
		if _, err := lookup(t.ws.Software, domain.KindSoftware, softwareID); err != nil {
			return err
		}
		key := domain.LinkKey(activityID, softwareID)
		if has(t.ws.ActivitySoftware, key) {
			return nil
		}
		t.ws.ActivitySoftware = append(t.ws.ActivitySoftware, domain.ActivitySoftware{
			ActivityID: activityID,
			SoftwareID: softwareID,
			UpdatedAt:  t.now,
		})
		t.untombstone(domain.KindActivitySoftware, key)
		return nil
	})
}

func (s *Store) UnlinkSoftware(ctx context.Context, activityID, softwareID string) error {
	return s.mutate(ctx, "software.unlink", func(t *txn) error {
		key := domain.LinkKey(activityID, softwareID)
		if _, err := lookup(t.ws.ActivitySoftware, domain.KindActivitySoftware, key); err != nil {
			return err
		}
		t.dropSoftwareLinks(func(l *domain.ActivitySoftware) bool { return l.Key() == key })
		return nil
	})
}

func (s *Store) AddChecklistItem(ctx context.Context, activityID, text string, index *int) (domain.ChecklistItem, error) {
	text, err := requireText("checklist text", text)
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	var out domain.ChecklistItem
	err = s.mutate(ctx, "checklist.add", func(t *txn) error {
		if _, err := lookup(t.ws.CoreActivities, domain.KindCoreActivity, activityID); err != nil {
			return err
		}
		item := domain.ChecklistItem{ID: s.newID(), Text: text}
		t.ws.ChecklistItems = insertOrdered(t.ws.ChecklistItems, item, activityID, index, t.now)
		out, _ = get(t.ws.ChecklistItems, item.ID)
		return nil
	})
	return out, err
}

type ChecklistPatch struct {
	Text      *string
	Completed *bool
}

func (s *Store) UpdateChecklistItem(ctx context.Context, id string, patch ChecklistPatch) (domain.ChecklistItem, error) {
	var out domain.ChecklistItem
	err := s.mutate(ctx, "checklist.update", func(t *txn) error {
		c, err := lookup(t.ws.ChecklistItems, domain.KindChecklistItem, id)
		if err != nil {
			return err
		}
		if patch.Text != nil {
			text, err := requireText("checklist text", *patch.Text)
			if err != nil {
				return err
			}
			c.Text = text
		}
		if patch.Completed != nil {
			c.Completed = *patch.Completed
		}
		c.Touch(t.now)
		out = *c
		return nil
	})
	return out, err
}

// ToggleChecklistItem flips the completed flag.
func (s *Store) ToggleChecklistItem(ctx context.Context, id string) (domain.ChecklistItem, error) {
	var out domain.ChecklistItem
	err := s.mutate(ctx, "checklist.toggle", func(t *txn) error {
		c, err := lookup(t.ws.ChecklistItems, domain.KindChecklistItem, id)
		if err != nil {
			return err
		}
		c.Completed = !c.Completed
		c.Touch(t.now)
		out = *c
		return nil
	})
	return out, err
}

func (s *Store) DeleteChecklistItem(ctx context.Context, id string) error {
	return s.mutate(ctx, "checklist.delete", func(t *txn) error {
		if _, err := lookup(t.ws.ChecklistItems, domain.KindChecklistItem, id); err != nil {
			return err
		}
		t.dropChecklistItems(func(c *domain.ChecklistItem) bool { return c.ID == id })
		return nil
	})
}

func (s *Store) MoveChecklistItem(ctx context.Context, id string, index int) error {
	return s.mutate(ctx, "checklist.move", func(t *txn) error {
		c, err := lookup(t.ws.ChecklistItems, domain.KindChecklistItem, id)
		if err != nil {
			return err
		}
		out, err := moveOrdered(t.ws.ChecklistItems, id, c.CoreActivityID, index, t.now)
		if err != nil {
			return err
		}
		t.ws.ChecklistItems = out
		return nil
	})
}
