package store

import "opsmap/internal/domain"

// untombstone forgets a deletion when the same key is created again (link rows).
func (t *txn) untombstone(kind domain.EntityKind, id string) {
	out := t.ws.Tombstones[:0]
	for _, ts := range t.ws.Tombstones {
		if ts.Kind == kind && ts.ID == id {
			continue
		}
		out = append(out, ts)
	}
	t.ws.Tombstones = out
}

func (t *txn) tombstoneAll(kind domain.EntityKind, ids []string) {
	for _, id := range ids {
		t.tombstone(kind, id)
	}
}

func (t *txn) dropSubFunctions(pred func(*domain.SubFunction) bool) {
	var removed []string
	t.ws.SubFunctions, removed = removeWhere(t.ws.SubFunctions, pred, t.now)
	t.tombstoneAll(domain.KindSubFunction, removed)
	for _, id := range removed {
		t.dropSubFunctionLinks(func(l *domain.SubFunctionActivity) bool { return l.SubFunctionID == id })
	}
}

func (t *txn) dropSubFunctionLinks(pred func(*domain.SubFunctionActivity) bool) {
	var removed []string
	t.ws.SubFunctionActivities, removed = removeWhere(t.ws.SubFunctionActivities, pred, t.now)
	t.tombstoneAll(domain.KindSubFunctionActivity, removed)
}

func (t *txn) dropStepLinks(pred func(*domain.StepActivity) bool) {
	var removed []string
	t.ws.StepActivities, removed = removeWhere(t.ws.StepActivities, pred, t.now)
	t.tombstoneAll(domain.KindStepActivity, removed)
}

func (t *txn) dropSoftwareLinks(pred func(*domain.ActivitySoftware) bool) {
	var removed []string
	t.ws.ActivitySoftware, removed = removeRecords(t.ws.ActivitySoftware, pred)
	t.tombstoneAll(domain.KindActivitySoftware, removed)
}

func (t *txn) dropChecklistItems(pred func(*domain.ChecklistItem) bool) {
	var removed []string
	t.ws.ChecklistItems, removed = removeWhere(t.ws.ChecklistItems, pred, t.now)
	t.tombstoneAll(domain.KindChecklistItem, removed)
}

func (t *txn) dropPhases(pred func(*domain.Phase) bool) {
	var removed []string
	t.ws.Phases, removed = removeWhere(t.ws.Phases, pred, t.now)
	t.tombstoneAll(domain.KindPhase, removed)
	for _, id := range removed {
		t.dropSteps(func(s *domain.Step) bool { return s.PhaseID == id })
	}
}

func (t *txn) dropSteps(pred func(*domain.Step) bool) {
	var removed []string
	t.ws.Steps, removed = removeWhere(t.ws.Steps, pred, t.now)
	t.tombstoneAll(domain.KindStep, removed)
	for _, id := range removed {
		t.dropStepLinks(func(l *domain.StepActivity) bool { return l.StepID == id })
	}
}
