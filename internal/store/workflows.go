package store

import (
	"context"

	"opsmap/internal/domain"
	"opsmap/internal/lifecycle"
)

type WorkflowInput struct {
	Name        string
	Description string
	Placeholder bool
}

type WorkflowPatch struct {
	Name        *string
	Description *string
}

func (s *Store) AddWorkflow(ctx context.Context, in WorkflowInput) (domain.Workflow, error) {
	name, err := requireText("workflow name", in.Name)
	if err != nil {
		return domain.Workflow{}, err
	}
	var out domain.Workflow
	err = s.mutate(ctx, "workflow.add", func(t *txn) error {
		out = domain.Workflow{
			ID:          s.newID(),
			CompanyID:   t.ws.Company.ID,
			Name:        name,
			Description: in.Description,
			Status:      lifecycle.InitialStatus(in.Placeholder),
			UpdatedAt:   t.now,
		}
		t.ws.Workflows = append(t.ws.Workflows, out)
		return nil
	})
	return out, err
}

func (s *Store) UpdateWorkflow(ctx context.Context, id string, patch WorkflowPatch) (domain.Workflow, error) {
	var out domain.Workflow
	err := s.mutate(ctx, "workflow.update", func(t *txn) error {
		w, err := lookup(t.ws.Workflows, domain.KindWorkflow, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name, err := requireText("workflow name", *patch.Name)
			if err != nil {
				return err
			}
			w.Name = name
		}
		if patch.Description != nil {
			w.Description = *patch.Description
		}
		markEdited(t, domain.KindWorkflow, w.ID, &w.Status)
		w.Touch(t.now)
		out = *w
		return nil
	})
	return out, err
}

// DeleteWorkflow removes a workflow with its phases, steps and step links.
func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	return s.mutate(ctx, "workflow.delete", func(t *txn) error {
		if _, err := lookup(t.ws.Workflows, domain.KindWorkflow, id); err != nil {
			return err
		}
		t.ws.Workflows, _ = removeRecords(t.ws.Workflows, func(w *domain.Workflow) bool { return w.ID == id })
		t.tombstone(domain.KindWorkflow, id)
		t.dropPhases(func(p *domain.Phase) bool { return p.WorkflowID == id })
		return nil
	})
}

func (s *Store) AddPhase(ctx context.Context, workflowID, name string, index *int) (domain.Phase, error) {
	name, err := requireText("phase name", name)
	if err != nil {
		return domain.Phase{}, err
	}
	var out domain.Phase
	err = s.mutate(ctx, "phase.add", func(t *txn) error {
		if _, err := lookup(t.ws.Workflows, domain.KindWorkflow, workflowID); err != nil {
			return err
		}
		p := domain.Phase{ID: s.newID(), Name: name}
		t.ws.Phases = insertOrdered(t.ws.Phases, p, workflowID, index, t.now)
		out, _ = get(t.ws.Phases, p.ID)
		return nil
	})
	return out, err
}

func (s *Store) UpdatePhase(ctx context.Context, id, name string) (domain.Phase, error) {
	name, err := requireText("phase name", name)
	if err != nil {
		return domain.Phase{}, err
	}
	var out domain.Phase
	err = s.mutate(ctx, "phase.update", func(t *txn) error {
		p, err := lookup(t.ws.Phases, domain.KindPhase, id)
		if err != nil {
			return err
		}
		p.Name = name
		p.Touch(t.now)
		out = *p
		return nil
	})
	return out, err
}

func (s *Store) DeletePhase(ctx context.Context, id string) error {
	return s.mutate(ctx, "phase.delete", func(t *txn) error {
		if _, err := lookup(t.ws.Phases, domain.KindPhase, id); err != nil {
			return err
		}
		t.dropPhases(func(p *domain.Phase) bool { return p.ID == id })
		return nil
	})
}

// MovePhase repositions a phase, possibly into another workflow.
func (s *Store) MovePhase(ctx context.Context, id, workflowID string, index int) error {
	return s.mutate(ctx, "phase.move", func(t *txn) error {
		if _, err := lookup(t.ws.Phases, domain.KindPhase, id); err != nil {
			return err
		}
		if _, err := lookup(t.ws.Workflows, domain.KindWorkflow, workflowID); err != nil {
			return err
		}
		out, err := moveOrdered(t.ws.Phases, id, workflowID, index, t.now)
		if err != nil {
			return err
		}
		t.ws.Phases = out
		return nil
	})
}

func (s *Store) AddStep(ctx context.Context, phaseID, name string, index *int) (domain.Step, error) {
	name, err := requireText("step name", name)
	if err != nil {
		return domain.Step{}, err
	}
	var out domain.Step
	err = s.mutate(ctx, "step.add", func(t *txn) error {
		if _, err := lookup(t.ws.Phases, domain.KindPhase, phaseID); err != nil {
			return err
		}
		step := domain.Step{ID: s.newID(), Name: name}
		t.ws.Steps = insertOrdered(t.ws.Steps, step, phaseID, index, t.now)
		out, _ = get(t.ws.Steps, step.ID)
		return nil
	})
	return out, err
}

func (s *Store) UpdateStep(ctx context.Context, id, name string) (domain.Step, error) {
	name, err := requireText("step name", name)
	if err != nil {
		return domain.Step{}, err
	}
	var out domain.Step
	err = s.mutate(ctx, "step.update", func(t *txn) error {
		step, err := lookup(t.ws.Steps, domain.KindStep, id)
		if err != nil {
			return err
		}
		step.Name = name
		step.Touch(t.now)
		out = *step
		return nil
	})
	return out, err
}

// DeleteStep removes a step and its activity links; the remaining steps of the phase are renumbered.
func (s *Store) DeleteStep(ctx context.Context, id string) error {
	return s.mutate(ctx, "step.delete", func(t *txn) error {
		if _, err := lookup(t.ws.Steps, domain.KindStep, id); err != nil {
			return err
		}
		t.dropSteps(func(step *domain.Step) bool { return step.ID == id })
		return nil
	})
}

// RemoveStepAt removes the step at the ordered index of a phase.
func (s *Store) RemoveStepAt(ctx context.Context, phaseID string, index int) error {
	return s.mutate(ctx, "step.delete", func(t *txn) error {
		if _, err := lookup(t.ws.Phases, domain.KindPhase, phaseID); err != nil {
			return err
		}
		siblings := siblingsOf(t.ws.Steps, phaseID)
		if index < 0 || index >= len(siblings) {
			return domain.InvalidInput("step index %d out of range [0,%d)", index, len(siblings))
		}
		id := siblings[index].ID
		t.dropSteps(func(step *domain.Step) bool { return step.ID == id })
		return nil
	})
}

func (s *Store) MoveStep(ctx context.Context, id, phaseID string, index int) error {
	return s.mutate(ctx, "step.move", func(t *txn) error {
		if _, err := lookup(t.ws.Steps, domain.KindStep, id); err != nil {
			return err
		}
		if _, err := lookup(t.ws.Phases, domain.KindPhase, phaseID); err != nil {
			return err
		}
		out, err := moveOrdered(t.ws.Steps, id, phaseID, index, t.now)
		if err != nil {
			return err
		}
		t.ws.Steps = out
		return nil
	})
}
