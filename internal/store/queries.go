package store

import (
	"sort"

	"opsmap/internal/domain"
	"opsmap/internal/gaps"
	"opsmap/internal/ordering"
)

// view runs fn against the active workspace under the store lock. fn must not retain ws.
func (s *Store) view(fn func(ws *domain.Workspace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.activeIndexLocked()
	if idx < 0 {
		return domain.NotFoundError{Kind: domain.KindWorkspace, ID: s.state.ActiveWorkspaceID}
	}
	return fn(&s.state.Workspaces[idx])
}

func siblingsOf[T any, P interface {
	*T
	ordering.Child
}](all []T, parent string) []T {
	return ordering.Siblings[T, P](all, parent)
}

// Functions returns the functions of the active workspace in order.
func (s *Store) Functions() ([]domain.Function, error) {
	var out []domain.Function
	err := s.view(func(ws *domain.Workspace) error {
		out = siblingsOf(ws.Functions, ws.Company.ID)
		return nil
	})
	return out, err
}

func (s *Store) SubFunctions(functionID string) ([]domain.SubFunction, error) {
	var out []domain.SubFunction
	err := s.view(func(ws *domain.Workspace) error {
		if _, err := lookup(ws.Functions, domain.KindFunction, functionID); err != nil {
			return err
		}
		out = siblingsOf(ws.SubFunctions, functionID)
		return nil
	})
	return out, err
}

// CoreActivities returns every activity of the active workspace, ordered by name.
func (s *Store) CoreActivities() ([]domain.CoreActivity, error) {
	var out []domain.CoreActivity
	err := s.view(func(ws *domain.Workspace) error {
		out = append(out, ws.CoreActivities...)
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Name != out[j].Name {
				return out[i].Name < out[j].Name
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return cloneActivities(out), err
}

func (s *Store) CoreActivity(id string) (domain.CoreActivity, error) {
	var out domain.CoreActivity
	err := s.view(func(ws *domain.Workspace) error {
		a, err := lookup(ws.CoreActivities, domain.KindCoreActivity, id)
		if err != nil {
			return err
		}
		out = cloneActivities([]domain.CoreActivity{*a})[0]
		return nil
	})
	return out, err
}

func cloneActivities(in []domain.CoreActivity) []domain.CoreActivity {
	out := make([]domain.CoreActivity, len(in))
	for i, a := range in {
		if a.OwnerID != nil {
			v := *a.OwnerID
			a.OwnerID = &v
		}
		if a.RoleID != nil {
			v := *a.RoleID
			a.RoleID = &v
		}
		out[i] = a
	}
	return out
}

// GetActivitiesForSubFunction resolves the sub-function's links in link order.
func (s *Store) GetActivitiesForSubFunction(subFunctionID string) ([]domain.CoreActivity, error) {
	var out []domain.CoreActivity
	err := s.view(func(ws *domain.Workspace) error {
		if _, err := lookup(ws.SubFunctions, domain.KindSubFunction, subFunctionID); err != nil {
			return err
		}
		for _, l := range siblingsOf(ws.SubFunctionActivities, subFunctionID) {
			if a, ok := get(ws.CoreActivities, l.ActivityID); ok {
				out = append(out, a)
			}
		}
		return nil
	})
	return cloneActivities(out), err
}

// GetActivitiesForStep resolves the step's links in link order.
func (s *Store) GetActivitiesForStep(stepID string) ([]domain.CoreActivity, error) {
	var out []domain.CoreActivity
	err := s.view(func(ws *domain.Workspace) error {
		if _, err := lookup(ws.Steps, domain.KindStep, stepID); err != nil {
			return err
		}
		for _, l := range siblingsOf(ws.StepActivities, stepID) {
			if a, ok := get(ws.CoreActivities, l.ActivityID); ok {
				out = append(out, a)
			}
		}
		return nil
	})
	return cloneActivities(out), err
}

// SoftwareForActivity lists the software linked to an activity, ordered by name.
func (s *Store) SoftwareForActivity(activityID string) ([]domain.Software, error) {
	var out []domain.Software
	err := s.view(func(ws *domain.Workspace) error {
		if _, err := lookup(ws.CoreActivities, domain.KindCoreActivity, activityID); err != nil {
			return err
		}
		for _, l := range ws.ActivitySoftware {
			if l.ActivityID != activityID {
				continue
			}
			if sw, ok := get(ws.Software, l.SoftwareID); ok {
				out = append(out, sw)
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func (s *Store) ChecklistItems(activityID string) ([]domain.ChecklistItem, error) {
	var out []domain.ChecklistItem
	err := s.view(func(ws *domain.Workspace) error {
		if _, err := lookup(ws.CoreActivities, domain.KindCoreActivity, activityID); err != nil {
			return err
		}
		out = siblingsOf(ws.ChecklistItems, activityID)
		return nil
	})
	return out, err
}

func (s *Store) Workflows() ([]domain.Workflow, error) {
	var out []domain.Workflow
	err := s.view(func(ws *domain.Workspace) error {
		out = append(out, ws.Workflows...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func (s *Store) Phases(workflowID string) ([]domain.Phase, error) {
	var out []domain.Phase
	err := s.view(func(ws *domain.Workspace) error {
		if _, err := lookup(ws.Workflows, domain.KindWorkflow, workflowID); err != nil {
			return err
		}
		out = siblingsOf(ws.Phases, workflowID)
		return nil
	})
	return out, err
}

func (s *Store) Steps(phaseID string) ([]domain.Step, error) {
	var out []domain.Step
	err := s.view(func(ws *domain.Workspace) error {
		if _, err := lookup(ws.Phases, domain.KindPhase, phaseID); err != nil {
			return err
		}
		out = siblingsOf(ws.Steps, phaseID)
		return nil
	})
	return out, err
}

func (s *Store) People() ([]domain.Person, error) {
	var out []domain.Person
	err := s.view(func(ws *domain.Workspace) error {
		for _, p := range ws.People {
			if p.RoleID != nil {
				v := *p.RoleID
				p.RoleID = &v
			}
			out = append(out, p)
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func (s *Store) Roles() ([]domain.Role, error) {
	var out []domain.Role
	err := s.view(func(ws *domain.Workspace) error {
		out = append(out, ws.Roles...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func (s *Store) SoftwareCatalog() ([]domain.Software, error) {
	var out []domain.Software
	err := s.view(func(ws *domain.Workspace) error {
		out = append(out, ws.Software...)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

// GapAnalysis reports the structural gaps of the active workspace.
func (s *Store) GapAnalysis() (gaps.Report, error) {
	var out gaps.Report
	err := s.view(func(ws *domain.Workspace) error {
		out = gaps.Analyze(*ws)
		return nil
	})
	return out, err
}

// UnlinkedActivities lists activities attached to neither a sub-function nor a step.
func (s *Store) UnlinkedActivities() ([]string, error) {
	var out []string
	err := s.view(func(ws *domain.Workspace) error {
		out = gaps.UnlinkedActivities(*ws)
		return nil
	})
	return out, err
}
