package domain

// Clone returns a deep copy of the workspace so a mutation can be staged and discarded on error.
func (w Workspace) Clone() Workspace {
	out := w
	out.Functions = cloneSlice(w.Functions)
	out.SubFunctions = cloneSlice(w.SubFunctions)
	out.CoreActivities = cloneSlice(w.CoreActivities)
	for i := range out.CoreActivities {
		out.CoreActivities[i].OwnerID = clonePtr(out.CoreActivities[i].OwnerID)
		out.CoreActivities[i].RoleID = clonePtr(out.CoreActivities[i].RoleID)
	}
	out.SubFunctionActivities = cloneSlice(w.SubFunctionActivities)
	out.StepActivities = cloneSlice(w.StepActivities)
	out.ActivitySoftware = cloneSlice(w.ActivitySoftware)
	out.Workflows = cloneSlice(w.Workflows)
	out.Phases = cloneSlice(w.Phases)
	out.Steps = cloneSlice(w.Steps)
	out.People = cloneSlice(w.People)
	for i := range out.People {
		out.People[i].RoleID = clonePtr(out.People[i].RoleID)
	}
	out.Roles = cloneSlice(w.Roles)
	out.Software = cloneSlice(w.Software)
	out.ChecklistItems = cloneSlice(w.ChecklistItems)
	out.Tombstones = cloneSlice(w.Tombstones)
	return out
}

// CloneAll deep-copies a workspace list.
func CloneAll(in []Workspace) []Workspace {
	if in == nil {
		return nil
	}
	out := make([]Workspace, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
