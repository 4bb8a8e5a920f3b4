// Package gaps finds structurally incomplete branches of a workspace.
// Results are recomputed from the snapshot on every call.
package gaps

import (
	"sort"

	"opsmap/internal/domain"
)

type Kind string

const (
	FunctionsWithNoSubFunctions  Kind = "functionsWithNoSubFunctions"
	SubFunctionsWithNoActivities Kind = "subFunctionsWithNoActivities"
	PhasesWithNoSteps            Kind = "phasesWithNoSteps"
)

// Kinds lists the gap kinds in report order.
var Kinds = []Kind{FunctionsWithNoSubFunctions, SubFunctionsWithNoActivities, PhasesWithNoSteps}

// Report maps each gap kind to the sorted IDs of offending entities. Every kind is present.
type Report map[Kind][]string

// Total is the number of findings across kinds.
func (r Report) Total() int {
	n := 0
	for _, ids := range r {
		n += len(ids)
	}
	return n
}

// Contains reports whether id is listed under kind.
func (r Report) Contains(kind Kind, id string) bool {
	for _, v := range r[kind] {
		if v == id {
			return true
		}
	}
	return false
}

// Analyze computes the structural gaps of ws. Archived entities are not reported,
// but they still count as children of their parent.
func Analyze(ws domain.Workspace) Report {
	subsByFunction := map[string]int{}
	for _, sf := range ws.SubFunctions {
		subsByFunction[sf.FunctionID]++
	}
	linksBySub := map[string]int{}
	for _, l := range ws.SubFunctionActivities {
		linksBySub[l.SubFunctionID]++
	}
	stepsByPhase := map[string]int{}
	for _, s := range ws.Steps {
		stepsByPhase[s.PhaseID]++
	}

	report := Report{}
	for _, k := range Kinds {
		report[k] = []string{}
	}
	for _, f := range ws.Functions {
		if f.Status != domain.StatusArchived && subsByFunction[f.ID] == 0 {
			report[FunctionsWithNoSubFunctions] = append(report[FunctionsWithNoSubFunctions], f.ID)
		}
	}
	for _, sf := range ws.SubFunctions {
		if sf.Status != domain.StatusArchived && linksBySub[sf.ID] == 0 {
			report[SubFunctionsWithNoActivities] = append(report[SubFunctionsWithNoActivities], sf.ID)
		}
	}
	archivedWorkflows := map[string]bool{}
	for _, w := range ws.Workflows {
		if w.Status == domain.StatusArchived {
			archivedWorkflows[w.ID] = true
		}
	}
	for _, p := range ws.Phases {
		if !archivedWorkflows[p.WorkflowID] && stepsByPhase[p.ID] == 0 {
			report[PhasesWithNoSteps] = append(report[PhasesWithNoSteps], p.ID)
		}
	}
	for _, k := range Kinds {
		sort.Strings(report[k])
	}
	return report
}

// UnlinkedActivities lists core activities linked to neither a sub-function nor a step.
func UnlinkedActivities(ws domain.Workspace) []string {
	linked := map[string]bool{}
	for _, l := range ws.SubFunctionActivities {
		linked[l.ActivityID] = true
	}
	for _, l := range ws.StepActivities {
		linked[l.ActivityID] = true
	}
	out := []string{}
	for _, a := range ws.CoreActivities {
		if !linked[a.ID] && a.Status != domain.StatusArchived {
			out = append(out, a.ID)
		}
	}
	sort.Strings(out)
	return out
}
