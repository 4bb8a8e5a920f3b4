package gaps

import (
	"reflect"
	"testing"

	"opsmap/internal/domain"
)

func TestFunctionGapClosesWhenSubFunctionAdded(t *testing.T) {
	ws := domain.Workspace{
		ID:        "W1",
		Functions: []domain.Function{{ID: "F1", CompanyID: "c1", Status: domain.StatusDraft}},
	}
	report := Analyze(ws)
	if !report.Contains(FunctionsWithNoSubFunctions, "F1") {
		t.Fatalf("expected F1 reported, got %v", report)
	}

	ws.SubFunctions = append(ws.SubFunctions, domain.SubFunction{ID: "S1", FunctionID: "F1", Status: domain.StatusDraft})
	report = Analyze(ws)
	if report.Contains(FunctionsWithNoSubFunctions, "F1") {
		t.Fatalf("F1 should no longer be reported: %v", report)
	}
	if !report.Contains(SubFunctionsWithNoActivities, "S1") {
		t.Fatalf("expected S1 reported, got %v", report)
	}

	ws.CoreActivities = append(ws.CoreActivities, domain.CoreActivity{ID: "A1", Status: domain.StatusDraft})
	ws.SubFunctionActivities = append(ws.SubFunctionActivities, domain.SubFunctionActivity{SubFunctionID: "S1", ActivityID: "A1"})
	if report = Analyze(ws); report.Total() != 0 {
		t.Fatalf("expected no gaps, got %v", report)
	}
}

func TestPhasesWithNoSteps(t *testing.T) {
	ws := domain.Workspace{
		Workflows: []domain.Workflow{{ID: "wf", Status: domain.StatusDraft}, {ID: "old", Status: domain.StatusArchived}},
		Phases: []domain.Phase{
			{ID: "p2", WorkflowID: "wf"},
			{ID: "p1", WorkflowID: "wf"},
			{ID: "p3", WorkflowID: "wf"},
			{ID: "px", WorkflowID: "old"},
		},
		Steps: []domain.Step{{ID: "s", PhaseID: "p3"}},
	}
	got := Analyze(ws)[PhasesWithNoSteps]
	if !reflect.DeepEqual(got, []string{"p1", "p2"}) {
		t.Fatalf("unexpected phases %v", got)
	}
}

func TestAnalyzeIsDeterministicAndPure(t *testing.T) {
	ws := domain.Workspace{
		Functions: []domain.Function{{ID: "b"}, {ID: "a"}, {ID: "z", Status: domain.StatusArchived}},
	}
	before := ws.Clone()
	first := Analyze(ws)
	second := Analyze(ws)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("non deterministic: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(first[FunctionsWithNoSubFunctions], []string{"a", "b"}) {
		t.Fatalf("unexpected functions %v", first[FunctionsWithNoSubFunctions])
	}
	if !reflect.DeepEqual(before, ws) {
		t.Fatalf("workspace mutated")
	}
	for _, k := range Kinds {
		if first[k] == nil {
			t.Fatalf("kind %s missing from report", k)
		}
	}
}

func TestUnlinkedActivities(t *testing.T) {
	ws := domain.Workspace{
		CoreActivities: []domain.CoreActivity{{ID: "a1"}, {ID: "a2"}, {ID: "a3"}},
		StepActivities: []domain.StepActivity{{StepID: "s", ActivityID: "a2"}},
	}
	if got := UnlinkedActivities(ws); !reflect.DeepEqual(got, []string{"a1", "a3"}) {
		t.Fatalf("unexpected unlinked %v", got)
	}
}
