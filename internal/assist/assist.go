// Package assist is the contract with the external generation endpoint.
// Requests are validated before any call is made.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"opsmap/internal/domain"
)

type Action string

const (
	ActionWorkflows       Action = "workflows"
	ActionFunctionChart   Action = "functionChart"
	ActionGapAnalysis     Action = "gapAnalysis"
	ActionMeetingAnalysis Action = "meetingAnalysis"
)

var Actions = []Action{ActionWorkflows, ActionFunctionChart, ActionGapAnalysis, ActionMeetingAnalysis}

type CompanyProfile struct {
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
	Size     string `json:"size,omitempty"`
}

// Chart is the function hierarchy sent to and proposed by the generator.
type Chart struct {
	Functions             []domain.Function            `json:"functions"`
	SubFunctions          []domain.SubFunction         `json:"sub_functions"`
	CoreActivities        []domain.CoreActivity        `json:"core_activities,omitempty"`
	SubFunctionActivities []domain.SubFunctionActivity `json:"sub_function_activities,omitempty"`
}

// ChartOf extracts the chart of a workspace.
func ChartOf(ws domain.Workspace) *Chart {
	c := ws.Clone()
	return &Chart{
		Functions:             c.Functions,
		SubFunctions:          c.SubFunctions,
		CoreActivities:        c.CoreActivities,
		SubFunctionActivities: c.SubFunctionActivities,
	}
}

type Request struct {
	Action         Action            `json:"action" validate:"required,oneof=workflows functionChart gapAnalysis meetingAnalysis"`
	Model          string            `json:"model" validate:"required"`
	Transcript     string            `json:"transcript,omitempty" validate:"required_if=Action workflows"`
	CompanyProfile *CompanyProfile   `json:"company_profile,omitempty"`
	Workflows      []domain.Workflow `json:"workflows,omitempty" validate:"required_if=Action functionChart"`
	Phases         []domain.Phase    `json:"phases,omitempty"`
	Steps          []domain.Step     `json:"steps,omitempty"`
	Chart          *Chart            `json:"chart,omitempty"`
	Notes          string            `json:"notes,omitempty" validate:"required_if=Action meetingAnalysis"`
}

type PhaseDraft struct {
	Name  string   `json:"name"`
	Steps []string `json:"steps"`
}

type WorkflowDraft struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Phases      []PhaseDraft `json:"phases"`
}

type Finding struct {
	Severity  string   `json:"severity"`
	Title     string   `json:"title"`
	Detail    string   `json:"detail,omitempty"`
	EntityIDs []string `json:"entity_ids,omitempty"`
}

// Delta is one suggested chart change.
type Delta struct {
	Op       string            `json:"op" enum:"add,update,remove"`
	Kind     domain.EntityKind `json:"kind"`
	ID       string            `json:"id,omitempty"`
	ParentID string            `json:"parent_id,omitempty"`
	Name     string            `json:"name,omitempty"`
}

type Response struct {
	Action    Action          `json:"action"`
	Workflows []WorkflowDraft `json:"workflows,omitempty"`
	Chart     *Chart          `json:"chart,omitempty"`
	Findings  []Finding       `json:"findings,omitempty"`
	Deltas    []Delta         `json:"deltas,omitempty"`
}

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid assist request: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == domain.ErrInvalidInput
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks req against the requirements of its action.
func Validate(req Request) error {
	out := &ValidationError{}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
	}
	// the chart is required by two actions
	if (req.Action == ActionGapAnalysis || req.Action == ActionMeetingAnalysis) && req.Chart == nil {
		out.Fields = append(out.Fields, "Chart (required_if)")
	}
	if len(out.Fields) == 0 {
		return nil
	}
	return out
}

// Generator performs a validated request.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// ErrNoGenerator is returned when no generation endpoint is configured.
var ErrNoGenerator = errors.New("assist endpoint not configured")

// Run validates req, fills in the default model and calls gen.
func Run(ctx context.Context, gen Generator, req Request, defaultModel string) (Response, error) {
	if req.Model == "" {
		req.Model = defaultModel
	}
	if err := Validate(req); err != nil {
		return Response{}, err
	}
	if gen == nil {
		return Response{}, ErrNoGenerator
	}
	resp, err := gen.Generate(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("assist %s: %w", req.Action, err)
	}
	if resp.Action == "" {
		resp.Action = req.Action
	}
	return resp, nil
}
