package assist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"opsmap/internal/domain"
)

type countingGenerator struct {
	calls int
}

func (g *countingGenerator) Generate(_ context.Context, req Request) (Response, error) {
	g.calls++
	return Response{Findings: []Finding{{Severity: "info", Title: string(req.Action)}}}, nil
}

func TestValidatePerAction(t *testing.T) {
	chart := &Chart{}
	cases := []struct {
		name string
		req  Request
		ok   bool
	}{
		{"workflows ok", Request{Action: ActionWorkflows, Model: "m", Transcript: "we onboard clients"}, true},
		{"workflows missing transcript", Request{Action: ActionWorkflows, Model: "m"}, false},
		{"chart ok", Request{Action: ActionFunctionChart, Model: "m", Workflows: []domain.Workflow{{ID: "w"}}}, true},
		{"chart missing workflows", Request{Action: ActionFunctionChart, Model: "m"}, false},
		{"gaps ok", Request{Action: ActionGapAnalysis, Model: "m", Chart: chart}, true},
		{"gaps missing chart", Request{Action: ActionGapAnalysis, Model: "m"}, false},
		{"meeting ok", Request{Action: ActionMeetingAnalysis, Model: "m", Chart: chart, Notes: "n"}, true},
		{"meeting missing notes", Request{Action: ActionMeetingAnalysis, Model: "m", Chart: chart}, false},
		{"missing model", Request{Action: ActionWorkflows, Transcript: "t"}, false},
		{"unknown action", Request{Action: "poem", Model: "m"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.req)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestRunRejectsBeforeGenerating(t *testing.T) {
	gen := &countingGenerator{}
	_, err := Run(context.Background(), gen, Request{Action: ActionGapAnalysis, Model: "m"}, "")
	require.Error(t, err)
	require.Zero(t, gen.calls)

	resp, err := Run(context.Background(), gen, Request{Action: ActionGapAnalysis, Chart: &Chart{}}, "default-model")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
	require.Equal(t, ActionGapAnalysis, resp.Action)

	_, err = Run(context.Background(), nil, Request{Action: ActionGapAnalysis, Model: "m", Chart: &Chart{}}, "")
	require.ErrorIs(t, err, ErrNoGenerator)
}

func TestHTTPGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(Response{
			Action:    req.Action,
			Workflows: []WorkflowDraft{{Name: "Onboarding", Phases: []PhaseDraft{{Name: "Intake", Steps: []string{"Call"}}}}},
		})
	}))
	defer srv.Close()

	gen := NewHTTPGenerator(srv.URL, "key", 0)
	resp, err := Run(context.Background(), gen, Request{Action: ActionWorkflows, Model: "m", Transcript: "t"}, "")
	require.NoError(t, err)
	require.Len(t, resp.Workflows, 1)
	require.Equal(t, "Intake", resp.Workflows[0].Phases[0].Name)
}
