package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"opsmap/internal/assist"
	"opsmap/internal/authn"
	"opsmap/internal/db"
	"opsmap/internal/domain"
	"opsmap/internal/migrate"
	"opsmap/internal/remote"
	"opsmap/internal/repo"
	opsmapsdk "opsmap/sdk/go"
)

const testSecret = "test-secret"

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, req assist.Request) (assist.Response, error) {
	return assist.Response{Workflows: []assist.WorkflowDraft{{Name: "Onboarding"}}}, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	conn, err := db.Open(db.Config{Dir: t.TempDir(), Name: "server.db"})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	handler, err := New(Config{
		Store:        repo.Repo{DB: conn},
		Assist:       echoGenerator{},
		DefaultModel: "test-model",
		BasePath:     "/v0",
		Auth:         AuthConfig{JWTSecret: testSecret, AllowDevLogin: true},
		Version:      "test",
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		conn.Close()
	})
	return srv
}

func tokenFor(t *testing.T, user string) string {
	t.Helper()
	tok, err := authn.Mint(testSecret, user, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return tok
}

func doJSON(t *testing.T, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestHealthIsOpen(t *testing.T) {
	srv := newTestServer(t)
	res, body := doJSON(t, http.MethodGet, srv.URL+"/v0/health", nil, "")
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Fatalf("health %d: %s", res.StatusCode, body)
	}
}

func TestWorkspacesRequireToken(t *testing.T) {
	srv := newTestServer(t)
	res, body := doJSON(t, http.MethodGet, srv.URL+"/v0/workspaces", nil, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code != "unauthorized" {
		t.Fatalf("unexpected envelope %s (%v)", body, err)
	}
	res, _ = doJSON(t, http.MethodGet, srv.URL+"/v0/workspaces", nil, "not-a-jwt")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}
}

func TestWorkspaceOwnership(t *testing.T) {
	srv := newTestServer(t)
	alice, bob := tokenFor(t, "alice"), tokenFor(t, "bob")
	ws := domain.Workspace{ID: "w1", Name: "Acme", CreatedAt: "2024-01-01T00:00:00Z"}

	res, body := doJSON(t, http.MethodPut, srv.URL+"/v0/workspaces/w1", ws, alice)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("put %d: %s", res.StatusCode, body)
	}
	var saved domain.Workspace
	if err := json.Unmarshal(body, &saved); err != nil || saved.OwnerUserID != "alice" {
		t.Fatalf("saved %+v (%v)", saved, err)
	}

	res, body = doJSON(t, http.MethodPut, srv.URL+"/v0/workspaces/w1", ws, bob)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("bob put expected 403, got %d: %s", res.StatusCode, body)
	}
	res, _ = doJSON(t, http.MethodGet, srv.URL+"/v0/workspaces/w1", nil, bob)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("bob get expected 403, got %d", res.StatusCode)
	}
	res, body = doJSON(t, http.MethodGet, srv.URL+"/v0/workspaces", nil, bob)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), `"items":[]`) {
		t.Fatalf("bob list %d: %s", res.StatusCode, body)
	}

	res, _ = doJSON(t, http.MethodPut, srv.URL+"/v0/workspaces/other", ws, alice)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("mismatched id expected 400, got %d", res.StatusCode)
	}

	res, _ = doJSON(t, http.MethodDelete, srv.URL+"/v0/workspaces/w1", nil, alice)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete expected 204, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, http.MethodGet, srv.URL+"/v0/workspaces/w1", nil, alice)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete expected 404, got %d", res.StatusCode)
	}
}

func TestAssistValidatesBeforeGenerating(t *testing.T) {
	srv := newTestServer(t)
	alice := tokenFor(t, "alice")

	res, body := doJSON(t, http.MethodPost, srv.URL+"/v0/assist", map[string]any{"action": "workflows"}, alice)
	if res.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "Transcript") {
		t.Fatalf("expected 400 naming the transcript, got %d: %s", res.StatusCode, body)
	}

	res, body = doJSON(t, http.MethodPost, srv.URL+"/v0/assist", map[string]any{"action": "workflows", "transcript": "we onboard clients"}, alice)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), "Onboarding") {
		t.Fatalf("assist %d: %s", res.StatusCode, body)
	}
}

func TestSDKSyncRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	login := opsmapsdk.New(srv.URL)
	token, err := login.DevLogin(ctx, "alice")
	if err != nil || token == "" {
		t.Fatalf("dev login: %q %v", token, err)
	}
	if subject, err := authn.Verify(testSecret, token); err != nil || subject != "alice" {
		t.Fatalf("token subject %q %v", subject, err)
	}

	store := remote.NewHTTPStore(opsmapsdk.New(srv.URL), func(context.Context) (string, error) { return token, nil })
	ws := domain.Workspace{ID: "w1", OwnerUserID: "alice", Name: "Acme", CreatedAt: "2024-01-01T00:00:00Z"}
	if err := store.UpsertWorkspace(ctx, ws); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := store.LoadWorkspacesForUser(ctx, "alice")
	if err != nil || len(got) != 1 || got[0].Name != "Acme" {
		t.Fatalf("load: %+v %v", got, err)
	}

	bobToken := tokenFor(t, "bob")
	bobStore := remote.NewHTTPStore(opsmapsdk.New(srv.URL), func(context.Context) (string, error) { return bobToken, nil })
	ws.OwnerUserID = "bob"
	if err := bobStore.UpsertWorkspace(ctx, ws); !errors.Is(err, remote.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	health, err := login.Health(ctx)
	if err != nil || health.Version != "test" {
		t.Fatalf("health %+v %v", health, err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodGet, srv.URL+"/v0/health", nil, "")
	res, body := doJSON(t, http.MethodGet, srv.URL+"/metrics", nil, "")
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), "opsmap_http_requests_total") {
		t.Fatalf("metrics %d", res.StatusCode)
	}
}

func TestOpenAPIDocumentConcurrentFirstRequests(t *testing.T) {
	srv := newTestServer(t)
	const n = 8
	bodies := make([]string, n)
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := http.Get(srv.URL + "/v0/openapi.json")
			if err != nil {
				return
			}
			defer res.Body.Close()
			b, _ := io.ReadAll(res.Body)
			codes[i] = res.StatusCode
			bodies[i] = string(b)
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		if codes[i] != http.StatusOK {
			t.Fatalf("request %d: status %d", i, codes[i])
		}
		if !strings.Contains(bodies[i], "bearerAuth") {
			t.Fatalf("request %d: security scheme missing", i)
		}
		if bodies[i] != bodies[0] {
			t.Fatalf("request %d served a different document", i)
		}
	}
}
