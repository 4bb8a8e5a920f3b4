package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSyncCountsOutcome(t *testing.T) {
	before := testutil.ToFloat64(SyncCycles("ok"))
	RecordSync("ok", 20*time.Millisecond)
	if got := testutil.ToFloat64(SyncCycles("ok")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}

func TestStoreMutationsByLabel(t *testing.T) {
	c := StoreMutations.WithLabelValues("function.add", "ok")
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordHTTPRequest("GET", "/v0/health", 200, time.Millisecond)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "opsmap_http_requests_total") {
		t.Fatalf("http counter missing from exposition")
	}
}
