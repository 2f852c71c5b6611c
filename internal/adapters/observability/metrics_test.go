package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintech_reviews/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so the vectors are exported
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveRecords("CBE", "normalize", "retained", 3)
	observability.ObserveBatch("CBE", true)
	observability.ObserveStage("load", 40*time.Millisecond)
	observability.ObserveRetry("feed", "reviews")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"reviews_http_requests_total",
		`reviews_pipeline_records_total{outcome="retained",source="CBE",stage="normalize"}`,
		`reviews_load_batches_total{outcome="committed",source="CBE"}`,
		"reviews_pipeline_stage_duration_seconds_bucket",
		`reviews_external_retries_total{endpoint="reviews",service="feed"}`,
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestObserveRecordsIgnoresNonPositive(t *testing.T) {
	reg := observability.InitRegistry()
	observability.ObserveRecords("ZZ", "load", "failed", 0)

	rr := httptest.NewRecorder()
	observability.MetricsHandler(reg).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rr.Body.String(), `source="ZZ"`) {
		t.Fatalf("zero-count observation should not create a series")
	}
}
