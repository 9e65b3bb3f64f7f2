package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestReloadsCounterIncrements(t *testing.T) {
	before := testutil.ToFloat64(Reloads)
	Reloads.Inc()
	after := testutil.ToFloat64(Reloads)
	if after != before+1 {
		t.Fatalf("expected counter to increment by 1, got %f -> %f", before, after)
	}
}

func TestDNSQueriesLabelsByRcode(t *testing.T) {
	ObserveDNSQuery("SERVFAIL")
	if got := testutil.ToFloat64(DNSQueries.WithLabelValues("SERVFAIL")); got < 1 {
		t.Fatalf("expected at least 1 SERVFAIL observation, got %f", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	RegistrySize.Set(3)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "duwop_registry_size") {
		t.Fatal("expected registry size metric in exposition output")
	}
}
