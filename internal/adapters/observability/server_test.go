package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsServer_ServesAppRegistry(t *testing.T) {
	reg := InitRegistry()
	ObserveFetch("ok", 3)
	ObserveCache("memory", "hit")

	srv := newMetricsServer("127.0.0.1:0", reg)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{"playreviews_fetches_total", "playreviews_snapshot_store_events_total"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s on the metrics server, got:\n%s", name, out)
		}
	}
	// the app registry carries no default process collectors
	if strings.Contains(out, "go_goroutines") {
		t.Fatalf("metrics server is serving the default registry")
	}
}
