package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ViewComputed("pie", OutcomeOK)
	m.ChartRendered("bar", time.Millisecond)
	m.CacheHit("views")
	m.CacheMiss("views")
	m.CacheExpired(3)
	m.DatasetLoaded(10, 3)
	m.EventPublished("dataset.loaded", nil)

	h := m.WrapHandler("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status=%d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.ViewComputed("bar", OutcomeUnavailable)
	m.ViewComputed("bar", OutcomeUnavailable)
	m.CacheHit("charts")
	m.CacheMiss("charts")
	m.CacheMiss("charts")
	m.CacheExpired(0)
	m.CacheExpired(4)
	m.EventPublished("dataset.loaded", errors.New("down"))
	m.DatasetLoaded(30, 15)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"views", testutil.ToFloat64(m.viewsTotal.WithLabelValues("bar", OutcomeUnavailable)), 2},
		{"hits", testutil.ToFloat64(m.cacheHits.WithLabelValues("charts")), 1},
		{"misses", testutil.ToFloat64(m.cacheMisses.WithLabelValues("charts")), 2},
		{"expired", testutil.ToFloat64(m.cacheEvictions), 4},
		{"events", testutil.ToFloat64(m.eventsTotal.WithLabelValues("dataset.loaded", OutcomeError)), 1},
		{"rows", testutil.ToFloat64(m.datasetRows), 30},
		{"columns", testutil.ToFloat64(m.datasetColumns), 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestWrapHandlerAndExposition(t *testing.T) {
	m := New()
	h := m.WrapHandler("/api/views", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/views", nil))

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/api/views", "400")); got != 1 {
		t.Fatalf("requests=%v, want 1", got)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `hoteldash_http_requests_total{route="/api/views",status="400"} 1`) {
		t.Fatalf("exposition missing request counter:\n%s", body)
	}
}
