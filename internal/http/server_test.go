package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hoteldash/internal/cache"
	"hoteldash/internal/core"
	"hoteldash/internal/metrics"
	"hoteldash/internal/middleware/ratelimit"
	"hoteldash/internal/services"
)

const bookingsCSV = `hotel,lead_time,adr,stays_in_weekend_nights,stays_in_week_nights,customer_type
Resort Hotel,10,100,1,2,Transient
City Hotel,20,50,0,1,Contract
City Hotel,5,80,2,0,Transient
`

const noRevenueCSV = `hotel,lead_time,customer_type
Resort Hotel,10,Transient
City Hotel,20,Contract
`

func newTestServer(t *testing.T, csv string, opts Options) *Server {
	t.Helper()
	ds, err := core.FromCSV(strings.NewReader(csv), core.DefaultSchema(), core.CSVOptions{})
	if err != nil {
		t.Fatalf("FromCSV: %v", err)
	}
	dash := services.NewDashboard("memory:test", ds, services.DashboardOptions{
		Metrics:    opts.Metrics,
		ViewCache:  cache.NewLRUCache[services.ViewsResult](16, time.Minute),
		ChartCache: cache.NewLRUCache[[]byte](16, time.Minute),
	})
	srv := NewServer(":0", dash, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexRendersAllViews(t *testing.T) {
	srv := newTestServer(t, bookingsCSV, Options{})

	rr := do(srv, http.MethodGet, "/?group=customer_type&x=adr", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{
		"<h1>Hotel Booking Dashboard</h1>",
		"Dataset shape: (3, 6)",
		"Hotel Booking Distribution",
		"Total Revenue by customer_type",
		"adr vs Revenue by Hotel Type",
		`src="/charts/pie.png"`,
		`src="/charts/bar.png?group=customer_type&amp;x=adr"`,
		`<option value="customer_type" selected>`,
		`<option value="adr" selected>`,
		"460", // Transient total
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, services.RevenueWarning) {
		t.Error("page shows revenue warning for a complete dataset")
	}
}

func TestIndexRevenueUnavailable(t *testing.T) {
	srv := newTestServer(t, noRevenueCSV, Options{})

	rr := do(srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if n := strings.Count(body, services.RevenueWarning); n != 2 {
		t.Fatalf("warning shown %d times, want 2 (bar and scatter)", n)
	}
	if !strings.Contains(body, `src="/charts/pie.png"`) {
		t.Fatal("pie chart must still render")
	}
	if strings.Contains(body, "/charts/bar.png") || strings.Contains(body, "/charts/scatter.png") {
		t.Fatal("bar and scatter images must not be linked")
	}
}

func TestIndexInvalidSelectionFallsBack(t *testing.T) {
	srv := newTestServer(t, bookingsCSV, Options{})

	rr := do(srv, http.MethodGet, "/?group=meal&x=hotel", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `<option value="hotel" selected>`) || !strings.Contains(body, `<option value="lead_time" selected>`) {
		t.Fatal("expected default options to be selected")
	}
}

func TestChartEndpoints(t *testing.T) {
	srv := newTestServer(t, bookingsCSV, Options{})
	bare := newTestServer(t, noRevenueCSV, Options{})

	tests := []struct {
		name   string
		srv    *Server
		target string
		status int
		body   string
	}{
		{"pie", srv, "/charts/pie.png", http.StatusOK, ""},
		{"bar", srv, "/charts/bar.png?group=customer_type", http.StatusOK, ""},
		{"scatter", srv, "/charts/scatter.png?x=adr", http.StatusOK, ""},
		{"invalid group", srv, "/charts/bar.png?group=meal", http.StatusBadRequest, "invalid group field"},
		{"invalid axis", srv, "/charts/scatter.png?x=hotel", http.StatusBadRequest, "invalid axis field"},
		{"pie ignores stale selectors", srv, "/charts/pie.png?x=hotel&group=meal", http.StatusOK, ""},
		{"bar ignores stale axis", srv, "/charts/bar.png?group=customer_type&x=hotel", http.StatusOK, ""},
		{"scatter ignores stale group", srv, "/charts/scatter.png?x=lead_time&group=meal", http.StatusOK, ""},
		{"unknown chart", srv, "/charts/heatmap.png", http.StatusNotFound, ""},
		{"wrong format", srv, "/charts/pie.svg", http.StatusNotFound, ""},
		{"pie without revenue", bare, "/charts/pie.png", http.StatusOK, ""},
		{"bar without revenue", bare, "/charts/bar.png", http.StatusNotFound, services.RevenueWarning},
		{"scatter without revenue", bare, "/charts/scatter.png", http.StatusNotFound, services.RevenueWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(tt.srv, http.MethodGet, tt.target, nil)
			if rr.Code != tt.status {
				t.Fatalf("status=%d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			if tt.status == http.StatusOK {
				if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
					t.Fatalf("Content-Type=%q", ct)
				}
				if !strings.HasPrefix(rr.Body.String(), "\x89PNG") {
					t.Fatal("body is not a PNG")
				}
			}
			if tt.body != "" && !strings.Contains(rr.Body.String(), tt.body) {
				t.Fatalf("body=%q, want it to contain %q", rr.Body.String(), tt.body)
			}
		})
	}
}

func TestAPIViews(t *testing.T) {
	srv := newTestServer(t, bookingsCSV, Options{})

	rr := do(srv, http.MethodGet, "/api/views?group=customer_type&x=adr", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var v services.ViewsResult
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Group != "customer_type" || v.Axis != "adr" {
		t.Fatalf("selection=(%s,%s)", v.Group, v.Axis)
	}
	if len(v.Revenue.Data) != 2 || v.Revenue.Data[0].Group != "Transient" || v.Revenue.Data[0].Total != 460 {
		t.Fatalf("revenue=%+v", v.Revenue.Data)
	}
	if len(v.Scatter.Data) != 3 {
		t.Fatalf("scatter points=%d, want 3", len(v.Scatter.Data))
	}

	rr = do(srv, http.MethodGet, "/api/views?group=meal", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
	var apiErr struct {
		Error APIError `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if apiErr.Error.Code != services.CodeInvalidGroup {
		t.Fatalf("code=%q", apiErr.Error.Code)
	}
}

func TestAPIViewsRevenueUnavailable(t *testing.T) {
	srv := newTestServer(t, noRevenueCSV, Options{})

	rr := do(srv, http.MethodGet, "/api/views", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var v services.ViewsResult
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !v.Distribution.OK() || v.Revenue.OK() || v.Scatter.OK() {
		t.Fatalf("views=%+v", v)
	}
	if v.Revenue.Error.Message != services.RevenueWarning {
		t.Fatalf("message=%q", v.Revenue.Error.Message)
	}
}

func TestAPIMetaAndPreview(t *testing.T) {
	srv := newTestServer(t, bookingsCSV, Options{})

	rr := do(srv, http.MethodGet, "/api/meta", nil)
	var meta services.Meta
	if err := json.Unmarshal(rr.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.Rows != 3 || meta.DefaultAxis != "lead_time" || !meta.RevenueAvailable {
		t.Fatalf("meta=%+v", meta)
	}

	rr = do(srv, http.MethodGet, "/api/preview?n=2", nil)
	var p previewResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if p.Rows != 3 || p.Columns != 6 || len(p.Head) != 3 || p.Head[0][0] != "hotel" {
		t.Fatalf("preview=%+v", p)
	}

	for _, bad := range []string{"abc", "-1"} {
		if rr := do(srv, http.MethodGet, "/api/preview?n="+bad, nil); rr.Code != http.StatusBadRequest {
			t.Fatalf("n=%s: status=%d, want 400", bad, rr.Code)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, bookingsCSV, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(srv, http.MethodGet, path, nil); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	failing := newTestServer(t, bookingsCSV, Options{ReadyChecks: map[string]ReadyCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}})
	rr := do(failing, http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d, want 503", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "connection refused") {
		t.Fatalf("body=%s", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, bookingsCSV, Options{Metrics: metrics.New()})
	do(srv, http.MethodGet, "/api/views?group=hotel", nil)
	do(srv, http.MethodGet, "/api/views?group=hotel", nil)

	rr := do(srv, http.MethodGet, "/metrics", nil)
	body := rr.Body.String()
	for _, want := range []string{
		`hoteldash_http_requests_total{route="api_views",status="200"} 2`,
		`hoteldash_cache_misses_total{cache="views"} 1`,
		`hoteldash_view_computations_total{outcome="ok",view="bar"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestChartRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.Config{Requests: 1, Window: time.Hour})
	srv := newTestServer(t, bookingsCSV, Options{ChartLimiter: limiter})

	if rr := do(srv, http.MethodGet, "/charts/pie.png", nil); rr.Code != http.StatusOK {
		t.Fatalf("first status=%d", rr.Code)
	}
	rr := do(srv, http.MethodGet, "/charts/pie.png", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	if rr := do(srv, http.MethodGet, "/api/meta", nil); rr.Code != http.StatusOK {
		t.Fatalf("API must not be rate limited, status=%d", rr.Code)
	}
}

func TestMiddlewareChain(t *testing.T) {
	srv := newTestServer(t, bookingsCSV, Options{})

	rr := do(srv, http.MethodGet, "/api/meta", http.Header{
		"X-Request-Id":    {"abc-123"},
		"Accept-Encoding": {"gzip"},
	})
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("X-Request-ID=%q", got)
	}
	if rr.Header().Get("Content-Encoding") != "gzip" {
		t.Fatal("response not compressed")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}

	rr = do(srv, http.MethodGet, "/static/style.css", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
		t.Fatalf("static status=%d cache=%q", rr.Code, rr.Header().Get("Cache-Control"))
	}

	if rr := do(srv, http.MethodPost, "/api/views", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status=%d, want 405", rr.Code)
	}
}
