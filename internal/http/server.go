package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	applog "hoteldash/internal/log"
	"hoteldash/internal/metrics"
	"hoteldash/internal/middleware/ratelimit"
	"hoteldash/internal/middleware/security"
	"hoteldash/internal/middleware/trace"
	"hoteldash/internal/services"
	appweb "hoteldash/web"
)

const defaultRequestTimeout = 7 * time.Second

// ReadyCheck reports whether a dependency is usable.
type ReadyCheck func(ctx context.Context) error

// Options holds the optional collaborators of the server.
type Options struct {
	Metrics        *metrics.Metrics
	Logger         *applog.Logger
	ChartLimiter   *ratelimit.Limiter
	Detector       *security.Detector
	ReadyChecks    map[string]ReadyCheck
	RequestTimeout time.Duration
}

// Server renders the dashboard page, the chart images and the JSON API for
// one loaded dataset.
type Server struct {
	http.Server
	dash      *services.Dashboard
	templates *template.Template
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	checks    map[string]ReadyCheck
	timeout   time.Duration
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, dash *services.Dashboard, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Detector == nil {
		opts.Detector, _ = security.NewDetector()
	}

	s := &Server{
		dash:    dash,
		metrics: opts.Metrics,
		limiter: opts.ChartLimiter,
		checks:  opts.ReadyChecks,
		timeout: opts.RequestTimeout,
		started: time.Now(),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	r := mux.NewRouter()
	route := func(path, name string, h http.Handler) *mux.Route {
		return r.Handle(path, s.metrics.WrapHandler(name, h))
	}

	route("/", "index", http.HandlerFunc(s.handleIndex)).Methods(http.MethodGet, http.MethodHead)

	var charts http.Handler = http.HandlerFunc(s.handleChart)
	if s.limiter != nil {
		charts = s.limiter.Middleware(opts.Detector.ExtractClientIP, nil)(charts)
	}
	route("/charts/{name}", "charts", charts).Methods(http.MethodGet, http.MethodHead)

	api := r.PathPrefix("/api").Subrouter()
	api.Handle("/meta", s.metrics.WrapHandler("api_meta", http.HandlerFunc(s.handleMeta))).Methods(http.MethodGet)
	api.Handle("/views", s.metrics.WrapHandler("api_views", http.HandlerFunc(s.handleViews))).Methods(http.MethodGet)
	api.Handle("/preview", s.metrics.WrapHandler("api_preview", http.HandlerFunc(s.handlePreview))).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	var h http.Handler = r
	h = trace.NewMiddleware(opts.Detector.ExtractClientIP, opts.Logger).Middleware(h)
	h = opts.Detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = handlers.CompressHandler(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the chart limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// recoveryLogger routes panics caught by gorilla/handlers to slog.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	slog.Error("Recovered from panic", "panic", fmt.Sprint(v...))
}
