package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"hoteldash/internal/core"
	applog "hoteldash/internal/log"
	"hoteldash/internal/services"
)

// PageTitle is the heading of the dashboard page.
const PageTitle = "Hotel Booking Dashboard"

type pageData struct {
	Title      string
	Meta       services.Meta
	Groups     []option
	Axes       []option
	Preview    core.Preview
	Views      services.ViewsResult
	PieURL     string
	BarURL     string
	ScatterURL string
}

type previewResponse struct {
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Head    [][]string `json:"head"`
}

// handleIndex renders the full page. Invalid selector values fall back to
// the first option instead of failing.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	params := ParseSelectionParams(r.URL.Query())
	sel := s.dash.SelectionOrDefault(params.Group, params.Axis)
	views, err := s.dash.Views(ctx, sel)
	if err != nil {
		slog.ErrorContext(ctx, "Views computation failed", "error", err, "group", sel.Group, "axis", sel.Axis)
		http.Error(w, "failed to compute views", statusForContext(err))
		return
	}

	meta := s.dash.Meta()
	q := selectionQuery(sel.Group.String(), sel.Axis)
	ext := "." + s.dash.Format()
	data := pageData{
		Title:      PageTitle,
		Meta:       meta,
		Groups:     options(meta.GroupFields, sel.Group.String()),
		Axes:       options(meta.NumericColumns, sel.Axis),
		Preview:    s.dash.Preview(0),
		Views:      views,
		PieURL:     "/charts/" + services.ChartPie + ext,
		BarURL:     "/charts/" + services.ChartBar + ext + q,
		ScatterURL: "/charts/" + services.ChartScatter + ext + q,
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		slog.ErrorContext(ctx, "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleChart serves one chart image. Views that the dataset cannot produce
// answer 404 with the reason as body.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	kind, ext, _ := strings.Cut(mux.Vars(r)["name"], ".")
	if ext != s.dash.Format() {
		http.NotFound(w, r)
		return
	}

	// Only the selector a chart reads is validated; stale values of the
	// other one are ignored.
	params := ParseSelectionParams(r.URL.Query())
	switch kind {
	case services.ChartPie:
		params = SelectionParams{}
	case services.ChartBar:
		params.Axis = ""
	case services.ChartScatter:
		params.Group = ""
	}
	sel, err := s.dash.Selection(params.Group, params.Axis)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	img, err := s.dash.Chart(ctx, kind, sel)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrUnknownChart):
		http.NotFound(w, r)
		return
	case errors.Is(err, core.ErrRevenueUnavailable):
		http.Error(w, services.RevenueWarning, http.StatusNotFound)
		return
	case errors.Is(err, core.ErrNoNumericColumns):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	default:
		applog.FromContext(ctx).WithComponent(applog.ComponentCharts).ErrorContext(ctx, "Chart rendering failed",
			applog.FieldOperation, applog.OpRender, "chart", kind, applog.FieldError, err)
		http.Error(w, "failed to render chart", statusForContext(err))
		return
	}

	w.Header().Set("Content-Type", s.dash.ContentType())
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(img)
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(s.dash.Meta()).Write(w)
}

// handleViews returns all three views as JSON; a view that could not be
// derived carries an error object instead of data.
func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	params := ParseSelectionParams(r.URL.Query())
	sel, err := s.dash.Selection(params.Group, params.Axis)
	if err != nil {
		NewJSONResponse().Status(http.StatusBadRequest).Error(services.ErrorCode(err), err.Error()).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	views, err := s.dash.Views(ctx, sel)
	if err != nil {
		slog.ErrorContext(ctx, "Views computation failed", "error", err)
		NewJSONResponse().Status(statusForContext(err)).Error(services.CodeInternal, "failed to compute views").Write(w)
		return
	}
	NewJSONResponse().Data(views).Write(w)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	n, err := ParseRowsParam(r.URL.Query())
	if err != nil {
		NewJSONResponse().Status(http.StatusBadRequest).Error("invalid_rows", err.Error()).Write(w)
		return
	}
	p := s.dash.Preview(n)
	NewJSONResponse().Data(previewResponse{Rows: p.Rows, Columns: p.Columns, Head: p.Head}).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports whether templates loaded and every dependency check
// passes.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"dataset": "ok"}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			checks[name] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	NewJSONResponse().Status(httpStatus).Data(map[string]any{
		"status": status,
		"checks": checks,
	}).Write(w)
}

func statusForContext(err error) int {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
