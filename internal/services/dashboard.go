package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hoteldash/internal/cache"
	"hoteldash/internal/charts"
	"hoteldash/internal/core"
	applog "hoteldash/internal/log"
	"hoteldash/internal/metrics"
)

// RevenueWarning replaces the bar and scatter charts when the dataset
// cannot produce Revenue.
const RevenueWarning = "Revenue columns not found in the dataset."

// Chart kinds served by the dashboard.
const (
	ChartPie     = "pie"
	ChartBar     = "bar"
	ChartScatter = "scatter"
)

// Error codes attached to views that could not be derived.
const (
	CodeRevenueUnavailable = "revenue_unavailable"
	CodeInvalidGroup       = "invalid_group"
	CodeInvalidAxis        = "invalid_axis"
	CodeNoNumericColumns   = "no_numeric_columns"
	CodeUnknownColumn      = "unknown_column"
	CodeInternal           = "internal"
)

const maxPreviewRows = 100

var ErrUnknownChart = errors.New("unknown chart")

// ViewError is the serialisable form of a view failure.
type ViewError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ViewResult carries either the view data or the reason it is missing.
type ViewResult[T any] struct {
	Title string     `json:"title"`
	Data  T          `json:"data,omitempty"`
	Error *ViewError `json:"error,omitempty"`
}

// OK reports whether the view rendered.
func (v ViewResult[T]) OK() bool {
	return v.Error == nil
}

// ViewsResult is one render pass in a form that can be cached and encoded.
type ViewsResult struct {
	Group        string                           `json:"group"`
	Axis         string                           `json:"axis"`
	Distribution ViewResult[[]core.CategoryCount] `json:"distribution"`
	Revenue      ViewResult[[]core.GroupRevenue]  `json:"revenue"`
	Scatter      ViewResult[[]core.ScatterPoint]  `json:"scatter"`
}

// Meta describes the loaded dataset and the selector options it allows.
type Meta struct {
	Source           string   `json:"source"`
	Rows             int      `json:"rows"`
	Columns          int      `json:"columns"`
	ColumnNames      []string `json:"column_names"`
	NumericColumns   []string `json:"numeric_columns"`
	GroupFields      []string `json:"group_fields"`
	RevenueAvailable bool     `json:"revenue_available"`
	DefaultGroup     string   `json:"default_group"`
	DefaultAxis      string   `json:"default_axis"`
}

// DashboardOptions configures a Dashboard. Zero values are usable.
type DashboardOptions struct {
	Renderer    charts.Renderer
	ViewCache   cache.Cache[ViewsResult]
	ChartCache  cache.Cache[[]byte]
	Metrics     *metrics.Metrics
	Logger      *applog.Logger
	PreviewRows int
}

// Dashboard serves the three views of one loaded dataset. It is safe for
// concurrent use: the pipeline is read-only and the caches lock internally.
type Dashboard struct {
	source      string
	pipeline    *core.Pipeline
	renderer    charts.Renderer
	views       *cache.Memo[ViewsResult]
	charts      *cache.Memo[[]byte]
	metrics     *metrics.Metrics
	log         *applog.StructuredLogger
	previewRows int
}

// NewDashboard builds the pipeline for ds, deriving Revenue once.
func NewDashboard(source string, ds *core.Dataset, opts DashboardOptions) *Dashboard {
	if opts.Renderer.Format == "" {
		opts.Renderer = charts.DefaultRenderer()
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 5
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentViews})
	}
	m := opts.Metrics
	d := &Dashboard{
		source:      source,
		pipeline:    core.NewPipeline(ds),
		renderer:    opts.Renderer,
		metrics:     m,
		log:         applog.NewStructuredLogger(opts.Logger),
		previewRows: opts.PreviewRows,
	}
	d.views = cache.NewMemo(opts.ViewCache,
		func() { m.CacheHit("views") },
		func() { m.CacheMiss("views") })
	d.charts = cache.NewMemo(opts.ChartCache,
		func() { m.CacheHit("charts") },
		func() { m.CacheMiss("charts") })

	if _, err := d.pipeline.Revenue(); err != nil {
		slog.Warn("Revenue unavailable, bar and scatter views disabled", "source", source, "error", err)
	}
	return d
}

// Source names the loader the dataset came from.
func (d *Dashboard) Source() string {
	return d.source
}

// Pipeline exposes the underlying view pipeline.
func (d *Dashboard) Pipeline() *core.Pipeline {
	return d.pipeline
}

// Format is the image format of rendered charts, e.g. "png".
func (d *Dashboard) Format() string {
	return d.renderer.Format
}

// ContentType is the MIME type of rendered charts.
func (d *Dashboard) ContentType() string {
	return d.renderer.ContentType()
}

// Meta describes the dataset and the selector domains.
func (d *Dashboard) Meta() Meta {
	ds := d.pipeline.Dataset()
	rows, cols := ds.Shape()
	groups := core.GroupFields()
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.String()
	}
	def := d.pipeline.DefaultSelection()
	return Meta{
		Source:           d.source,
		Rows:             rows,
		Columns:          cols,
		ColumnNames:      ds.Names(),
		NumericColumns:   ds.NumericColumns(),
		GroupFields:      names,
		RevenueAvailable: d.pipeline.RevenueAvailable(),
		DefaultGroup:     def.Group.String(),
		DefaultAxis:      def.Axis,
	}
}

// Selection validates raw selector values; empty values take the default.
func (d *Dashboard) Selection(group, axis string) (core.Selection, error) {
	return d.pipeline.ParseSelection(group, axis)
}

// SelectionOrDefault resolves each selector on its own, replacing an invalid
// value with the first option.
func (d *Dashboard) SelectionOrDefault(group, axis string) core.Selection {
	sel := d.pipeline.DefaultSelection()
	if s, err := d.pipeline.ParseSelection(group, ""); err == nil {
		sel.Group = s.Group
	}
	if s, err := d.pipeline.ParseSelection("", axis); err == nil {
		sel.Axis = s.Axis
	}
	return sel
}

// Preview returns the dataset shape and its first n rows. Non-positive n
// uses the configured default.
func (d *Dashboard) Preview(n int) core.Preview {
	if n <= 0 {
		n = d.previewRows
	}
	if n > maxPreviewRows {
		n = maxPreviewRows
	}
	return d.pipeline.Preview(n)
}

// Views computes, or returns the memoised, views for sel.
func (d *Dashboard) Views(ctx context.Context, sel core.Selection) (ViewsResult, error) {
	return d.views.Do(ctx, "views|"+sel.Key(), func(ctx context.Context) (ViewsResult, error) {
		if err := ctx.Err(); err != nil {
			return ViewsResult{}, err
		}
		v := d.pipeline.Render(sel)
		res := ViewsResult{
			Group:        sel.Group.String(),
			Axis:         sel.Axis,
			Distribution: ViewResult[[]core.CategoryCount]{Title: charts.PieTitle, Data: v.Distribution.Data, Error: toViewError(v.Distribution.Err)},
			Revenue:      ViewResult[[]core.GroupRevenue]{Title: charts.BarTitle(sel.Group), Data: v.Revenue.Data, Error: toViewError(v.Revenue.Err)},
			Scatter:      ViewResult[[]core.ScatterPoint]{Title: charts.ScatterTitle(sel.Axis), Data: v.Scatter.Data, Error: toViewError(v.Scatter.Err)},
		}
		d.observe(ctx, ChartPie, sel, v.Distribution.Err)
		d.observe(ctx, ChartBar, sel, v.Revenue.Err)
		d.observe(ctx, ChartScatter, sel, v.Scatter.Err)
		return res, nil
	})
}

// Chart renders, or returns the memoised, image for one view. Views that
// cannot be derived return their core error, e.g. core.ErrRevenueUnavailable.
func (d *Dashboard) Chart(ctx context.Context, kind string, sel core.Selection) ([]byte, error) {
	var key string
	switch kind {
	case ChartPie:
		key = ChartPie
	case ChartBar:
		key = ChartBar + "|" + sel.Group.String()
	case ChartScatter:
		key = ChartScatter + "|" + sel.Axis
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, kind)
	}

	return d.charts.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		var (
			img []byte
			err error
		)
		switch kind {
		case ChartPie:
			var counts []core.CategoryCount
			if counts, err = d.pipeline.Distribution(); err == nil {
				img, err = d.renderer.Pie(counts)
			}
		case ChartBar:
			var totals []core.GroupRevenue
			if totals, err = d.pipeline.GroupedRevenue(sel.Group); err == nil {
				img, err = d.renderer.Bar(totals, sel.Group)
			}
		case ChartScatter:
			var points []core.ScatterPoint
			if points, err = d.pipeline.Scatter(sel.Axis); err == nil {
				img, err = d.renderer.Scatter(points, sel.Axis)
			}
		}
		d.observe(ctx, kind, sel, err)
		if err != nil {
			return nil, err
		}
		d.metrics.ChartRendered(kind, time.Since(start))
		return img, nil
	})
}

func (d *Dashboard) observe(ctx context.Context, view string, sel core.Selection, err error) {
	switch {
	case err == nil:
		d.metrics.ViewComputed(view, metrics.OutcomeOK)
	case errors.Is(err, core.ErrRevenueUnavailable):
		d.metrics.ViewComputed(view, metrics.OutcomeUnavailable)
		slog.DebugContext(ctx, "View unavailable", "view", view, "group", sel.Group, "axis", sel.Axis, "error", err)
	case ErrorCode(err) != CodeInternal:
		d.metrics.ViewComputed(view, metrics.OutcomeError)
		d.log.LogViewUnavailable(ctx, view, sel.Group.String(), sel.Axis, err)
	default:
		d.metrics.ViewComputed(view, metrics.OutcomeError)
		fields := applog.NewFields().WithSelection(sel.Group.String(), sel.Axis)
		fields[applog.FieldView] = view
		d.log.LogError(ctx, "View failed", err, applog.ComponentViews, applog.OpRender, fields)
	}
}

// ErrorCode classifies a view error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrRevenueUnavailable):
		return CodeRevenueUnavailable
	case errors.Is(err, core.ErrInvalidGroup):
		return CodeInvalidGroup
	case errors.Is(err, core.ErrInvalidAxis):
		return CodeInvalidAxis
	case errors.Is(err, core.ErrNoNumericColumns):
		return CodeNoNumericColumns
	case errors.Is(err, core.ErrUnknownColumn):
		return CodeUnknownColumn
	default:
		return CodeInternal
	}
}

func toViewError(err error) *ViewError {
	if err == nil {
		return nil
	}
	code := ErrorCode(err)
	msg := err.Error()
	if code == CodeRevenueUnavailable {
		msg = RevenueWarning
	}
	return &ViewError{Code: code, Message: msg, Detail: err.Error()}
}
