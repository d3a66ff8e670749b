// Package charts renders the dashboard views to images with gonum/plot.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"hoteldash/internal/core"
)

// Titles shown above each chart.
const (
	PieTitle = "Hotel Booking Distribution"
)

// BarTitle is the title of the grouped revenue chart.
func BarTitle(g core.GroupField) string {
	return "Total Revenue by " + g.String()
}

// ScatterTitle is the title of the scatter chart.
func ScatterTitle(axis string) string {
	return axis + " vs Revenue by Hotel Type"
}

// ErrUnsupportedFormat is returned for formats gonum/plot cannot encode.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Renderer draws charts at a fixed size and format.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
	Format string
}

// DefaultRenderer draws 8x5 inch PNGs.
func DefaultRenderer() Renderer {
	return Renderer{Width: 8 * vg.Inch, Height: 5 * vg.Inch, Format: "png"}
}

// ContentType returns the MIME type of the renderer's format.
func (r Renderer) ContentType() string {
	switch r.Format {
	case "svg":
		return "image/svg+xml"
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}

func (r Renderer) encode(p *plot.Plot) ([]byte, error) {
	switch r.Format {
	case "png", "svg", "pdf", "jpg", "jpeg":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, r.Format)
	}
	wt, err := p.WriterTo(r.Width, r.Height, r.Format)
	if err != nil {
		return nil, fmt.Errorf("create %s writer: %w", r.Format, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Format, err)
	}
	return buf.Bytes(), nil
}

// Pie draws the booking share per category.
func (r Renderer) Pie(counts []core.CategoryCount) ([]byte, error) {
	p := plot.New()
	p.Title.Text = PieTitle
	p.HideAxes()

	pie := newPieChart(counts)
	p.Add(pie)
	for i, c := range counts {
		p.Legend.Add(c.Category, swatch{color: pie.colors[i]})
	}
	p.Legend.Top = true
	return r.encode(p)
}

// Bar draws total revenue per group value. Bars carry their value as a
// label; the value axis itself is hidden.
func (r Renderer) Bar(totals []core.GroupRevenue, g core.GroupField) ([]byte, error) {
	p := plot.New()
	p.Title.Text = BarTitle(g)
	p.X.Label.Text = g.String()
	p.HideY()
	if len(totals) == 0 {
		return r.encode(p)
	}

	values := make(plotter.Values, len(totals))
	names := make([]string, len(totals))
	xys := make(plotter.XYs, len(totals))
	labels := make([]string, len(totals))
	maxTotal := 0.0
	for i, t := range totals {
		values[i] = t.Total
		names[i] = t.Group
		xys[i] = plotter.XY{X: float64(i), Y: t.Total}
		labels[i] = core.FormatSI(t.Total)
		maxTotal = math.Max(maxTotal, t.Total)
	}

	bars, err := plotter.NewBarChart(values, barWidth(r.Width, len(totals)))
	if err != nil {
		return nil, fmt.Errorf("bar chart: %w", err)
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)

	lbls, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("bar labels: %w", err)
	}
	for i := range lbls.TextStyle {
		lbls.TextStyle[i].XAlign = draw.XCenter
	}
	lbls.Offset = vg.Point{Y: vg.Points(3)}
	p.Add(lbls)

	p.NominalX(names...)
	p.Y.Min = math.Min(0, p.Y.Min)
	if maxTotal > 0 {
		p.Y.Max = maxTotal * 1.12
	}
	return r.encode(p)
}

// Scatter draws axis against Revenue with one series per hotel, in order of
// first appearance. Points with a missing coordinate are not drawn.
func (r Renderer) Scatter(points []core.ScatterPoint, axis string) ([]byte, error) {
	p := plot.New()
	p.Title.Text = ScatterTitle(axis)
	p.X.Label.Text = axis
	p.Y.Label.Text = core.ColRevenue
	p.Legend.Top = true

	var order []string
	byHotel := make(map[string]plotter.XYs)
	for _, pt := range points {
		if !finite(pt.X) || !finite(pt.Revenue) {
			continue
		}
		if _, ok := byHotel[pt.Hotel]; !ok {
			order = append(order, pt.Hotel)
		}
		byHotel[pt.Hotel] = append(byHotel[pt.Hotel], plotter.XY{X: pt.X, Y: pt.Revenue})
	}

	for i, hotel := range order {
		s, err := plotter.NewScatter(byHotel[hotel])
		if err != nil {
			return nil, fmt.Errorf("scatter %q: %w", hotel, err)
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Radius = vg.Points(2)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(hotel, s)
	}
	return r.encode(p)
}

func barWidth(total vg.Length, n int) vg.Length {
	w := total * 0.7 / vg.Length(n)
	if w > vg.Points(60) {
		w = vg.Points(60)
	}
	if w < vg.Points(2) {
		w = vg.Points(2)
	}
	return w
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// swatch is a legend thumbnail filled with one colour.
type swatch struct {
	color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.color, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	})
}
