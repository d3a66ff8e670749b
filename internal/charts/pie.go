package charts

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"hoteldash/internal/core"
)

// pieChart draws wedges proportional to counts, clockwise from twelve
// o'clock, each labelled with its percentage.
type pieChart struct {
	counts []core.CategoryCount
	colors []color.Color
	total  int
}

func newPieChart(counts []core.CategoryCount) *pieChart {
	pc := &pieChart{counts: counts, colors: make([]color.Color, len(counts))}
	for i, c := range counts {
		pc.colors[i] = plotutil.Color(i)
		pc.total += c.Count
	}
	return pc
}

// Plot implements plot.Plotter
func (pc *pieChart) Plot(c draw.Canvas, plt *plot.Plot) {
	if pc.total == 0 {
		return
	}
	size := c.Rectangle.Size()
	radius := vg.Length(math.Min(float64(size.X), float64(size.Y))) * 0.45
	center := vg.Point{X: c.Min.X + size.X/2, Y: c.Min.Y + size.Y/2}

	labelStyle := plt.Legend.TextStyle
	labelStyle.XAlign = draw.XCenter
	labelStyle.YAlign = draw.YCenter

	start := math.Pi / 2
	for i, cc := range pc.counts {
		frac := float64(cc.Count) / float64(pc.total)
		sweep := frac * 2 * math.Pi
		c.FillPolygon(pc.colors[i], wedge(center, radius, start, start-sweep))

		mid := start - sweep/2
		at := vg.Point{
			X: center.X + radius*0.65*vg.Length(math.Cos(mid)),
			Y: center.Y + radius*0.65*vg.Length(math.Sin(mid)),
		}
		if frac >= 0.03 {
			c.FillText(labelStyle, at, fmt.Sprintf("%.1f%%", frac*100))
		}
		start -= sweep
	}
}

// wedge approximates the sector between two angles with a polygon.
func wedge(center vg.Point, r vg.Length, from, to float64) []vg.Point {
	steps := int(math.Ceil(math.Abs(from-to) / (math.Pi / 90)))
	if steps < 1 {
		steps = 1
	}
	pts := make([]vg.Point, 0, steps+2)
	pts = append(pts, center)
	for i := 0; i <= steps; i++ {
		a := from + (to-from)*float64(i)/float64(steps)
		pts = append(pts, vg.Point{
			X: center.X + r*vg.Length(math.Cos(a)),
			Y: center.Y + r*vg.Length(math.Sin(a)),
		})
	}
	return pts
}
