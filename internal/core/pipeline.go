package core

import (
	"fmt"
	"strings"
)

// View is the outcome of one visualization. Err is set instead of Data
// when that view alone could not be derived.
type View[T any] struct {
	Data T
	Err  error
}

// OK reports whether the view rendered.
func (v View[T]) OK() bool {
	return v.Err == nil
}

// Views groups the three independently derived visualizations of one pass.
type Views struct {
	Selection    Selection
	Distribution View[[]CategoryCount]
	Revenue      View[[]GroupRevenue]
	Scatter      View[[]ScatterPoint]
}

// Preview is the dataset shape plus its first rows, header included.
type Preview struct {
	Rows    int
	Columns int
	Head    [][]string
}

// Pipeline owns the loaded dataset and its derived Revenue. Every method
// is a pure function of the dataset and its arguments.
type Pipeline struct {
	ds     *Dataset
	rev    Revenue
	revErr error
}

// NewPipeline derives Revenue once for the lifetime of the dataset.
func NewPipeline(ds *Dataset) *Pipeline {
	rev, err := DeriveRevenue(ds)
	return &Pipeline{ds: ds, rev: rev, revErr: err}
}

// Dataset returns the shared read-only dataset.
func (p *Pipeline) Dataset() *Dataset {
	return p.ds
}

// Revenue returns the derived column and the reason it is missing, if any.
func (p *Pipeline) Revenue() (Revenue, error) {
	return p.rev, p.revErr
}

// RevenueAvailable reports whether bar and scatter views can be drawn.
func (p *Pipeline) RevenueAvailable() bool {
	return p.revErr == nil
}

// DefaultSelection mirrors the first option of each selector.
func (p *Pipeline) DefaultSelection() Selection {
	sel := Selection{Group: GroupHotel}
	if nums := p.ds.NumericColumns(); len(nums) > 0 {
		sel.Axis = nums[0]
	}
	return sel
}

// ParseSelection validates raw selector values. Empty values take the
// default option.
func (p *Pipeline) ParseSelection(group, axis string) (Selection, error) {
	sel := p.DefaultSelection()
	if strings.TrimSpace(group) != "" {
		g, err := ParseGroupField(group)
		if err != nil {
			return Selection{}, err
		}
		sel.Group = g
	}
	if axis = strings.TrimSpace(axis); axis != "" {
		if !p.ds.IsNumeric(axis) {
			return Selection{}, fmt.Errorf("%w: %q", ErrInvalidAxis, axis)
		}
		sel.Axis = axis
	}
	return sel, nil
}

// Distribution returns the booking count per hotel.
func (p *Pipeline) Distribution() ([]CategoryCount, error) {
	return CategoryDistribution(p.ds, ColHotel)
}

// GroupedRevenue returns total revenue per value of g.
func (p *Pipeline) GroupedRevenue(g GroupField) ([]GroupRevenue, error) {
	if p.revErr != nil {
		return nil, p.revErr
	}
	return GroupedRevenue(p.ds, p.rev, g)
}

// Scatter returns the (axis, Revenue, hotel) projection.
func (p *Pipeline) Scatter(axis string) ([]ScatterPoint, error) {
	if p.revErr != nil {
		return nil, p.revErr
	}
	if axis == "" {
		return nil, ErrNoNumericColumns
	}
	return Scatter(p.ds, p.rev, axis)
}

// Render computes all three views for sel. A failing view never prevents
// the others from rendering.
func (p *Pipeline) Render(sel Selection) Views {
	v := Views{Selection: sel}
	v.Distribution.Data, v.Distribution.Err = p.Distribution()
	v.Revenue.Data, v.Revenue.Err = p.GroupedRevenue(sel.Group)
	v.Scatter.Data, v.Scatter.Err = p.Scatter(sel.Axis)
	return v
}

// Preview returns the dataset shape and its first n records.
func (p *Pipeline) Preview(n int) Preview {
	rows, cols := p.ds.Shape()
	return Preview{Rows: rows, Columns: cols, Head: p.ds.Head(n)}
}
