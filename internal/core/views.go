package core

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// CategoryCount is one slice of the booking-share pie.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// GroupRevenue is one bar of the revenue-by-group chart.
type GroupRevenue struct {
	Group string  `json:"group"`
	Total float64 `json:"total"`
}

// ScatterPoint is one record projected onto (x, Revenue), tagged by hotel.
type ScatterPoint struct {
	X       float64
	Revenue float64
	Hotel   string
}

type scatterPointJSON struct {
	X       *float64 `json:"x"`
	Revenue *float64 `json:"revenue"`
	Hotel   string   `json:"hotel"`
}

// MarshalJSON encodes missing values as null.
func (p ScatterPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(scatterPointJSON{X: finite(p.X), Revenue: finite(p.Revenue), Hotel: p.Hotel})
}

// UnmarshalJSON decodes null back to NaN.
func (p *ScatterPoint) UnmarshalJSON(b []byte) error {
	var raw scatterPointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.X, p.Revenue, p.Hotel = orNaN(raw.X), orNaN(raw.Revenue), raw.Hotel
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// CategoryDistribution counts records per distinct value of field.
// Output is ordered by count descending, then category ascending.
func CategoryDistribution(ds *Dataset, field string) ([]CategoryCount, error) {
	values, err := ds.Strings(field)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, CategoryCount{Category: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// GroupedRevenue sums Revenue per distinct value of g. Totals are ordered
// descending; equal totals are ordered by group value so repeated runs on
// the same input agree. Missing revenue values do not contribute.
func GroupedRevenue(ds *Dataset, rev Revenue, g GroupField) ([]GroupRevenue, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroup, g)
	}
	if !rev.Available() {
		return nil, ErrRevenueUnavailable
	}
	keys, err := ds.Strings(string(g))
	if err != nil {
		return nil, err
	}
	if len(keys) != rev.Len() {
		return nil, fmt.Errorf("revenue covers %d records, dataset has %d", rev.Len(), len(keys))
	}

	totals := make(map[string]float64)
	for i, k := range keys {
		v := rev.At(i)
		if math.IsNaN(v) {
			if _, ok := totals[k]; !ok {
				totals[k] = 0
			}
			continue
		}
		totals[k] += v
	}

	out := make([]GroupRevenue, 0, len(totals))
	for k, sum := range totals {
		out = append(out, GroupRevenue{Group: k, Total: sum})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Group < out[j].Group
	})
	return out, nil
}

// Scatter projects every record onto (axis, Revenue, hotel). Nothing is
// filtered or aggregated; missing values stay NaN.
func Scatter(ds *Dataset, rev Revenue, axis string) ([]ScatterPoint, error) {
	if !ds.IsNumeric(axis) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAxis, axis)
	}
	if !rev.Available() {
		return nil, ErrRevenueUnavailable
	}
	xs, err := ds.Floats(axis)
	if err != nil {
		return nil, err
	}
	hotels, err := ds.Strings(ColHotel)
	if err != nil {
		return nil, err
	}
	if len(xs) != rev.Len() {
		return nil, fmt.Errorf("revenue covers %d records, dataset has %d", rev.Len(), len(xs))
	}

	out := make([]ScatterPoint, len(xs))
	for i := range xs {
		out[i] = ScatterPoint{X: xs[i], Revenue: rev.At(i), Hotel: hotels[i]}
	}
	return out, nil
}
