package core

// Revenue is the derived per-record metric adr * (weekend + week nights).
// It is either present for every record or absent altogether.
type Revenue struct {
	values []float64
}

// Available reports whether the derivation succeeded.
func (r Revenue) Available() bool {
	return r.values != nil
}

// Len returns the number of records covered.
func (r Revenue) Len() int {
	return len(r.values)
}

// At returns the revenue of record i.
func (r Revenue) At(i int) float64 {
	return r.values[i]
}

// Values returns a copy of the column.
func (r Revenue) Values() []float64 {
	if r.values == nil {
		return nil
	}
	return append([]float64(nil), r.values...)
}

// revenueSources are the columns the derivation reads, in formula order.
var revenueSources = []string{ColADR, ColWeekendNights, ColWeekNights}

// DeriveRevenue computes Revenue for every record when adr and both stay
// columns exist. Otherwise it returns an empty Revenue and an error that
// matches ErrRevenueUnavailable. No rounding is applied.
func DeriveRevenue(ds *Dataset) (Revenue, error) {
	var missing []string
	for _, col := range revenueSources {
		if !ds.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Revenue{}, &RevenueUnavailableError{Missing: missing}
	}

	adr, err := ds.Floats(ColADR)
	if err != nil {
		return Revenue{}, err
	}
	weekend, err := ds.Floats(ColWeekendNights)
	if err != nil {
		return Revenue{}, err
	}
	week, err := ds.Floats(ColWeekNights)
	if err != nil {
		return Revenue{}, err
	}

	values := make([]float64, len(adr))
	for i := range adr {
		values[i] = adr[i] * (weekend[i] + week[i])
	}
	return Revenue{values: values}, nil
}
