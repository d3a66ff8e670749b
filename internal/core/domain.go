package core

import (
	"errors"
	"fmt"
	"strings"
)

// Well-known column names of the hotel bookings dataset.
const (
	ColHotel         = "hotel"
	ColCustomerType  = "customer_type"
	ColCountry       = "country"
	ColMarketSegment = "market_segment"
	ColADR           = "adr"
	ColWeekendNights = "stays_in_weekend_nights"
	ColWeekNights    = "stays_in_week_nights"

	// ColRevenue names the derived column. It is never part of the loaded schema.
	ColRevenue = "Revenue"
)

// GroupField is one of the categorical columns the bar chart can be grouped by.
type GroupField string

const (
	GroupHotel         GroupField = ColHotel
	GroupCustomerType  GroupField = ColCustomerType
	GroupCountry       GroupField = ColCountry
	GroupMarketSegment GroupField = ColMarketSegment
)

// GroupFields returns the fixed set of grouping options in display order.
func GroupFields() []GroupField {
	return []GroupField{GroupHotel, GroupCustomerType, GroupCountry, GroupMarketSegment}
}

// IsValid reports whether g belongs to the fixed grouping set.
func (g GroupField) IsValid() bool {
	switch g {
	case GroupHotel, GroupCustomerType, GroupCountry, GroupMarketSegment:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (g GroupField) String() string {
	return string(g)
}

// ParseGroupField validates a raw selector value.
func ParseGroupField(s string) (GroupField, error) {
	g := GroupField(strings.TrimSpace(s))
	if !g.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGroup, s)
	}
	return g, nil
}

// Selection holds the two user-chosen parameters of a render pass.
type Selection struct {
	Group GroupField
	Axis  string
}

// Key returns a stable identifier for memoising views of this selection.
func (s Selection) Key() string {
	return string(s.Group) + "|" + s.Axis
}

var (
	ErrRevenueUnavailable = errors.New("revenue unavailable")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrInvalidGroup       = errors.New("invalid group field")
	ErrInvalidAxis        = errors.New("invalid axis field")
	ErrNoNumericColumns   = errors.New("dataset has no numeric columns")
)

// DataLoadError reports that the external tabular resource could not be
// read. It is fatal: the dashboard cannot start without a dataset.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load dataset from %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// NewDataLoadError wraps err unless it already is a DataLoadError.
func NewDataLoadError(source string, err error) error {
	var dle *DataLoadError
	if errors.As(err, &dle) {
		return err
	}
	return &DataLoadError{Source: source, Err: err}
}

// RevenueUnavailableError lists the source columns that prevented the
// Revenue derivation. It matches ErrRevenueUnavailable with errors.Is.
type RevenueUnavailableError struct {
	Missing []string
}

func (e *RevenueUnavailableError) Error() string {
	return "revenue unavailable: missing column(s) " + strings.Join(e.Missing, ", ")
}

func (e *RevenueUnavailableError) Is(target error) bool {
	return target == ErrRevenueUnavailable
}
