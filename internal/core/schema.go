package core

import (
	"fmt"

	"github.com/go-gota/gota/series"
)

// FieldType is the declared type of a dataset column.
type FieldType string

const (
	FieldInt    FieldType = "int"
	FieldFloat  FieldType = "float"
	FieldString FieldType = "string"
	FieldBool   FieldType = "bool"
)

// IsNumeric reports whether columns of this type are eligible as a scatter axis.
func (t FieldType) IsNumeric() bool {
	return t == FieldInt || t == FieldFloat
}

// Field is a named, typed column.
type Field struct {
	Name string
	Type FieldType
}

// Schema is an ordered list of fields. Order is the declaration order of
// the source header.
type Schema struct {
	Fields []Field
}

// DefaultSchema declares the columns of the public hotel bookings dataset.
// Columns present in a source but missing here are type-detected once at load.
func DefaultSchema() Schema {
	return Schema{Fields: []Field{
		{ColHotel, FieldString},
		{"is_canceled", FieldInt},
		{"lead_time", FieldInt},
		{"arrival_date_year", FieldInt},
		{"arrival_date_month", FieldString},
		{"arrival_date_week_number", FieldInt},
		{"arrival_date_day_of_month", FieldInt},
		{ColWeekendNights, FieldInt},
		{ColWeekNights, FieldInt},
		{"adults", FieldInt},
		{"children", FieldFloat},
		{"babies", FieldInt},
		{"meal", FieldString},
		{ColCountry, FieldString},
		{ColMarketSegment, FieldString},
		{"distribution_channel", FieldString},
		{"is_repeated_guest", FieldInt},
		{"previous_cancellations", FieldInt},
		{"previous_bookings_not_canceled", FieldInt},
		{"reserved_room_type", FieldString},
		{"assigned_room_type", FieldString},
		{"booking_changes", FieldInt},
		{"deposit_type", FieldString},
		{"agent", FieldFloat},
		{"company", FieldFloat},
		{"days_in_waiting_list", FieldInt},
		{ColCustomerType, FieldString},
		{ColADR, FieldFloat},
		{"required_car_parking_spaces", FieldInt},
		{"total_of_special_requests", FieldInt},
		{"reservation_status", FieldString},
		{"reservation_status_date", FieldString},
	}}
}

// Lookup returns the field declared under name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the field names in declaration order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Merge returns s extended with the fields of other that s does not declare.
// Declarations in s win.
func (s Schema) Merge(other Schema) Schema {
	out := Schema{Fields: append([]Field(nil), s.Fields...)}
	for _, f := range other.Fields {
		if _, ok := s.Lookup(f.Name); !ok {
			out.Fields = append(out.Fields, f)
		}
	}
	return out
}

// Validate rejects empty schemas, blank names and duplicate names.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema has no columns")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate column %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Type {
		case FieldInt, FieldFloat, FieldString, FieldBool:
		default:
			return fmt.Errorf("column %q has unsupported type %q", f.Name, f.Type)
		}
	}
	return nil
}

// seriesTypes converts the declared types into gota load options. Int
// columns load as float; settleInts narrows them afterwards.
func (s Schema) seriesTypes() map[string]series.Type {
	out := make(map[string]series.Type, len(s.Fields))
	for _, f := range s.Fields {
		t := toSeriesType(f.Type)
		if t == series.Int {
			t = series.Float
		}
		out[f.Name] = t
	}
	return out
}

func toSeriesType(t FieldType) series.Type {
	switch t {
	case FieldInt:
		return series.Int
	case FieldFloat:
		return series.Float
	case FieldBool:
		return series.Bool
	default:
		return series.String
	}
}

func fromSeriesType(t series.Type) FieldType {
	switch t {
	case series.Int:
		return FieldInt
	case series.Float:
		return FieldFloat
	case series.Bool:
		return FieldBool
	default:
		return FieldString
	}
}
