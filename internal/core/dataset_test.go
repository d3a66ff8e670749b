package core

import (
	"math"
	"strings"
	"testing"
)

func TestFloatFormattedNightsKeepRevenue(t *testing.T) {
	ds := mustCSV(t, "hotel,adr,stays_in_weekend_nights,stays_in_week_nights\nResort,100,1.0,2.0\nCity,50,1,1\n")

	rev, err := DeriveRevenue(ds)
	if err != nil {
		t.Fatalf("DeriveRevenue: %v", err)
	}
	if rev.At(0) != 300 {
		t.Fatalf("revenue[0]=%v, want 300", rev.At(0))
	}
	out, err := GroupedRevenue(ds, rev, GroupHotel)
	if err != nil {
		t.Fatalf("GroupedRevenue: %v", err)
	}
	if len(out) != 2 || out[0].Group != "Resort" || out[0].Total != 300 || out[1].Total != 100 {
		t.Fatalf("grouped=%v, want [{Resort 300} {City 100}]", out)
	}
}

func TestDeclaredIntColumns(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want FieldType
	}{
		{"whole values stay int", "hotel,lead_time\nA,3\nB,4.0\n", FieldInt},
		{"fractional values become float", "hotel,lead_time\nA,3\nB,4.5\n", FieldFloat},
		{"missing values become float", "hotel,lead_time\nA,3\nB,NA\n", FieldFloat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := mustCSV(t, tt.csv)
			f, _ := ds.Schema().Lookup("lead_time")
			if f.Type != tt.want {
				t.Fatalf("lead_time type=%s, want %s", f.Type, tt.want)
			}
			if !ds.IsNumeric("lead_time") {
				t.Fatal("lead_time should be numeric")
			}
		})
	}
}

func TestTextInDeclaredNumericColumnFails(t *testing.T) {
	_, err := FromCSV(strings.NewReader("hotel,adr\nResort,cheap\n"), DefaultSchema(), CSVOptions{})
	if err == nil {
		t.Fatal("expected error for text in adr")
	}
	if !strings.Contains(err.Error(), `"adr"`) {
		t.Fatalf("error should name the column: %v", err)
	}
}

func TestHeaderOnlyCSVIsEmptyDataset(t *testing.T) {
	ds := mustCSV(t, "hotel,adr,lead_time\n")
	if rows, cols := ds.Shape(); rows != 0 || cols != 3 {
		t.Fatalf("shape=(%d,%d), want (0,3)", rows, cols)
	}
	if got := ds.NumericColumns(); len(got) != 2 || got[0] != "adr" || got[1] != "lead_time" {
		t.Fatalf("numeric columns=%v, want [adr lead_time]", got)
	}

	p := NewPipeline(ds)
	counts, err := p.Distribution()
	if err != nil || len(counts) != 0 {
		t.Fatalf("Distribution=%v err=%v, want empty", counts, err)
	}
	if head := p.Preview(5).Head; len(head) != 1 || head[0][0] != "hotel" {
		t.Fatalf("head=%v, want header only", head)
	}
}

func TestEmptyInputFails(t *testing.T) {
	if _, err := FromCSV(strings.NewReader(""), DefaultSchema(), CSVOptions{}); err == nil {
		t.Fatal("expected error without a header row")
	}
}

func TestHeadFormatsFloats(t *testing.T) {
	ds := mustCSV(t, "hotel,adr,lead_time\nResort,100,3\nCity,75.5,4\nCity,NA,5\n")
	head := ds.Head(3)
	want := [][]string{
		{"hotel", "adr", "lead_time"},
		{"Resort", "100.0", "3"},
		{"City", "75.5", "4"},
		{"City", "NaN", "5"},
	}
	for i := range want {
		for j := range want[i] {
			if head[i][j] != want[i][j] {
				t.Fatalf("head[%d][%d]=%q, want %q", i, j, head[i][j], want[i][j])
			}
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100.0"},
		{75.5, "75.5"},
		{-0.25, "-0.25"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.in); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
