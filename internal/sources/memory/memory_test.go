package memory

import (
	"context"
	"errors"
	"testing"

	"hoteldash/internal/core"
)

func TestSampleLoads(t *testing.T) {
	ds, err := NewSample(core.DefaultSchema()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() == 0 {
		t.Fatal("sample should not be empty")
	}
	p := core.NewPipeline(ds)
	if !p.RevenueAvailable() {
		t.Fatal("sample should carry revenue columns")
	}
	counts, err := p.Distribution()
	if err != nil {
		t.Fatalf("Distribution: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("hotel categories=%d, want 2", len(counts))
	}
}

func TestRecordsAreCopied(t *testing.T) {
	recs := [][]string{{"hotel"}, {"Resort"}}
	src := New(recs, core.DefaultSchema())
	recs[1][0] = "City"

	ds, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	vals, _ := ds.Strings("hotel")
	if vals[0] != "Resort" {
		t.Fatalf("source observed caller mutation: %v", vals)
	}
}

func TestEmptyRecordsFail(t *testing.T) {
	_, err := New(nil, core.DefaultSchema()).Load(context.Background())
	var dle *core.DataLoadError
	if !errors.As(err, &dle) {
		t.Fatalf("expected DataLoadError, got %v", err)
	}
}
