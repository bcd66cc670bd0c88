package transform

import (
	"testing"

	"scetl/internal/dataset"
)

func TestBusiness_DropsViolations(t *testing.T) {
	t.Parallel()

	ds := dataset.New("quantity_sold", "revenue")
	ds.Rows = []dataset.Row{
		{"quantity_sold": 5.0, "revenue": 100.0},
		{"quantity_sold": 0.0, "revenue": 10.0},  // quantity must be > 0
		{"quantity_sold": 2.0, "revenue": -1.0},  // revenue must be >= 0
		{"quantity_sold": nil, "revenue": 400.0}, // nil is unknown, kept
	}
	res, err := Business{Table: "sales"}.Apply(ds)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.Dropped != 2 {
		t.Fatalf("dropped = %d, want 2", res.Dropped)
	}
	if ds.Len() != 2 {
		t.Fatalf("len = %d, want 2", ds.Len())
	}
}

func TestBusiness_UnknownTableIsNoop(t *testing.T) {
	t.Parallel()

	ds := dataset.New("v")
	ds.Rows = []dataset.Row{{"v": -1.0}}
	res, err := Business{Table: "suppliers"}.Apply(ds)
	if err != nil || res.Dropped != 0 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}
