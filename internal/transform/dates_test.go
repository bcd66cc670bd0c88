package transform

import (
	"testing"
	"time"

	"scetl/internal/dataset"
)

func TestDates_MixedLayouts(t *testing.T) {
	t.Parallel()

	ds := dataset.New("order_date")
	for _, v := range []any{"2024-03-01", "01.04.2024", "2024-05-06 07:08:09", "not a date", nil} {
		ds.Rows = append(ds.Rows, dataset.Row{"order_date": v})
	}
	res, err := Dates{}.Apply(ds)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ds.Kinds["order_date"] != dataset.KindTemporal {
		t.Fatalf("kind = %v, want temporal", ds.Kinds["order_date"])
	}
	for i := 0; i < 3; i++ {
		if _, ok := ds.Rows[i]["order_date"].(time.Time); !ok {
			t.Fatalf("row %d not parsed: %v", i, ds.Rows[i]["order_date"])
		}
	}
	if got, _ := dataset.AsTime(ds.Rows[1]["order_date"]); got.Month() != time.April {
		t.Fatalf("dotted layout parsed to %v", got)
	}
	// Unparsable becomes nil and is counted.
	if ds.Rows[3]["order_date"] != nil {
		t.Fatalf("unparsable value kept: %v", ds.Rows[3]["order_date"])
	}
	if res.Nulled != 1 {
		t.Fatalf("nulled = %d, want 1", res.Nulled)
	}
	// Pre-existing nil is untouched, not counted again.
	if res.Modified != 4 {
		t.Fatalf("modified = %d, want 4", res.Modified)
	}
}

// TestDates_AutoColumns checks *date* name detection when no columns are
// configured.
func TestDates_AutoColumns(t *testing.T) {
	t.Parallel()

	ds := dataset.New("sale_date", "amount")
	ds.Rows = []dataset.Row{{"sale_date": "2024-01-15", "amount": 10.0}}
	if _, err := (Dates{}).Apply(ds); err != nil {
		t.Fatal(err)
	}
	if _, ok := ds.Rows[0]["sale_date"].(time.Time); !ok {
		t.Fatal("sale_date not standardized")
	}
	if ds.Rows[0]["amount"] != 10.0 {
		t.Fatal("non-date column touched")
	}
}

// TestDates_Idempotent: a second pass over already-standardized values is a
// no-op.
func TestDates_Idempotent(t *testing.T) {
	t.Parallel()

	ds := dataset.New("order_date")
	ds.Rows = []dataset.Row{{"order_date": "2024-03-01"}}
	if _, err := (Dates{}).Apply(ds); err != nil {
		t.Fatal(err)
	}
	res, err := Dates{}.Apply(ds)
	if err != nil {
		t.Fatal(err)
	}
	if res.Modified != 0 || res.Nulled != 0 {
		t.Fatalf("second pass changed values: %+v", res)
	}
}

func TestDates_UnknownColumn(t *testing.T) {
	t.Parallel()

	ds := dataset.New("a")
	if _, err := (Dates{Columns: []string{"missing"}}).Apply(ds); err == nil {
		t.Fatal("unknown column accepted")
	}
}
