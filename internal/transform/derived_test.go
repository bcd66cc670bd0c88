package transform

import (
	"testing"
	"time"

	"scetl/internal/dataset"
)

func TestDerived_Inventory(t *testing.T) {
	t.Parallel()

	ds := dataset.New("quantity_on_hand", "quantity_reserved")
	ds.Rows = []dataset.Row{
		{"quantity_on_hand": 10.0, "quantity_reserved": 3.0},
		{"quantity_on_hand": nil, "quantity_reserved": 1.0},
	}
	if _, err := (Derived{Table: "inventory"}).Apply(ds); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := ds.Rows[0]["quantity_available"]; got != 7.0 {
		t.Fatalf("quantity_available = %v, want 7", got)
	}
	if ds.Rows[1]["quantity_available"] != nil {
		t.Fatal("derived value from nil input should be nil")
	}
}

func TestDerived_Orders(t *testing.T) {
	t.Parallel()

	day := func(d int) time.Time { return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC) }
	ds := dataset.New("order_date", "expected_delivery_date", "actual_delivery_date", "order_cost", "order_quantity")
	ds.Rows = []dataset.Row{{
		"order_date":             day(1),
		"expected_delivery_date": day(10),
		"actual_delivery_date":   day(13),
		"order_cost":             200.0,
		"order_quantity":         8.0,
	}}
	if _, err := (Derived{Table: "orders"}).Apply(ds); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	r := ds.Rows[0]
	if r["delivery_delay_days"] != 3.0 {
		t.Errorf("delivery_delay_days = %v", r["delivery_delay_days"])
	}
	if r["is_late"] != true {
		t.Errorf("is_late = %v", r["is_late"])
	}
	if r["cost_per_unit"] != 25.0 {
		t.Errorf("cost_per_unit = %v", r["cost_per_unit"])
	}
	if r["order_month"] != int64(6) || r["order_quarter"] != int64(2) || r["order_year"] != int64(2024) {
		t.Errorf("calendar features = %v/%v/%v", r["order_month"], r["order_quarter"], r["order_year"])
	}
}

func TestDerived_SalesUnitPrice(t *testing.T) {
	t.Parallel()

	ds := dataset.New("revenue", "quantity_sold")
	ds.Rows = []dataset.Row{
		{"revenue": 50.0, "quantity_sold": 4.0},
		{"revenue": 10.0, "quantity_sold": 0.0}, // division guard
	}
	if _, err := (Derived{Table: "sales"}).Apply(ds); err != nil {
		t.Fatal(err)
	}
	if ds.Rows[0]["unit_price"] != 12.5 {
		t.Fatalf("unit_price = %v", ds.Rows[0]["unit_price"])
	}
	if ds.Rows[1]["unit_price"] != nil {
		t.Fatalf("zero-quantity unit_price = %v, want nil", ds.Rows[1]["unit_price"])
	}
}

// TestDerived_SalesKeepsSourceUnitPrice leaves a source-provided unit_price
// untouched so downstream consistency checks compare real data, not a value
// derived from the same columns they check.
func TestDerived_SalesKeepsSourceUnitPrice(t *testing.T) {
	t.Parallel()

	ds := dataset.New("revenue", "quantity_sold", "unit_price")
	ds.Rows = []dataset.Row{{"revenue": 50.0, "quantity_sold": 4.0, "unit_price": 9.99}}
	if _, err := (Derived{Table: "sales"}).Apply(ds); err != nil {
		t.Fatal(err)
	}
	if ds.Rows[0]["unit_price"] != 9.99 {
		t.Fatalf("unit_price = %v, want source value 9.99", ds.Rows[0]["unit_price"])
	}
}

// TestDerived_CollisionIsError ensures a derived column never silently
// overwrites an existing one.
func TestDerived_CollisionIsError(t *testing.T) {
	t.Parallel()

	ds := dataset.New("order_date", "order_cost", "order_quantity", "is_late")
	ds.Rows = []dataset.Row{{"order_cost": 1.0, "order_quantity": 1.0, "is_late": false}}
	if _, err := (Derived{Table: "orders"}).Apply(ds); err == nil {
		t.Fatal("collision with existing column accepted")
	}
}

func TestDerived_UnknownTableIsNoop(t *testing.T) {
	t.Parallel()

	ds := dataset.New("x")
	ds.Rows = []dataset.Row{{"x": 1.0}}
	res, err := Derived{Table: "warehouses"}.Apply(ds)
	if err != nil || res.Modified != 0 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}
