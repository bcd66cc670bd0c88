package transform

import (
	"time"

	"scetl/internal/dataset"
)

// Derived adds the computed columns for a table. Each table has a fixed set:
//
//	inventory: quantity_available = quantity_on_hand - quantity_reserved
//	orders:    delivery_delay_days, is_late, cost_per_unit,
//	           order_month / order_quarter / order_year (from order_date)
//	sales:     unit_price = revenue / quantity_sold
//
// A derived column colliding with an existing one is a configuration error;
// the stage never overwrites silently. Tables without derived columns are a
// no-op.
type Derived struct {
	Table string
}

func (Derived) Name() string { return "derived" }

func (d Derived) Apply(ds *dataset.Dataset) (StageResult, error) {
	var res StageResult
	switch d.Table {
	case "inventory":
		if err := ds.AddColumn("quantity_available", dataset.KindNumeric); err != nil {
			return res, err
		}
		for _, r := range ds.Rows {
			onHand, ok1 := dataset.AsFloat(r["quantity_on_hand"])
			reserved, ok2 := dataset.AsFloat(r["quantity_reserved"])
			if ok1 && ok2 {
				r["quantity_available"] = onHand - reserved
			} else {
				r["quantity_available"] = nil
			}
		}
		res.Modified = ds.Len()

	case "orders":
		for _, spec := range []struct {
			name string
			kind dataset.Kind
		}{
			{"delivery_delay_days", dataset.KindNumeric},
			{"is_late", dataset.KindCategorical},
			{"cost_per_unit", dataset.KindNumeric},
			{"order_month", dataset.KindNumeric},
			{"order_quarter", dataset.KindNumeric},
			{"order_year", dataset.KindNumeric},
		} {
			if err := ds.AddColumn(spec.name, spec.kind); err != nil {
				return res, err
			}
		}
		for _, r := range ds.Rows {
			expected, okE := dataset.AsTime(r["expected_delivery_date"])
			actual, okA := dataset.AsTime(r["actual_delivery_date"])
			if okE && okA {
				days := actual.Sub(expected).Hours() / 24
				r["delivery_delay_days"] = days
				r["is_late"] = days > 0
			} else {
				r["delivery_delay_days"] = nil
				r["is_late"] = nil
			}
			cost, okC := dataset.AsFloat(r["order_cost"])
			qty, okQ := dataset.AsFloat(r["order_quantity"])
			if okC && okQ && qty != 0 {
				r["cost_per_unit"] = cost / qty
			} else {
				r["cost_per_unit"] = nil
			}
			if od, ok := dataset.AsTime(r["order_date"]); ok {
				r["order_month"] = int64(od.Month())
				r["order_quarter"] = quarter(od)
				r["order_year"] = int64(od.Year())
			} else {
				r["order_month"], r["order_quarter"], r["order_year"] = nil, nil, nil
			}
		}
		res.Modified = ds.Len()

	case "sales":
		// A source that records its own unit_price keeps it; the downstream
		// consistency rule can then compare it against revenue. Derivation
		// only fills the gap for sources without the column.
		if ds.HasColumn("unit_price") {
			break
		}
		if err := ds.AddColumn("unit_price", dataset.KindNumeric); err != nil {
			return res, err
		}
		for _, r := range ds.Rows {
			rev, okR := dataset.AsFloat(r["revenue"])
			qty, okQ := dataset.AsFloat(r["quantity_sold"])
			if okR && okQ && qty != 0 {
				r["unit_price"] = rev / qty
			} else {
				r["unit_price"] = nil
			}
		}
		res.Modified = ds.Len()
	}
	return res, nil
}

func quarter(t time.Time) int64 {
	return int64((int(t.Month())-1)/3 + 1)
}
