package rules

import "scetl/internal/dataset"

func f(v float64) *float64 { return &v }

// priceDatesOrdered passes a row when its price window is well ordered. A nil
// end_date marks the currently effective price and always passes.
func priceDatesOrdered(ds *dataset.Dataset) []bool {
	mask := make([]bool, ds.Len())
	for i, row := range ds.Rows {
		if row["end_date"] == nil {
			mask[i] = true
			continue
		}
		start, ok1 := dataset.AsTime(row["effective_date"])
		end, ok2 := dataset.AsTime(row["end_date"])
		mask[i] = ok1 && ok2 && !end.Before(start)
	}
	return mask
}

// DefineStandardRules registers the stock rule catalog for the supply-chain
// tables. Callers may layer additional rules on top afterwards.
func DefineStandardRules(e *Engine) error {
	type entry struct {
		table string
		rule  Rule
	}
	catalog := []entry{
		{"suppliers", Rule{
			Name: "supplier_id_unique", Kind: Uniqueness, Column: "supplier_id",
			Severity: Critical, Description: "supplier_id must be unique",
		}},
		{"suppliers", Rule{
			Name: "reliability_score_range", Kind: Range, Column: "reliability_score",
			Min: f(0), Max: f(100),
			Severity: Critical, Description: "reliability_score must be between 0 and 100",
		}},
		{"suppliers", Rule{
			Name: "lead_time_positive", Kind: Positive, Column: "lead_time_days",
			Severity: Warning, Description: "lead_time_days must be positive",
		}},

		{"products", Rule{
			Name: "product_id_unique", Kind: Uniqueness, Column: "product_id",
			Severity: Critical, Description: "product_id must be unique",
		}},
		{"products", Rule{
			Name: "unit_cost_positive", Kind: Positive, Column: "unit_cost",
			Severity: Critical, Description: "unit_cost must be positive",
		}},
		{"products", Rule{
			Name: "reorder_level_non_negative", Kind: NonNegative, Column: "reorder_level",
			Severity: Warning, Description: "reorder_level must be non-negative",
		}},

		{"inventory", Rule{
			Name: "quantity_on_hand_valid", Kind: NonNegative, Column: "quantity_on_hand",
			Severity: Critical, Description: "quantity_on_hand must be non-negative",
		}},
		{"inventory", Rule{
			Name: "quantity_reserved_valid", Kind: NonNegative, Column: "quantity_reserved",
			Severity: Critical, Description: "quantity_reserved must be non-negative",
		}},
		{"inventory", Rule{
			Name: "reserved_not_exceed_onhand", Kind: CrossColumn,
			Columns: []string{"quantity_reserved", "quantity_on_hand"}, Op: OpLE,
			Severity: Critical, Description: "quantity_reserved must not exceed quantity_on_hand",
		}},

		{"orders", Rule{
			Name: "order_quantity_positive", Kind: Positive, Column: "order_quantity",
			Severity: Critical, Description: "order_quantity must be positive",
		}},
		{"orders", Rule{
			Name: "order_cost_non_negative", Kind: NonNegative, Column: "order_cost",
			Severity: Warning, Description: "order_cost must be non-negative",
		}},
		{"orders", Rule{
			Name: "delivery_after_order", Kind: CrossColumn,
			Columns: []string{"order_date", "actual_delivery_date"}, Op: OpLE,
			Severity: Warning, Description: "actual_delivery_date must not precede order_date",
		}},

		{"sales", Rule{
			Name: "quantity_sold_positive", Kind: Positive, Column: "quantity_sold",
			Severity: Critical, Description: "quantity_sold must be positive",
		}},
		{"sales", Rule{
			Name: "revenue_non_negative", Kind: NonNegative, Column: "revenue",
			Severity: Critical, Description: "revenue must be non-negative",
		}},
		{"sales", Rule{
			Name: "unit_price_consistent", Kind: UnitPrice,
			Columns: []string{"quantity_sold", "unit_price", "revenue"}, Tolerance: 0.01,
			Severity: Warning, Description: "revenue must match quantity_sold * unit_price",
		}},

		{"price_history", Rule{
			Name: "price_positive", Kind: Positive, Column: "price",
			Severity: Critical, Description: "price must be positive",
		}},
		{"price_history", Rule{
			Name: "price_dates_ordered", Kind: Custom,
			Predicate: priceDatesOrdered,
			Severity:  Warning, Description: "end_date must not precede effective_date",
		}},
	}
	for _, c := range catalog {
		if err := e.Add(c.table, c.rule); err != nil {
			return err
		}
	}
	return nil
}
