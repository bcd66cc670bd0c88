package transform

import (
	"scetl/internal/dataset"
)

// Business applies the per-table domain filters, after structural cleanup:
//
//	products:  unit_cost > 0, reorder_level >= 0
//	inventory: quantity_on_hand >= 0, quantity_reserved >= 0
//	orders:    order_quantity > 0, order_cost >= 0
//	sales:     quantity_sold > 0, revenue >= 0
//
// Rows violating a rule are dropped and counted. Missing columns skip the
// corresponding rule rather than failing the table; nil values are treated
// as unknown and kept for validation to flag.
type Business struct {
	Table string
}

func (Business) Name() string { return "business" }

// rule keeps a row when its column is absent/nil or the predicate holds.
type businessRule struct {
	column string
	keep   func(float64) bool
}

var businessRules = map[string][]businessRule{
	"products": {
		{"unit_cost", func(v float64) bool { return v > 0 }},
		{"reorder_level", func(v float64) bool { return v >= 0 }},
	},
	"inventory": {
		{"quantity_on_hand", func(v float64) bool { return v >= 0 }},
		{"quantity_reserved", func(v float64) bool { return v >= 0 }},
	},
	"orders": {
		{"order_quantity", func(v float64) bool { return v > 0 }},
		{"order_cost", func(v float64) bool { return v >= 0 }},
	},
	"sales": {
		{"quantity_sold", func(v float64) bool { return v > 0 }},
		{"revenue", func(v float64) bool { return v >= 0 }},
	},
}

func (b Business) Apply(ds *dataset.Dataset) (StageResult, error) {
	var res StageResult
	rules := businessRules[b.Table]
	if len(rules) == 0 {
		return res, nil
	}
	res.Dropped = ds.Retain(func(r dataset.Row) bool {
		for _, rule := range rules {
			v, ok := r[rule.column]
			if !ok || v == nil {
				continue
			}
			f, ok := dataset.AsFloat(v)
			if !ok {
				continue
			}
			if !rule.keep(f) {
				return false
			}
		}
		return true
	})
	return res, nil
}
