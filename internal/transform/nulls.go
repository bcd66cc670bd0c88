package transform

import (
	"fmt"
	"sort"

	"scetl/internal/dataset"
)

// NullStrategy selects how nil values in a column are handled.
type NullStrategy string

const (
	NullDrop        NullStrategy = "drop"         // drop the whole row
	NullFillConst   NullStrategy = "fill_const"   // fill with a constant
	NullFillMean    NullStrategy = "fill_mean"    // fill with the column mean
	NullFillMedian  NullStrategy = "fill_median"  // fill with the column median
	NullFillMode    NullStrategy = "fill_mode"    // fill with the most frequent value
	NullFillForward NullStrategy = "fill_forward" // carry the last non-nil value
)

// NullRule configures the strategy for a single column.
type NullRule struct {
	Strategy NullStrategy
	Constant any // only for NullFillConst
}

// Nulls is the null-handling stage. Columns without a rule pass through
// untouched. Re-applying the stage to its own output is a no-op: filled
// columns contain no nils, and drop-row columns have none left.
type Nulls struct {
	Columns map[string]NullRule
}

func (Nulls) Name() string { return "nulls" }

func (n Nulls) Apply(ds *dataset.Dataset) (StageResult, error) {
	var res StageResult
	if len(n.Columns) == 0 || ds.Len() == 0 {
		return res, nil
	}

	// Resolve statistical fills up front, from the pre-stage values.
	fills := make(map[string]any, len(n.Columns))
	for col, rule := range n.Columns {
		if !ds.HasColumn(col) {
			return res, fmt.Errorf("null rule for unknown column %q", col)
		}
		switch rule.Strategy {
		case NullFillConst:
			fills[col] = rule.Constant
		case NullFillMean:
			v, ok := columnMean(ds, col)
			if ok {
				fills[col] = v
			}
		case NullFillMedian:
			v, ok := columnMedian(ds, col)
			if ok {
				fills[col] = v
			}
		case NullFillMode:
			v, ok := columnMode(ds, col)
			if ok {
				fills[col] = v
			}
		case NullDrop, NullFillForward:
		default:
			return res, fmt.Errorf("unknown null strategy %q for column %q", rule.Strategy, col)
		}
	}

	last := make(map[string]any, len(n.Columns)) // forward-fill carry
	dropped := 0
	out := ds.Rows[:0]
rowLoop:
	for _, r := range ds.Rows {
		modified := false
		for col, rule := range n.Columns {
			v := r[col]
			if v != nil {
				if rule.Strategy == NullFillForward {
					last[col] = v
				}
				continue
			}
			switch rule.Strategy {
			case NullDrop:
				dropped++
				continue rowLoop
			case NullFillForward:
				if lv, ok := last[col]; ok {
					r[col] = lv
					modified = true
				}
			default:
				if fv, ok := fills[col]; ok {
					r[col] = fv
					modified = true
				}
			}
		}
		if modified {
			res.Modified++
		}
		out = append(out, r)
	}
	ds.Rows = out
	res.Dropped = dropped
	return res, nil
}

func columnMean(ds *dataset.Dataset, col string) (float64, bool) {
	vals, _ := ds.Numeric(col)
	if len(vals) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals)), true
}

func columnMedian(ds *dataset.Dataset, col string) (float64, bool) {
	vals, _ := ds.Numeric(col)
	if len(vals) == 0 {
		return 0, false
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid], true
	}
	return (vals[mid-1] + vals[mid]) / 2, true
}

// columnMode returns the most frequent non-nil value; ties break toward the
// value seen first, keeping the stage deterministic.
func columnMode(ds *dataset.Dataset, col string) (any, bool) {
	counts := make(map[string]int)
	first := make(map[string]int)
	byKey := make(map[string]any)
	order := 0
	for _, r := range ds.Rows {
		v := r[col]
		if v == nil {
			continue
		}
		k, _ := dataset.Fingerprint(r, []string{col})
		if _, seen := counts[k]; !seen {
			first[k] = order
			byKey[k] = v
		}
		counts[k]++
		order++
	}
	best, bestCount, bestFirst := "", 0, 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && first[k] < bestFirst) {
			best, bestCount, bestFirst = k, c, first[k]
		}
	}
	if bestCount == 0 {
		return nil, false
	}
	return byKey[best], true
}
