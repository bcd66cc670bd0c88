// Package profile computes descriptive statistics for a dataset: per-column
// profiles by kind, a memory estimate, and a duplicate count. Profiling is a
// pure function of its input and never mutates the dataset.
package profile

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"scetl/internal/dataset"
)

// Numeric describes a numeric column. Moments that are undefined for the
// observed sample (empty column, single value) are nil rather than zero.
type Numeric struct {
	Count    int      `json:"count"`
	Nulls    int      `json:"nulls"`
	Mean     *float64 `json:"mean"`
	Median   *float64 `json:"median"`
	Std      *float64 `json:"std"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Q25      *float64 `json:"q25"`
	Q75      *float64 `json:"q75"`
	Skew     *float64 `json:"skewness"`
	Kurtosis *float64 `json:"kurtosis"`
}

// Categorical describes a non-numeric, non-temporal column.
type Categorical struct {
	Count       int    `json:"count"`
	Nulls       int    `json:"nulls"`
	Distinct    int    `json:"distinct"`
	MostCommon  string `json:"most_common,omitempty"`
	CommonCount int    `json:"most_common_count,omitempty"`
}

// Temporal describes a timestamp column.
type Temporal struct {
	Count int        `json:"count"`
	Nulls int        `json:"nulls"`
	Min   *time.Time `json:"min"`
	Max   *time.Time `json:"max"`
}

// Column profiles one column; exactly one of the kind fields is set.
type Column struct {
	Name        string       `json:"name"`
	Kind        string       `json:"kind"`
	Numeric     *Numeric     `json:"numeric,omitempty"`
	Categorical *Categorical `json:"categorical,omitempty"`
	Temporal    *Temporal    `json:"temporal,omitempty"`
}

// Table is the complete profile of one dataset.
type Table struct {
	Name          string   `json:"table"`
	RowCount      int      `json:"row_count"`
	ColumnCount   int      `json:"column_count"`
	Columns       []Column `json:"columns"`
	MemoryBytes   int64    `json:"memory_estimate_bytes"`
	DuplicateRows int      `json:"duplicate_row_count"`
}

// Build profiles ds. Empty datasets and all-null or single-value numeric
// columns produce nil statistics, never an error.
func Build(ds *dataset.Dataset, name string) *Table {
	t := &Table{
		Name:        name,
		RowCount:    ds.Len(),
		ColumnCount: len(ds.Columns),
		Columns:     make([]Column, 0, len(ds.Columns)),
	}
	for _, col := range ds.Columns {
		kind := ds.Kinds[col]
		c := Column{Name: col, Kind: kind.String()}
		switch kind {
		case dataset.KindNumeric:
			c.Numeric = profileNumeric(ds, col)
		case dataset.KindTemporal:
			c.Temporal = profileTemporal(ds, col)
		default:
			c.Categorical = profileCategorical(ds, col)
		}
		t.Columns = append(t.Columns, c)
	}
	t.MemoryBytes = estimateMemory(ds)
	t.DuplicateRows = duplicateRows(ds)
	return t
}

func ptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func profileNumeric(ds *dataset.Dataset, col string) *Numeric {
	vals, _ := ds.Numeric(col)
	p := &Numeric{Count: len(vals), Nulls: ds.NullCount(col)}
	if len(vals) == 0 {
		return p
	}

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	p.Mean = ptr(stat.Mean(sorted, nil))
	p.Min = ptr(sorted[0])
	p.Max = ptr(sorted[len(sorted)-1])
	p.Median = ptr(stat.Quantile(0.5, stat.Empirical, sorted, nil))
	p.Q25 = ptr(stat.Quantile(0.25, stat.Empirical, sorted, nil))
	p.Q75 = ptr(stat.Quantile(0.75, stat.Empirical, sorted, nil))
	if len(sorted) > 1 {
		p.Std = ptr(stat.StdDev(sorted, nil))
		p.Skew = ptr(stat.Skew(sorted, nil))
		p.Kurtosis = ptr(stat.ExKurtosis(sorted, nil))
	}
	return p
}

func profileTemporal(ds *dataset.Dataset, col string) *Temporal {
	p := &Temporal{Nulls: ds.NullCount(col)}
	for _, row := range ds.Rows {
		v, ok := dataset.AsTime(row[col])
		if !ok {
			continue
		}
		p.Count++
		if p.Min == nil || v.Before(*p.Min) {
			t := v
			p.Min = &t
		}
		if p.Max == nil || v.After(*p.Max) {
			t := v
			p.Max = &t
		}
	}
	return p
}

func profileCategorical(ds *dataset.Dataset, col string) *Categorical {
	p := &Categorical{Nulls: ds.NullCount(col)}
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, row := range ds.Rows {
		v := row[col]
		if v == nil {
			continue
		}
		p.Count++
		k, _ := dataset.Fingerprint(row, []string{col})
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	p.Distinct = len(counts)
	// ties break to the first value observed
	for _, k := range order {
		if counts[k] > p.CommonCount {
			p.MostCommon = k
			p.CommonCount = counts[k]
		}
	}
	return p
}

// estimateMemory approximates the dataset's in-memory footprint: map and
// slice headers plus a per-scalar cost by dynamic type.
func estimateMemory(ds *dataset.Dataset) int64 {
	var total int64
	for _, row := range ds.Rows {
		total += 48 // row map header
		for k, v := range row {
			total += int64(len(k)) + 16 // key + interface header
			switch t := v.(type) {
			case string:
				total += int64(len(t))
			case time.Time:
				total += 24
			case nil:
			default:
				total += 8
			}
		}
	}
	return total
}

func duplicateRows(ds *dataset.Dataset) int {
	seen := make(map[string]bool, ds.Len())
	dups := 0
	for _, row := range ds.Rows {
		k, ok := dataset.Fingerprint(row, ds.Columns)
		if !ok {
			continue
		}
		if seen[k] {
			dups++
		}
		seen[k] = true
	}
	return dups
}
