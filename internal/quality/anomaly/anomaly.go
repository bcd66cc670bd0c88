// Package anomaly implements the three outlier detection methods applied
// after validation: univariate IQR fences, univariate z-scores, and a
// multivariate isolation forest. All three are deterministic; the forest is
// seeded from configuration.
package anomaly

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"scetl/internal/dataset"
)

// Config carries the detection parameters for one run.
type Config struct {
	IQRMultiplier   float64 // fence width, default 1.5
	ZScoreThreshold float64 // default 3.0
	Contamination   float64 // expected outlier fraction for the forest
	Seed            int64
	MinDistinct     int // columns with fewer distinct values are skipped
}

// DefaultConfig mirrors the stock detection parameters.
func DefaultConfig() Config {
	return Config{
		IQRMultiplier:   1.5,
		ZScoreThreshold: 3.0,
		Contamination:   0.1,
		Seed:            42,
		MinDistinct:     2,
	}
}

// ColumnFinding is the outcome of one univariate method on one column.
// Rows are dataset row indices, ascending.
type ColumnFinding struct {
	Column     string  `json:"column"`
	Method     string  `json:"method"`
	Rows       []int   `json:"rows"`
	Count      int     `json:"outlier_count"`
	Percentage float64 `json:"outlier_percentage"`
	Lower      float64 `json:"lower,omitempty"`
	Upper      float64 `json:"upper,omitempty"`
}

// ForestFinding is the multivariate result.
type ForestFinding struct {
	Columns    []string `json:"columns"`
	Rows       []int    `json:"rows"`
	Count      int      `json:"outlier_count"`
	Percentage float64  `json:"outlier_percentage"`
}

// Report collects every finding for one table.
type Report struct {
	Table        string          `json:"table"`
	Findings     []ColumnFinding `json:"findings,omitempty"`
	Multivariate *ForestFinding  `json:"multivariate,omitempty"`
}

// TotalOutliers reports the number of distinct rows flagged by any method.
func (r *Report) TotalOutliers() int {
	rows := make(map[int]bool)
	for _, f := range r.Findings {
		for _, i := range f.Rows {
			rows[i] = true
		}
	}
	if r.Multivariate != nil {
		for _, i := range r.Multivariate.Rows {
			rows[i] = true
		}
	}
	return len(rows)
}

// forestColumns names the column subset the multivariate method fits on,
// per table. Tables without an entry skip the forest.
var forestColumns = map[string][]string{
	"sales":     {"quantity_sold", "revenue"},
	"inventory": {"quantity_on_hand", "quantity_reserved"},
	"orders":    {"order_quantity", "order_cost"},
	"products":  {"unit_cost", "reorder_level"},
}

// IQROutliers flags values outside [Q1 - k*IQR, Q3 + k*IQR]. The returned
// indices are positions in vals. Fewer than four values yield no outliers.
func IQROutliers(vals []float64, k float64) (idx []int, lower, upper float64) {
	if len(vals) < 4 {
		return nil, 0, 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	iqr := q3 - q1
	lower = q1 - k*iqr
	upper = q3 + k*iqr
	for i, v := range vals {
		if v < lower || v > upper {
			idx = append(idx, i)
		}
	}
	return idx, lower, upper
}

// ZScoreOutliers flags values whose distance from the mean exceeds threshold
// standard deviations. A zero standard deviation means no outliers.
func ZScoreOutliers(vals []float64, threshold float64) []int {
	if len(vals) < 2 {
		return nil
	}
	mean, std := stat.MeanStdDev(vals, nil)
	if std == 0 {
		return nil
	}
	var idx []int
	for i, v := range vals {
		z := (v - mean) / std
		if z < 0 {
			z = -z
		}
		if z > threshold {
			idx = append(idx, i)
		}
	}
	return idx
}

// AnalyzeTable runs IQR and z-score detection on every eligible numeric
// column and the isolation forest across the table's configured column
// subset. Non-numeric columns are skipped, never errored.
func AnalyzeTable(ds *dataset.Dataset, table string, cfg Config) *Report {
	rep := &Report{Table: table}

	for _, col := range ds.Columns {
		if ds.Kinds[col] != dataset.KindNumeric {
			continue
		}
		vals, rowIdx := ds.Numeric(col)
		if distinctCount(vals) < cfg.MinDistinct {
			continue
		}
		if local, lo, hi := IQROutliers(vals, cfg.IQRMultiplier); len(local) > 0 {
			rep.Findings = append(rep.Findings, ColumnFinding{
				Column: col, Method: "iqr", Rows: toRowIndices(local, rowIdx),
				Count: len(local), Percentage: pct(len(local), ds.Len()),
				Lower: lo, Upper: hi,
			})
		}
		if local := ZScoreOutliers(vals, cfg.ZScoreThreshold); len(local) > 0 {
			rep.Findings = append(rep.Findings, ColumnFinding{
				Column: col, Method: "zscore", Rows: toRowIndices(local, rowIdx),
				Count: len(local), Percentage: pct(len(local), ds.Len()),
			})
		}
	}

	if cols, ok := forestColumns[table]; ok {
		rep.Multivariate = runForest(ds, cols, cfg)
	}
	return rep
}

// runForest fits the isolation forest on the rows where every selected
// column holds a numeric value.
func runForest(ds *dataset.Dataset, cols []string, cfg Config) *ForestFinding {
	for _, c := range cols {
		if !ds.HasColumn(c) {
			return nil
		}
	}
	var matrix [][]float64
	var rowIdx []int
rowLoop:
	for i, row := range ds.Rows {
		point := make([]float64, len(cols))
		for j, c := range cols {
			v, ok := dataset.AsFloat(row[c])
			if !ok {
				continue rowLoop
			}
			point[j] = v
		}
		matrix = append(matrix, point)
		rowIdx = append(rowIdx, i)
	}
	if len(matrix) < 4 {
		return &ForestFinding{Columns: cols}
	}

	forest := newForest(cfg.Seed, defaultTrees, defaultSampleSize)
	forest.Fit(matrix)
	local := forest.Outliers(matrix, cfg.Contamination)
	return &ForestFinding{
		Columns: cols, Rows: toRowIndices(local, rowIdx),
		Count: len(local), Percentage: pct(len(local), ds.Len()),
	}
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func toRowIndices(local, rowIdx []int) []int {
	out := make([]int, len(local))
	for i, v := range local {
		out[i] = rowIdx[v]
	}
	return out
}

func distinctCount(vals []float64) int {
	seen := make(map[float64]bool, len(vals))
	for _, v := range vals {
		seen[v] = true
	}
	return len(seen)
}
