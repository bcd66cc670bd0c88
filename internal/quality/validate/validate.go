// Package validate implements the built-in structural quality checks that run
// on every table regardless of the registered rule set: null-rate thresholds,
// declared-kind conformance, duplicate primary keys, duplicate full rows, and
// referential plausibility against provided reference sets.
//
// Check is pure: it never touches the database and never mutates the dataset.
// Reference sets are fetched by the caller and passed in through Options.
package validate

import (
	"fmt"

	"scetl/internal/dataset"
)

// PrimaryKeys names the identifying column per supply-chain table.
var PrimaryKeys = map[string]string{
	"suppliers":     "supplier_id",
	"products":      "product_id",
	"warehouses":    "warehouse_id",
	"inventory":     "inventory_id",
	"orders":        "order_id",
	"sales":         "sale_id",
	"price_history": "price_id",
}

// ForeignKeys maps each table's foreign-key columns to the parent table they
// must resolve against.
var ForeignKeys = map[string]map[string]string{
	"products":      {"supplier_id": "suppliers"},
	"inventory":     {"product_id": "products", "warehouse_id": "warehouses"},
	"orders":        {"supplier_id": "suppliers"},
	"sales":         {"product_id": "products", "warehouse_id": "warehouses"},
	"price_history": {"product_id": "products", "supplier_id": "suppliers"},
}

// Options carries the thresholds and reference data for one Check call.
// References is keyed by parent table name; each set holds the fingerprints
// of the parent's primary-key values. A missing reference set skips that
// foreign-key check rather than failing it.
type Options struct {
	NullThreshold      float64
	DuplicateThreshold float64
	References         map[string]map[string]bool
}

// Finding is one structural issue surfaced by Check.
type Finding struct {
	Check   string `json:"check"`
	Column  string `json:"column,omitempty"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// Report is the immutable outcome of the built-in checks for one table.
type Report struct {
	Table         string         `json:"table"`
	Rows          int            `json:"rows"`
	NullCounts    map[string]int `json:"null_counts,omitempty"`
	DuplicateRows int            `json:"duplicate_rows"`
	OrphanedKeys  map[string]int `json:"orphaned_keys,omitempty"`
	Findings      []Finding      `json:"findings,omitempty"`
}

// Passed reports whether the table cleared every structural check.
func (r *Report) Passed() bool { return len(r.Findings) == 0 }

// ReferenceSet collects the fingerprints of a table's primary-key values,
// for use as an Options reference set.
func ReferenceSet(ds *dataset.Dataset, table string) map[string]bool {
	pk, ok := PrimaryKeys[table]
	if !ok {
		return nil
	}
	set := make(map[string]bool, ds.Len())
	for _, row := range ds.Rows {
		if row[pk] == nil {
			continue
		}
		if k, ok := dataset.Fingerprint(row, []string{pk}); ok {
			set[k] = true
		}
	}
	return set
}

// Check runs the built-in structural checks and returns their report.
func Check(ds *dataset.Dataset, table string, opts Options) *Report {
	rep := &Report{
		Table:      table,
		Rows:       ds.Len(),
		NullCounts: make(map[string]int),
	}

	checkNullRates(ds, opts, rep)
	checkKinds(ds, rep)
	checkPrimaryKey(ds, table, rep)
	checkDuplicateRows(ds, opts, rep)
	checkForeignKeys(ds, table, opts, rep)

	return rep
}

func checkNullRates(ds *dataset.Dataset, opts Options, rep *Report) {
	if ds.Len() == 0 {
		return
	}
	for _, col := range ds.Columns {
		n := ds.NullCount(col)
		if n == 0 {
			continue
		}
		rep.NullCounts[col] = n
		rate := float64(n) / float64(ds.Len())
		if rate > opts.NullThreshold {
			rep.Findings = append(rep.Findings, Finding{
				Check:   "null_rate",
				Column:  col,
				Count:   n,
				Message: fmt.Sprintf("column %q is %.1f%% null (threshold %.1f%%)", col, rate*100, opts.NullThreshold*100),
			})
		}
	}
}

// checkKinds flags values whose dynamic type contradicts the column's
// declared kind. nil is always admissible; categorical columns accept any
// scalar.
func checkKinds(ds *dataset.Dataset, rep *Report) {
	for _, col := range ds.Columns {
		kind, ok := ds.Kinds[col]
		if !ok || kind == dataset.KindCategorical {
			continue
		}
		mismatched := 0
		for _, row := range ds.Rows {
			v := row[col]
			if v == nil {
				continue
			}
			switch kind {
			case dataset.KindNumeric:
				if _, ok := dataset.AsFloat(v); !ok {
					mismatched++
				}
			case dataset.KindTemporal:
				if _, ok := dataset.AsTime(v); !ok {
					mismatched++
				}
			}
		}
		if mismatched > 0 {
			rep.Findings = append(rep.Findings, Finding{
				Check:   "kind_conformance",
				Column:  col,
				Count:   mismatched,
				Message: fmt.Sprintf("column %q has %d values not of kind %s", col, mismatched, kind),
			})
		}
	}
}

func checkPrimaryKey(ds *dataset.Dataset, table string, rep *Report) {
	pk, ok := PrimaryKeys[table]
	if !ok || !ds.HasColumn(pk) {
		return
	}
	seen := make(map[string]bool, ds.Len())
	dups := 0
	for _, row := range ds.Rows {
		k, ok := dataset.Fingerprint(row, []string{pk})
		if !ok {
			continue
		}
		if seen[k] {
			dups++
		}
		seen[k] = true
	}
	if dups > 0 {
		rep.Findings = append(rep.Findings, Finding{
			Check:   "duplicate_primary_key",
			Column:  pk,
			Count:   dups,
			Message: fmt.Sprintf("%d rows repeat an earlier %q value", dups, pk),
		})
	}
}

func checkDuplicateRows(ds *dataset.Dataset, opts Options, rep *Report) {
	if ds.Len() == 0 {
		return
	}
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
	rep.DuplicateRows = dups
	if dups > 0 && float64(dups)/float64(ds.Len()) > opts.DuplicateThreshold {
		rep.Findings = append(rep.Findings, Finding{
			Check:   "duplicate_rows",
			Count:   dups,
			Message: fmt.Sprintf("%d fully duplicated rows (%.1f%%)", dups, float64(dups)/float64(ds.Len())*100),
		})
	}
}

func checkForeignKeys(ds *dataset.Dataset, table string, opts Options, rep *Report) {
	fks, ok := ForeignKeys[table]
	if !ok {
		return
	}
	for fkCol, parent := range fks {
		refs, ok := opts.References[parent]
		if !ok || !ds.HasColumn(fkCol) {
			continue
		}
		orphaned := 0
		for _, row := range ds.Rows {
			if row[fkCol] == nil {
				continue
			}
			k, ok := dataset.Fingerprint(row, []string{fkCol})
			if !ok || !refs[k] {
				orphaned++
			}
		}
		if orphaned > 0 {
			if rep.OrphanedKeys == nil {
				rep.OrphanedKeys = make(map[string]int)
			}
			rep.OrphanedKeys[fkCol] = orphaned
			rep.Findings = append(rep.Findings, Finding{
				Check:   "foreign_key",
				Column:  fkCol,
				Count:   orphaned,
				Message: fmt.Sprintf("%d rows reference a %q missing from %s", orphaned, fkCol, parent),
			})
		}
	}
}
