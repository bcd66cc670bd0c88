// Package dataset defines the in-memory tabular model that flows through the
// pipeline: an ordered sequence of rows, each a mapping from column name to a
// typed scalar (nil = SQL NULL). Column kinds are inferred at extraction time
// and preserved through transformation, validation, and load.
//
// A Dataset is owned by exactly one pipeline stage at a time. Stages mutate it
// in place or compact it; they never share it with another stage.
package dataset

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies a column for profiling and validation purposes.
type Kind int

const (
	KindCategorical Kind = iota
	KindNumeric
	KindTemporal
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindTemporal:
		return "temporal"
	default:
		return "categorical"
	}
}

// Row is a single record keyed by column name. nil values represent SQL NULL.
type Row map[string]any

// Dataset is an ordered collection of rows sharing a column schema.
type Dataset struct {
	Columns []string
	Kinds   map[string]Kind
	Rows    []Row
}

// New returns an empty dataset with the given column order.
func New(columns ...string) *Dataset {
	d := &Dataset{
		Columns: append([]string(nil), columns...),
		Kinds:   make(map[string]Kind, len(columns)),
	}
	return d
}

// Len reports the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// HasColumn reports whether name is part of the schema.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn extends the schema with a derived column. Overwriting an existing
// column is a configuration error, not a silent replace.
func (d *Dataset) AddColumn(name string, kind Kind) error {
	if d.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	d.Columns = append(d.Columns, name)
	d.Kinds[name] = kind
	return nil
}

// Retain compacts the dataset in place, keeping only rows for which keep
// returns true. It returns the number of rows removed.
func (d *Dataset) Retain(keep func(Row) bool) int {
	out := d.Rows[:0]
	for _, r := range d.Rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	removed := len(d.Rows) - len(out)
	d.Rows = out
	return removed
}

// Numeric returns the non-nil values of a column that are representable as
// float64, together with the row index of each value.
func (d *Dataset) Numeric(col string) (vals []float64, idx []int) {
	for i, r := range d.Rows {
		if f, ok := AsFloat(r[col]); ok {
			vals = append(vals, f)
			idx = append(idx, i)
		}
	}
	return vals, idx
}

// NullCount reports how many rows have a nil value in col.
func (d *Dataset) NullCount(col string) int {
	n := 0
	for _, r := range d.Rows {
		if r[col] == nil {
			n++
		}
	}
	return n
}

// AsFloat converts the scalar types produced by extraction to float64.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}

// AsTime converts a scalar to time.Time if it already is one.
func AsTime(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}

// Fingerprint builds a stable string key from the given columns of a row.
// nil maps to \x00 and fields are joined with \x1f so distinct value tuples
// cannot collide. Missing columns report ok=false.
func Fingerprint(r Row, cols []string) (string, bool) {
	var b strings.Builder
	for i, c := range cols {
		v, ok := r[c]
		if !ok {
			return "", false
		}
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch t := v.(type) {
		case nil:
			b.WriteByte('\x00')
		case string:
			b.WriteString(t)
		case time.Time:
			b.WriteString(t.Format(time.RFC3339Nano))
		default:
			fmt.Fprint(&b, t)
		}
	}
	return b.String(), true
}

// InferKinds fills in kinds for columns that have none recorded, based on the
// first non-nil value observed in each. Columns with no non-nil values (or no
// rows at all) default to categorical.
func (d *Dataset) InferKinds() {
	for _, c := range d.Columns {
		if _, ok := d.Kinds[c]; ok {
			continue
		}
		d.Kinds[c] = d.inferColumn(c)
	}
}

func (d *Dataset) inferColumn(col string) Kind {
	for _, r := range d.Rows {
		v := r[col]
		if v == nil {
			continue
		}
		if _, ok := AsFloat(v); ok {
			return KindNumeric
		}
		if _, ok := v.(time.Time); ok {
			return KindTemporal
		}
		return KindCategorical
	}
	return KindCategorical
}
