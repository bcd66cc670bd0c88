// Package extract pulls whole tables or parameterized queries from the
// source store into an in-memory dataset.
//
// Extraction is all-or-nothing per call: a query or scan failure discards any
// partially read rows and surfaces an *ExtractError, so downstream stages
// never see a silently truncated dataset.
package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"scetl/internal/dataset"
	"scetl/internal/dbconn"
)

// ExtractError marks a per-table extraction failure.
type ExtractError struct {
	Table string
	Err   error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Table, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Filter restricts a table extraction to a date window.
type Filter struct {
	DateColumn string
	Start, End time.Time
}

// Extractor reads datasets through the pooled connection manager.
type Extractor struct {
	db  *dbconn.DB
	log *zap.Logger
}

func New(db *dbconn.DB, log *zap.Logger) *Extractor {
	return &Extractor{db: db, log: log}
}

// ExtractTable reads a full table, or a date-filtered slice of it.
func (e *Extractor) ExtractTable(ctx context.Context, table string, filter *Filter) (*dataset.Dataset, error) {
	if !dbconn.ValidIdent(table) {
		return nil, &ExtractError{Table: table, Err: fmt.Errorf("invalid table name %q", table)}
	}
	q := "SELECT * FROM " + table
	var args []any
	if filter != nil {
		if !dbconn.ValidIdent(filter.DateColumn) {
			return nil, &ExtractError{Table: table, Err: fmt.Errorf("invalid filter column %q", filter.DateColumn)}
		}
		q += fmt.Sprintf(" WHERE %s BETWEEN %s AND %s",
			filter.DateColumn, e.db.Placeholder(1), e.db.Placeholder(2))
		args = append(args, filter.Start, filter.End)
	}
	ds, err := e.query(ctx, table, q, args...)
	if err != nil {
		return nil, err
	}
	e.log.Info("extracted table",
		zap.String("stage", "extract"),
		zap.String("table", table),
		zap.Int("rows", ds.Len()))
	return ds, nil
}

// ExtractQuery runs an arbitrary read-only query with positional parameters.
func (e *Extractor) ExtractQuery(ctx context.Context, query string, args ...any) (*dataset.Dataset, error) {
	ds, err := e.query(ctx, "custom query", query, args...)
	if err != nil {
		return nil, err
	}
	e.log.Info("extracted custom query",
		zap.String("stage", "extract"),
		zap.Int("rows", ds.Len()))
	return ds, nil
}

func (e *Extractor) query(ctx context.Context, label, q string, args ...any) (*dataset.Dataset, error) {
	rows, err := e.db.SQL().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &ExtractError{Table: label, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &ExtractError{Table: label, Err: err}
	}
	ds := dataset.New(cols...)
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			if k, ok := kindFromDBType(ct.DatabaseTypeName()); ok {
				ds.Kinds[cols[i]] = k
			}
		}
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ExtractError{Table: label, Err: err}
		}
		r := make(dataset.Row, len(cols))
		for i, c := range cols {
			r[c] = normalize(vals[i], ds.Kinds[c])
		}
		ds.Rows = append(ds.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExtractError{Table: label, Err: err}
	}
	ds.InferKinds()
	return ds, nil
}

// normalize converts driver scan types to the scalar set the pipeline works
// with: string, int64, float64, bool, time.Time, nil. DECIMAL-style columns
// arrive as byte slices from most drivers and are parsed when the declared
// kind is numeric.
func normalize(v any, kind dataset.Kind) any {
	switch t := v.(type) {
	case []byte:
		s := string(t)
		if kind == dataset.KindNumeric {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
		return s
	default:
		return v
	}
}

// kindFromDBType maps SQL type names to dataset kinds. Unknown names report
// ok=false and fall back to value-based inference.
func kindFromDBType(name string) (dataset.Kind, bool) {
	switch strings.ToUpper(name) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT",
		"DECIMAL", "NUMERIC", "FLOAT", "DOUBLE", "REAL",
		"INT2", "INT4", "INT8", "FLOAT4", "FLOAT8":
		return dataset.KindNumeric, true
	case "DATE", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIME":
		return dataset.KindTemporal, true
	case "CHAR", "VARCHAR", "TEXT", "LONGTEXT", "NAME", "UUID":
		return dataset.KindCategorical, true
	}
	return 0, false
}
