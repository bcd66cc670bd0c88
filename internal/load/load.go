// Package load writes a transformed dataset into its destination table in
// fixed-size batches, one transaction per batch. A batch commits fully or
// rolls back fully; a failed batch never disturbs batches already committed.
// Optionally snapshots the destination before writing.
package load

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"scetl/internal/dataset"
	"scetl/internal/dbconn"
)

// BatchError reports one rolled-back batch with enough detail to act on:
// which rows it covered, how the first row identifies itself, and the cause.
type BatchError struct {
	Batch    int    `json:"batch"`
	FirstRow int    `json:"first_row"`
	Rows     int    `json:"rows"`
	RowIdent string `json:"row_ident,omitempty"`
	Cause    string `json:"cause"`
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (rows %d..%d, first %s): %s",
		e.Batch, e.FirstRow, e.FirstRow+e.Rows-1, e.RowIdent, e.Cause)
}

// Summary is the outcome of one Load call.
type Summary struct {
	Loaded  int          `json:"rows_loaded"`
	Failed  int          `json:"rows_failed"`
	Batches int          `json:"batches"`
	Errors  []BatchError `json:"errors,omitempty"`
}

// Options tunes one Load call.
type Options struct {
	BatchSize       int
	Backup          bool   // snapshot the destination before writing
	BackupMandatory bool   // a failed snapshot aborts the load
	IdentColumn     string // column reported in BatchError.RowIdent
}

// Loader writes datasets through a shared connection pool.
type Loader struct {
	db  *dbconn.DB
	log *zap.Logger
}

func New(db *dbconn.DB, log *zap.Logger) *Loader {
	return &Loader{db: db, log: log}
}

// Load writes ds into destination. Rows go out in Options.BatchSize batches,
// each inside its own transaction; a failing batch is rolled back, recorded,
// and the remaining batches proceed. The returned error is non-nil only for
// failures that prevent loading entirely (bad destination, mandatory backup
// failure); per-batch failures live in the Summary.
func (l *Loader) Load(ctx context.Context, ds *dataset.Dataset, destination string, opts Options) (*Summary, error) {
	if !dbconn.ValidIdent(destination) {
		return nil, fmt.Errorf("invalid destination table %q", destination)
	}
	for _, c := range ds.Columns {
		if !dbconn.ValidIdent(c) {
			return nil, fmt.Errorf("invalid column name %q", c)
		}
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	if opts.Backup {
		if err := l.backup(ctx, destination); err != nil {
			if opts.BackupMandatory {
				return nil, fmt.Errorf("mandatory backup of %s: %w", destination, err)
			}
			l.log.Warn("backup failed, continuing",
				zap.String("table", destination), zap.Error(err))
		}
	}

	sum := &Summary{}
	if ds.Len() == 0 {
		return sum, nil
	}

	for start := 0; start < ds.Len(); start += batchSize {
		end := start + batchSize
		if end > ds.Len() {
			end = ds.Len()
		}
		sum.Batches++
		rows := ds.Rows[start:end]
		if err := l.loadBatch(ctx, destination, ds.Columns, rows); err != nil {
			sum.Failed += len(rows)
			sum.Errors = append(sum.Errors, BatchError{
				Batch:    sum.Batches,
				FirstRow: start,
				Rows:     len(rows),
				RowIdent: rowIdent(rows[0], opts.IdentColumn),
				Cause:    err.Error(),
			})
			l.log.Error("batch rolled back",
				zap.String("table", destination),
				zap.Int("batch", sum.Batches),
				zap.Int("rows", len(rows)),
				zap.Error(err))
			continue
		}
		sum.Loaded += len(rows)
	}

	l.log.Info("load complete",
		zap.String("table", destination),
		zap.Int("loaded", sum.Loaded),
		zap.Int("failed", sum.Failed),
		zap.Int("batches", sum.Batches))
	return sum, nil
}

// loadBatch writes one batch as a single multi-row INSERT inside its own
// transaction, on a connection checked out for the duration of the batch.
func (l *Loader) loadBatch(ctx context.Context, table string, cols []string, rows []dataset.Row) error {
	return l.db.WithConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}

		query, args := l.insertStatement(table, cols, rows)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// insertStatement builds a multi-row INSERT with driver-appropriate
// placeholders and the flattened argument list.
func (l *Loader) insertStatement(table string, cols []string, rows []dataset.Row) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(cols))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, c := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(l.db.Placeholder(n))
			n++
			args = append(args, row[c])
		}
		b.WriteByte(')')
	}
	return b.String(), args
}

// backup snapshots the destination into <table>_backup_<timestamp> before
// the load touches it.
func (l *Loader) backup(ctx context.Context, table string) error {
	name := fmt.Sprintf("%s_backup_%s", table, time.Now().Format("20060102_150405"))
	query := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", name, table)
	if _, err := l.db.SQL().ExecContext(ctx, query); err != nil {
		return err
	}
	l.log.Info("backup created",
		zap.String("table", table), zap.String("backup", name))
	return nil
}

func rowIdent(row dataset.Row, col string) string {
	if col == "" {
		return ""
	}
	v, ok := row[col]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%s=%v", col, v)
}
