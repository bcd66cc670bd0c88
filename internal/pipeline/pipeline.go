// Package pipeline orchestrates the run: for each table, extract, transform,
// validate (built-in checks plus the registered rule set), profile, detect
// anomalies, and load into the destination table, collecting per-table
// statistics and a run-level quality report along the way.
//
// Failure isolation is per table: any stage error marks that table FAILED
// and the run moves on to the next. Tables are processed sequentially by
// default; Workers > 1 bounds a concurrent mode. Cancellation is honored
// between tables — a table that started processing runs its stages under the
// caller's context and is never half-recorded.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scetl/internal/config"
	"scetl/internal/dbconn"
	"scetl/internal/extract"
	"scetl/internal/load"
	"scetl/internal/metrics"
	"scetl/internal/quality/anomaly"
	"scetl/internal/quality/profile"
	"scetl/internal/quality/report"
	"scetl/internal/quality/rules"
	"scetl/internal/quality/validate"
	"scetl/internal/transform"
)

// DefaultTables is the standard processing order: parents before children so
// reference sets exist by the time dependent tables are validated.
var DefaultTables = []string{
	"suppliers", "warehouses", "products", "inventory", "orders", "sales", "price_history",
}

// Pipeline wires the stages together for one run.
type Pipeline struct {
	cfg    config.Config
	db     *dbconn.DB
	engine *rules.Engine
	log    *zap.Logger

	refMu sync.Mutex
	refs  map[string]map[string]bool // parent table -> primary-key fingerprints
}

func New(cfg config.Config, db *dbconn.DB, engine *rules.Engine, log *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		db:     db,
		engine: engine,
		log:    log,
		refs:   make(map[string]map[string]bool),
	}
}

// RunFullPipeline processes the given tables and writes the quality report
// artifacts. Per-table failures are recorded in the returned stats, never
// returned as an error; the error is non-nil only when the run itself was
// cut short by cancellation.
func (p *Pipeline) RunFullPipeline(ctx context.Context, tables []string, enableValidation, enableTransformation bool) (*ExecutionStats, error) {
	if len(tables) == 0 {
		tables = DefaultTables
	}
	stats := &ExecutionStats{StartedAt: time.Now()}
	run := &report.Run{StartedAt: stats.StartedAt}

	var repMu sync.Mutex
	tableReports := make(map[string]report.TableReport, len(tables))

	process := func(ctx context.Context, table string) {
		ts, tr := p.processTable(ctx, table, enableValidation, enableTransformation)
		stats.record(ts)
		repMu.Lock()
		tableReports[table] = tr
		repMu.Unlock()
	}

	if p.cfg.Workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Workers)
		for _, table := range tables {
			table := table
			g.Go(func() error {
				if gctx.Err() != nil {
					stats.record(TableStats{Table: table, Status: StatusPending, Error: gctx.Err().Error()})
					return nil
				}
				process(gctx, table)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, table := range tables {
			if ctx.Err() != nil {
				stats.record(TableStats{Table: table, Status: StatusPending, Error: ctx.Err().Error()})
				continue
			}
			process(ctx, table)
		}
	}

	stats.FinishedAt = time.Now()
	run.FinishedAt = stats.FinishedAt
	for _, table := range tables {
		if tr, ok := tableReports[table]; ok {
			run.Tables = append(run.Tables, tr)
		}
	}
	p.writeReports(run)

	if err := metrics.Flush(); err != nil {
		p.log.Warn("metrics flush failed", zap.Error(err))
	}

	p.log.Info("run complete",
		zap.Int("tables", len(tables)),
		zap.Int("loaded", stats.Loaded()),
		zap.Strings("failed", stats.Failed()),
		zap.Duration("took", stats.FinishedAt.Sub(stats.StartedAt)))
	return stats, ctx.Err()
}

// processTable drives one table through the state machine. It always returns
// a terminal TableStats and the report entry for the table.
func (p *Pipeline) processTable(ctx context.Context, table string, enableValidation, enableTransformation bool) (TableStats, report.TableReport) {
	start := time.Now()
	ts := TableStats{Table: table, Status: StatusPending}
	tr := report.TableReport{Table: table}
	log := p.log.With(zap.String("table", table))

	fail := func(stage string, err error) (TableStats, report.TableReport) {
		ts.Status = StatusFailed
		ts.FailedStage = stage
		ts.Error = err.Error()
		ts.Duration = time.Since(start)
		tr.Status = string(StatusFailed)
		tr.Error = err.Error()
		log.Error("table failed", zap.String("stage", stage), zap.Error(err))
		return ts, tr
	}

	// Extract.
	extractStart := time.Now()
	ds, err := extract.New(p.db, log).ExtractTable(ctx, table, nil)
	metrics.RecordStage(table, "extract", err, time.Since(extractStart))
	if err != nil {
		return fail("extract", err)
	}
	ts.Status = StatusExtracted
	ts.Extracted = ds.Len()
	metrics.RecordRows(table, "extracted", int64(ds.Len()))

	// Transform.
	if enableTransformation {
		transformStart := time.Now()
		chain := transform.DefaultChain(log, table, nil)
		tstats, err := chain.Apply(ds)
		metrics.RecordStage(table, "transform", err, time.Since(transformStart))
		if err != nil {
			return fail("transform", err)
		}
		ts.Rejected += tstats.Dropped()
	}
	ts.Status = StatusTransformed
	ts.Transformed = ds.Len()
	metrics.RecordRows(table, "transformed", int64(ds.Len()))

	// Validate: built-in structural checks plus the registered rules.
	if enableValidation {
		validateStart := time.Now()
		refs, err := p.references(ctx, table)
		if err != nil {
			log.Warn("reference sets unavailable, skipping foreign-key checks", zap.Error(err))
		}
		tr.Validation = validate.Check(ds, table, validate.Options{
			NullThreshold:      p.cfg.NullThreshold,
			DuplicateThreshold: p.cfg.DuplicateThreshold,
			References:         refs,
		})
		tr.Rules = p.engine.Execute(ds, table)
		metrics.RecordStage(table, "validate", nil, time.Since(validateStart))

		if critical := rules.CriticalFailures(tr.Rules); critical > 0 && p.cfg.RejectOnCritical {
			ts.Rejected += ds.Len()
			metrics.RecordRows(table, "rejected", int64(ds.Len()))
			return fail("validate", fmt.Errorf("rejected: %d critical rule failure(s)", critical))
		}
	}
	ts.Status = StatusValidated

	// Profile and anomalies never gate loading; their findings go to the report.
	anomalyStart := time.Now()
	tr.Profile = profile.Build(ds, table)
	tr.Anomalies = anomaly.AnalyzeTable(ds, table, anomaly.Config{
		IQRMultiplier:   p.cfg.IQRMultiplier,
		ZScoreThreshold: p.cfg.ZScoreThreshold,
		Contamination:   p.cfg.Contamination,
		Seed:            p.cfg.IsolationForestSeed,
		MinDistinct:     2,
	})
	metrics.RecordStage(table, "anomaly", nil, time.Since(anomalyStart))

	// Load.
	loadStart := time.Now()
	sum, err := load.New(p.db, log).Load(ctx, ds, table+"_processed", load.Options{
		BatchSize:       p.cfg.BatchSize,
		Backup:          p.cfg.BackupBeforeLoad,
		BackupMandatory: p.cfg.BackupMandatory,
		IdentColumn:     validate.PrimaryKeys[table],
	})
	metrics.RecordStage(table, "load", err, time.Since(loadStart))
	if err != nil {
		return fail("load", err)
	}
	tr.Load = sum
	ts.Loaded = sum.Loaded
	ts.FailedRows = sum.Failed
	ts.Status = StatusLoaded
	ts.Duration = time.Since(start)
	tr.Status = string(StatusLoaded)
	metrics.RecordRows(table, "loaded", int64(sum.Loaded))
	metrics.RecordRows(table, "failed", int64(sum.Failed))
	metrics.RecordBatches(table, int64(sum.Batches-len(sum.Errors)))

	log.Info("table loaded",
		zap.Int("extracted", ts.Extracted),
		zap.Int("loaded", ts.Loaded),
		zap.Int("failed", ts.FailedRows),
		zap.Int("rejected", ts.Rejected),
		zap.Duration("took", ts.Duration))
	return ts, tr
}

// references fetches (and caches) the primary-key sets of the table's
// parents for the foreign-key checks.
func (p *Pipeline) references(ctx context.Context, table string) (map[string]map[string]bool, error) {
	fks, ok := validate.ForeignKeys[table]
	if !ok {
		return nil, nil
	}
	out := make(map[string]map[string]bool, len(fks))
	for _, parent := range fks {
		set, err := p.referenceSet(ctx, parent)
		if err != nil {
			return nil, fmt.Errorf("reference set for %s: %w", parent, err)
		}
		out[parent] = set
	}
	return out, nil
}

func (p *Pipeline) referenceSet(ctx context.Context, parent string) (map[string]bool, error) {
	p.refMu.Lock()
	if set, ok := p.refs[parent]; ok {
		p.refMu.Unlock()
		return set, nil
	}
	p.refMu.Unlock()

	pk, ok := validate.PrimaryKeys[parent]
	if !ok {
		return nil, fmt.Errorf("no primary key known for %s", parent)
	}
	ds, err := extract.New(p.db, p.log).ExtractQuery(ctx, fmt.Sprintf("SELECT %s FROM %s", pk, parent))
	if err != nil {
		return nil, err
	}
	set := validate.ReferenceSet(ds, parent)

	p.refMu.Lock()
	p.refs[parent] = set
	p.refMu.Unlock()
	return set, nil
}

// writeReports renders the run artifacts. A reporting failure is a warning,
// never a run failure: the data is already loaded or rejected.
func (p *Pipeline) writeReports(run *report.Run) {
	if p.cfg.ReportJSONPath != "" {
		if err := report.WriteJSON(run, p.cfg.ReportJSONPath); err != nil {
			p.log.Warn("json report failed", zap.Error(err))
		} else {
			p.log.Info("json report written", zap.String("path", p.cfg.ReportJSONPath))
		}
	}
	if p.cfg.ReportHTMLPath != "" {
		if err := report.WriteHTML(run, p.cfg.ReportHTMLPath); err != nil {
			p.log.Warn("html report failed", zap.Error(err))
		} else {
			p.log.Info("html report written", zap.String("path", p.cfg.ReportHTMLPath))
		}
	}
}
