// Package report aggregates one run's validation results, profiles, anomaly
// findings, and load summaries into a run summary plus JSON and HTML
// artifacts. Aggregation is pure; only the Write functions touch the
// filesystem, and their failures are the caller's to downgrade — by the time
// a report is written the data is already loaded or rejected.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scetl/internal/load"
	"scetl/internal/quality/anomaly"
	"scetl/internal/quality/profile"
	"scetl/internal/quality/rules"
	"scetl/internal/quality/validate"
)

// TableReport collects everything the run learned about one table.
type TableReport struct {
	Table      string           `json:"table"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Validation *validate.Report `json:"validation,omitempty"`
	Rules      []rules.Result   `json:"rules,omitempty"`
	Profile    *profile.Table   `json:"profile,omitempty"`
	Anomalies  *anomaly.Report  `json:"anomalies,omitempty"`
	Load       *load.Summary    `json:"load,omitempty"`
}

// Run is the complete input to report generation.
type Run struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Tables     []TableReport `json:"tables"`
}

// Summary is the roll-up across all tables of a run.
type Summary struct {
	Tables           int     `json:"tables"`
	TablesLoaded     int     `json:"tables_loaded"`
	TablesFailed     int     `json:"tables_failed"`
	RowsLoaded       int     `json:"rows_loaded"`
	RowsFailed       int     `json:"rows_failed"`
	CriticalFailures int     `json:"critical_failures"`
	WarningFailures  int     `json:"warning_failures"`
	Outliers         int     `json:"outlier_rows"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

// Summarize rolls the run up into a Summary. Pure.
func Summarize(run *Run) Summary {
	s := Summary{
		Tables:          len(run.Tables),
		DurationSeconds: run.FinishedAt.Sub(run.StartedAt).Seconds(),
	}
	for _, t := range run.Tables {
		if t.Status == "LOADED" {
			s.TablesLoaded++
		}
		if t.Status == "FAILED" {
			s.TablesFailed++
		}
		if t.Load != nil {
			s.RowsLoaded += t.Load.Loaded
			s.RowsFailed += t.Load.Failed
		}
		s.CriticalFailures += rules.CriticalFailures(t.Rules)
		s.WarningFailures += rules.WarningFailures(t.Rules)
		if t.Anomalies != nil {
			s.Outliers += t.Anomalies.TotalOutliers()
		}
	}
	return s
}

// document is the serialized artifact shape shared by JSON and HTML output.
type document struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Summary     Summary       `json:"summary"`
	Tables      []TableReport `json:"tables"`
}

// WriteJSON serializes the run to path, creating parent directories.
func WriteJSON(run *Run, path string) error {
	doc := document{GeneratedAt: time.Now(), Summary: Summarize(run), Tables: run.Tables}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteHTML renders the styled report to path, creating parent directories.
func WriteHTML(run *Run, path string) error {
	doc := document{GeneratedAt: time.Now(), Summary: Summarize(run), Tables: run.Tables}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return htmlTemplate.Execute(f, doc)
}
