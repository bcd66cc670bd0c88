// This file adds a lightweight linter for Config values. It performs static
// checks over a decoded Config and returns a list of issues (errors and
// warnings) that callers can surface in the CLI or tests before a run starts.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users
	// but does not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Config.
//
// Path is the JSON key of the offending field. Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static validation of a Config. It does not mutate the
// config; callers decide whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	errf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
	}

	switch c.Driver {
	case "mysql", "postgres", "sqlite":
	case "":
		errf("driver", "driver must not be empty")
	default:
		errf("driver", "unknown driver %q (want mysql, postgres, or sqlite)", c.Driver)
	}

	if c.Driver != "sqlite" {
		if strings.TrimSpace(c.DBHost) == "" {
			errf("db_host", "db_host must not be empty")
		}
		if c.DBPort <= 0 || c.DBPort > 65535 {
			errf("db_port", "db_port %d out of range", c.DBPort)
		}
	}
	if strings.TrimSpace(c.DBName) == "" {
		errf("db_name", "db_name must not be empty")
	}

	if c.PoolSize <= 0 {
		errf("pool_size", "pool_size must be > 0")
	}
	if c.MaxRetries < 0 {
		errf("max_retries", "max_retries must be >= 0")
	}
	if c.RetryBackoffBaseMS < 0 {
		errf("retry_backoff_base_ms", "retry backoff base must be >= 0")
	}
	if c.BatchSize <= 0 {
		errf("batch_size", "batch_size must be > 0")
	}
	if c.Workers <= 0 {
		errf("workers", "workers must be > 0")
	}
	if c.Workers > c.PoolSize && c.PoolSize > 0 {
		warnf("workers", "workers (%d) exceeds pool_size (%d); table processing will block on connection checkout", c.Workers, c.PoolSize)
	}

	if c.NullThreshold < 0 || c.NullThreshold > 1 {
		errf("null_threshold", "null_threshold must be in [0,1]")
	}
	if c.DuplicateThreshold < 0 || c.DuplicateThreshold > 1 {
		errf("duplicate_threshold", "duplicate_threshold must be in [0,1]")
	}
	if c.Contamination <= 0 || c.Contamination >= 0.5 {
		errf("contamination", "contamination must be in (0, 0.5)")
	}
	if c.IQRMultiplier <= 0 {
		errf("anomaly_iqr_multiplier", "IQR multiplier must be > 0")
	}
	if c.ZScoreThreshold <= 0 {
		errf("anomaly_zscore_threshold", "z-score threshold must be > 0")
	}

	if c.BackupMandatory && !c.BackupBeforeLoad {
		warnf("backup_mandatory", "backup_mandatory has no effect while backup_before_load is false")
	}
	if c.PushgatewayURL != "" && c.StatsdAddr != "" {
		errf("statsd_addr", "pushgateway_url and statsd_addr are mutually exclusive")
	}

	return issues
}

// Errs filters issues down to hard errors.
func Errs(issues []Issue) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}
