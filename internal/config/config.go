// Package config defines the canonical, JSON-serializable configuration model
// for the ETL pipeline. It is intentionally small, explicit, and dependency-
// free so that a run can be loaded from disk and passed through the program
// without additional glue code.
//
// Design goals:
//
//  1. Per-run isolation: every component takes a Config value in its
//     constructor. There is no process-wide mutable configuration, so
//     concurrent runs with different settings cannot interfere.
//  2. Clarity: Go field names mirror the JSON keys used in run files.
//  3. Minimalism: no third-party config libraries; decoding is performed by
//     the standard library.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config holds every tunable of a single pipeline run.
type Config struct {
	// Database connection. Driver selects the registered driver:
	// "mysql", "postgres", or "sqlite".
	Driver     string `json:"driver"`
	DBHost     string `json:"db_host"`
	DBPort     int    `json:"db_port"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name"`

	// PoolSize caps concurrently open connections. Acquisition beyond the
	// cap blocks rather than over-provisioning.
	PoolSize int `json:"pool_size"`

	// Retry policy for establishing connectivity.
	MaxRetries         int `json:"max_retries"`
	RetryBackoffBaseMS int `json:"retry_backoff_base_ms"`

	// Load behavior.
	BatchSize        int  `json:"batch_size"`
	BackupBeforeLoad bool `json:"backup_before_load"`
	BackupMandatory  bool `json:"backup_mandatory"`

	// Stage toggles and validation policy.
	EnableValidation     bool    `json:"enable_validation"`
	EnableTransformation bool    `json:"enable_transformation"`
	RejectOnCritical     bool    `json:"reject_on_critical"`
	NullThreshold        float64 `json:"null_threshold"`
	DuplicateThreshold   float64 `json:"duplicate_threshold"`

	// Anomaly detection.
	IsolationForestSeed int64   `json:"isolation_forest_seed"`
	Contamination       float64 `json:"contamination"`
	IQRMultiplier       float64 `json:"anomaly_iqr_multiplier"`
	ZScoreThreshold     float64 `json:"anomaly_zscore_threshold"`

	// Report artifacts. Overwritten on rerun.
	ReportJSONPath string `json:"report_json_path"`
	ReportHTMLPath string `json:"report_html_path"`

	// Observability. PushgatewayURL enables the Prometheus push backend,
	// StatsdAddr the Datadog one; configuring both is a lint error.
	LogLevel       string `json:"log_level"`
	LogFile        string `json:"log_file"`
	PushgatewayURL string `json:"pushgateway_url"`
	StatsdAddr     string `json:"statsd_addr"`

	// Workers bounds concurrent table processing. 1 = sequential.
	Workers int `json:"workers"`
}

// Default returns the configuration used when a run file omits a field.
func Default() Config {
	return Config{
		Driver:               "mysql",
		DBHost:               "localhost",
		DBPort:               3306,
		DBName:               "supply_chain_db",
		PoolSize:             5,
		MaxRetries:           3,
		RetryBackoffBaseMS:   500,
		BatchSize:            1000,
		EnableValidation:     true,
		EnableTransformation: true,
		NullThreshold:        0.05,
		DuplicateThreshold:   0.01,
		IsolationForestSeed:  42,
		Contamination:        0.1,
		IQRMultiplier:        1.5,
		ZScoreThreshold:      3.0,
		ReportJSONPath:       "quality_report.json",
		ReportHTMLPath:       "data_quality_report.html",
		LogLevel:             "info",
		Workers:              1,
	}
}

// Load decodes a run file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// RetryBackoffBase returns the base delay of the exponential backoff.
func (c Config) RetryBackoffBase() time.Duration {
	return time.Duration(c.RetryBackoffBaseMS) * time.Millisecond
}

// DSN assembles the driver-specific connection string.
func (c Config) DSN() (string, error) {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName), nil
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName), nil
	case "sqlite":
		// DBName is a file path (or ":memory:") for sqlite.
		return c.DBName, nil
	}
	return "", fmt.Errorf("unknown driver %q", c.Driver)
}
