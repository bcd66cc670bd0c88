package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// TestLoad_AppliesDefaults checks that a sparse run file only overrides the
// keys it names.
func TestLoad_AppliesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.json")
	const js = `{"db_host": "db.internal", "batch_size": 250, "reject_on_critical": true}`
	if err := os.WriteFile(path, []byte(js), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBHost != "db.internal" {
		t.Errorf("DBHost = %q", cfg.DBHost)
	}
	if cfg.BatchSize != 250 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if !cfg.RejectOnCritical {
		t.Error("RejectOnCritical not set")
	}
	// Untouched keys keep their defaults.
	if cfg.PoolSize != 5 || cfg.MaxRetries != 3 || cfg.IQRMultiplier != 1.5 {
		t.Errorf("defaults lost: pool=%d retries=%d iqr=%v", cfg.PoolSize, cfg.MaxRetries, cfg.IQRMultiplier)
	}
}

func TestLoad_BadJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("want decode error, got nil")
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.DBUser = "u"
	cfg.DBPassword = "p"
	dsn, err := cfg.DSN()
	if err != nil {
		t.Fatalf("DSN: %v", err)
	}
	if dsn != "u:p@tcp(localhost:3306)/supply_chain_db?parseTime=true" {
		t.Fatalf("mysql dsn = %q", dsn)
	}

	cfg.Driver = "sqlite"
	cfg.DBName = ":memory:"
	if dsn, _ = cfg.DSN(); dsn != ":memory:" {
		t.Fatalf("sqlite dsn = %q", dsn)
	}

	cfg.Driver = "oracle"
	if _, err := cfg.DSN(); err == nil {
		t.Fatal("unknown driver: want error")
	}
}

// TestDefault_RoundTrip guards the JSON key names against accidental renames:
// encoding and decoding the defaults must be lossless.
func TestDefault_RoundTrip(t *testing.T) {
	t.Parallel()

	in := Default()
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Config
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if in != out {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}
