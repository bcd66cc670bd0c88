package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNew_FileSink writes structured entries to the configured file.
func TestNew_FileSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "run.log")
	log, cleanup, err := New("info", path)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("pipeline started")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "pipeline started") {
		t.Errorf("log file missing entry: %q", string(data))
	}
}

// TestNew_LevelFiltering drops entries below the configured level.
func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")
	log, cleanup, err := New("warn", path)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("too quiet")
	log.Warn("loud enough")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "too quiet") {
		t.Error("info entry survived warn level")
	}
	if !strings.Contains(string(data), "loud enough") {
		t.Error("warn entry missing")
	}
}

// TestNew_BadLevel rejects unknown level names.
func TestNew_BadLevel(t *testing.T) {
	t.Parallel()

	if _, _, err := New("verbose", ""); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
