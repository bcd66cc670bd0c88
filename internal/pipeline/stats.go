package pipeline

import (
	"sync"
	"time"
)

// Status is the per-table state machine. Transitions are forward-only:
// PENDING → EXTRACTED → TRANSFORMED → VALIDATED → LOADED, with FAILED as the
// terminal state of any stage error.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusExtracted   Status = "EXTRACTED"
	StatusTransformed Status = "TRANSFORMED"
	StatusValidated   Status = "VALIDATED"
	StatusLoaded      Status = "LOADED"
	StatusFailed      Status = "FAILED"
)

// TableStats is the final accounting for one table of a run.
type TableStats struct {
	Table       string        `json:"table"`
	Status      Status        `json:"status"`
	FailedStage string        `json:"failed_stage,omitempty"`
	Error       string        `json:"error,omitempty"`
	Extracted   int           `json:"rows_extracted"`
	Transformed int           `json:"rows_transformed"`
	Rejected    int           `json:"rows_rejected"`
	Loaded      int           `json:"rows_loaded"`
	FailedRows  int           `json:"rows_failed"`
	Duration    time.Duration `json:"duration_ns"`
}

// ExecutionStats collects per-table outcomes for one run. Records are
// append-only and the struct is safe for concurrent writers.
type ExecutionStats struct {
	StartedAt  time.Time
	FinishedAt time.Time

	mu     sync.Mutex
	tables []TableStats
}

func (s *ExecutionStats) record(ts TableStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = append(s.tables, ts)
}

// Tables returns a copy of the per-table records in completion order.
func (s *ExecutionStats) Tables() []TableStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TableStats(nil), s.tables...)
}

// Failed lists the tables that did not load.
func (s *ExecutionStats) Failed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, t := range s.tables {
		if t.Status != StatusLoaded {
			out = append(out, t.Table)
		}
	}
	return out
}

// Loaded counts the tables that completed.
func (s *ExecutionStats) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tables {
		if t.Status == StatusLoaded {
			n++
		}
	}
	return n
}
