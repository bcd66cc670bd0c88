// Package transform applies the fixed, ordered cleaning pipeline to a
// dataset: null handling, duplicate removal, date standardization, derived
// columns, and table-specific business rules, in that order.
//
// Each stage is independently toggleable (omit it from the chain) and records
// how many rows it modified, dropped, or nulled. A stage that fails aborts
// transformation for that table only; the orchestrator marks the table failed
// and moves on.
package transform

import (
	"fmt"

	"go.uber.org/zap"

	"scetl/internal/dataset"
)

// StageResult counts the effect of one stage on one dataset.
type StageResult struct {
	Modified int // rows with at least one value changed
	Dropped  int // rows removed
	Nulled   int // values made nil (unparsable dates)
}

// StageStats is a StageResult tagged with the stage name.
type StageStats struct {
	Stage    string `json:"stage"`
	Modified int    `json:"modified"`
	Dropped  int    `json:"dropped"`
	Nulled   int    `json:"nulled"`
}

// Stats accumulates per-stage results for one table, in execution order.
type Stats struct {
	Stages []StageStats `json:"stages"`
}

// Dropped reports the total rows removed across all stages.
func (s *Stats) Dropped() int {
	n := 0
	for _, st := range s.Stages {
		n += st.Dropped
	}
	return n
}

// TransformError marks an unrecoverable, stage-scoped failure.
type TransformError struct {
	Stage string
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform stage %s: %v", e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Stage is one step of the cleaning pipeline. Apply mutates the dataset it
// owns and reports what changed.
type Stage interface {
	Name() string
	Apply(ds *dataset.Dataset) (StageResult, error)
}

// Chain runs stages in the order given. Construct it with the stages already
// in the canonical order; Chain does not reorder.
type Chain struct {
	stages []Stage
	log    *zap.Logger
}

func NewChain(log *zap.Logger, stages ...Stage) Chain {
	return Chain{stages: stages, log: log}
}

// DefaultChain assembles the canonical stage order for a table: nulls,
// dedup (full row, keep-first), date standardization, derived columns,
// business rules. nullRules may be nil when no null handling is configured.
func DefaultChain(log *zap.Logger, table string, nullRules map[string]NullRule) Chain {
	return NewChain(log,
		Nulls{Columns: nullRules},
		Dedup{},
		Dates{},
		Derived{Table: table},
		Business{Table: table},
	)
}

// Apply executes every stage against ds, stopping at the first failure.
// The returned Stats always covers the stages that ran.
func (c Chain) Apply(ds *dataset.Dataset) (*Stats, error) {
	stats := &Stats{}
	for _, st := range c.stages {
		res, err := st.Apply(ds)
		stats.Stages = append(stats.Stages, StageStats{
			Stage:    st.Name(),
			Modified: res.Modified,
			Dropped:  res.Dropped,
			Nulled:   res.Nulled,
		})
		if err != nil {
			return stats, &TransformError{Stage: st.Name(), Err: err}
		}
		if res.Modified > 0 || res.Dropped > 0 || res.Nulled > 0 {
			c.log.Info("transform stage applied",
				zap.String("stage", st.Name()),
				zap.Int("modified", res.Modified),
				zap.Int("dropped", res.Dropped),
				zap.Int("nulled", res.Nulled))
		}
	}
	return stats, nil
}
