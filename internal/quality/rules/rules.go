// Package rules implements the user-extensible validation rule engine.
//
// A Rule is a tagged variant over a closed set of rule kinds (uniqueness,
// completeness, range, positivity, cross-column consistency, unit-price
// consistency), with an opaque predicate escape hatch for the fully custom
// case. Rules are registered per table and are immutable afterwards.
//
// Execution is order-preserving and independent: every rule runs against the
// dataset as handed to Execute, a CRITICAL failure never short-circuits the
// remaining rules, and each rule yields exactly one Result with the precise
// failing-row count. Policy (reject, abort, warn) is the orchestrator's
// business, applied after the full result set is known.
package rules

import (
	"fmt"
	"math"

	"scetl/internal/dataset"
)

// Severity gates load policy: CRITICAL failures can reject a table under the
// reject-on-critical policy, WARNING failures are recorded only.
type Severity string

const (
	Warning  Severity = "WARNING"
	Critical Severity = "CRITICAL"
)

// Kind tags the rule variant.
type Kind string

const (
	Uniqueness   Kind = "uniqueness"
	Completeness Kind = "completeness"
	Range        Kind = "range"
	Positive     Kind = "positive"
	NonNegative  Kind = "non_negative"
	CrossColumn  Kind = "cross_column"
	UnitPrice    Kind = "unit_price"
	Custom       Kind = "custom"
)

// Op is the comparison of a CrossColumn rule; the rule passes for a row when
// `left Op right` holds.
type Op string

const (
	OpLE Op = "<="
	OpLT Op = "<"
	OpGE Op = ">="
	OpGT Op = ">"
)

// Rule is one validation rule. Only the fields relevant to its Kind are
// consulted. Treat a registered Rule as immutable.
type Rule struct {
	Name        string
	Kind        Kind
	Column      string   // uniqueness, completeness, range, positive, non_negative
	Columns     []string // cross_column: [left, right]; unit_price: [quantity, price, total]
	Min, Max    *float64 // range bounds; nil = open
	Threshold   float64  // completeness: max tolerated null rate in [0,1]
	Tolerance   float64  // unit_price: relative tolerance (0 = exact)
	Op          Op       // cross_column comparison
	Predicate   func(*dataset.Dataset) []bool // custom: per-row pass mask
	Severity    Severity
	Description string
}

// Result is the immutable outcome of one rule execution.
type Result struct {
	RuleName    string   `json:"rule_name"`
	Table       string   `json:"table"`
	Passed      bool     `json:"passed"`
	FailingRows int      `json:"failing_rows"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
}

// Engine is a per-run rule registry. It is mutated only through Add and is
// read-shared by all validations of the run.
type Engine struct {
	registry map[string][]Rule
}

func NewEngine() *Engine {
	return &Engine{registry: make(map[string][]Rule)}
}

// Add registers a rule for a table. Registration order is execution order.
func (e *Engine) Add(table string, r Rule) error {
	if r.Name == "" {
		return fmt.Errorf("rule for table %q has no name", table)
	}
	if r.Severity == "" {
		r.Severity = Warning
	}
	switch r.Kind {
	case Uniqueness, Completeness, Range, Positive, NonNegative:
		if r.Column == "" {
			return fmt.Errorf("rule %s: kind %s requires a column", r.Name, r.Kind)
		}
	case CrossColumn:
		if len(r.Columns) != 2 || r.Op == "" {
			return fmt.Errorf("rule %s: cross_column requires two columns and an operator", r.Name)
		}
	case UnitPrice:
		if len(r.Columns) != 3 {
			return fmt.Errorf("rule %s: unit_price requires [quantity, price, total] columns", r.Name)
		}
	case Custom:
		if r.Predicate == nil {
			return fmt.Errorf("rule %s: custom rule requires a predicate", r.Name)
		}
	default:
		return fmt.Errorf("rule %s: unknown kind %q", r.Name, r.Kind)
	}
	e.registry[table] = append(e.registry[table], r)
	return nil
}

// Rules returns the registered sequence for a table, in registration order.
func (e *Engine) Rules(table string) []Rule {
	return e.registry[table]
}

// Execute runs every registered rule for the table against ds and collects
// one Result per rule. Rules are independent: none sees another's effects,
// and a CRITICAL failure does not halt the remainder.
func (e *Engine) Execute(ds *dataset.Dataset, table string) []Result {
	rulesForTable := e.registry[table]
	results := make([]Result, 0, len(rulesForTable))
	for _, r := range rulesForTable {
		results = append(results, evaluate(ds, table, r))
	}
	return results
}

func evaluate(ds *dataset.Dataset, table string, r Rule) Result {
	failing, err := failingRows(ds, r)
	if err != nil {
		return Result{
			RuleName:    r.Name,
			Table:       table,
			Passed:      false,
			Severity:    Critical,
			Message:     fmt.Sprintf("rule execution failed: %v", err),
		}
	}
	passed := failing == 0
	verdict := "PASS"
	if !passed {
		verdict = "FAIL"
	}
	return Result{
		RuleName:    r.Name,
		Table:       table,
		Passed:      passed,
		FailingRows: failing,
		Severity:    r.Severity,
		Message:     fmt.Sprintf("%s: %s", verdict, r.Description),
	}
}

// failingRows counts the rows where the rule's predicate does not hold.
// Values that are nil (or of the wrong type) fail validity-style checks:
// an unknown value cannot be shown to satisfy the constraint.
func failingRows(ds *dataset.Dataset, r Rule) (int, error) {
	switch r.Kind {
	case Uniqueness:
		seen := make(map[string]bool, ds.Len())
		failing := 0
		for _, row := range ds.Rows {
			k, ok := dataset.Fingerprint(row, []string{r.Column})
			if !ok {
				failing++ // column absent
				continue
			}
			if seen[k] {
				failing++ // every occurrence after the first
			}
			seen[k] = true
		}
		return failing, nil

	case Completeness:
		nulls := ds.NullCount(r.Column)
		if ds.Len() == 0 {
			return 0, nil
		}
		if float64(nulls)/float64(ds.Len()) > r.Threshold {
			return nulls, nil
		}
		return 0, nil

	case Range:
		return countFailing(ds, r.Column, func(v float64) bool {
			if r.Min != nil && v < *r.Min {
				return false
			}
			if r.Max != nil && v > *r.Max {
				return false
			}
			return true
		}), nil

	case Positive:
		return countFailing(ds, r.Column, func(v float64) bool { return v > 0 }), nil

	case NonNegative:
		return countFailing(ds, r.Column, func(v float64) bool { return v >= 0 }), nil

	case CrossColumn:
		left, right := r.Columns[0], r.Columns[1]
		failing := 0
		for _, row := range ds.Rows {
			lv, lok := compareValue(row[left])
			rv, rok := compareValue(row[right])
			if !lok || !rok {
				failing++
				continue
			}
			if !compare(lv, rv, r.Op) {
				failing++
			}
		}
		return failing, nil

	case UnitPrice:
		qtyCol, priceCol, totalCol := r.Columns[0], r.Columns[1], r.Columns[2]
		// No price column means nothing to reconcile (the column is derived
		// during transformation and absent when that stage is disabled); the
		// rule passes vacuously rather than failing every row.
		if !ds.HasColumn(priceCol) {
			return 0, nil
		}
		failing := 0
		for _, row := range ds.Rows {
			qty, ok1 := dataset.AsFloat(row[qtyCol])
			price, ok2 := dataset.AsFloat(row[priceCol])
			total, ok3 := dataset.AsFloat(row[totalCol])
			if !ok1 || !ok2 || !ok3 {
				failing++
				continue
			}
			want := qty * price
			diff := math.Abs(total - want)
			limit := r.Tolerance * math.Max(math.Abs(total), math.Abs(want))
			if diff > limit {
				failing++
			}
		}
		return failing, nil

	case Custom:
		mask := r.Predicate(ds)
		if len(mask) != ds.Len() {
			return 0, fmt.Errorf("predicate returned %d entries for %d rows", len(mask), ds.Len())
		}
		failing := 0
		for _, ok := range mask {
			if !ok {
				failing++
			}
		}
		return failing, nil
	}
	return 0, fmt.Errorf("unknown rule kind %q", r.Kind)
}

func countFailing(ds *dataset.Dataset, col string, pass func(float64) bool) int {
	failing := 0
	for _, row := range ds.Rows {
		v, ok := dataset.AsFloat(row[col])
		if !ok || !pass(v) {
			failing++
		}
	}
	return failing
}

// compareValue admits numbers and timestamps into cross-column comparison,
// mapping timestamps onto the float axis.
func compareValue(v any) (float64, bool) {
	if f, ok := dataset.AsFloat(v); ok {
		return f, true
	}
	if t, ok := dataset.AsTime(v); ok {
		return float64(t.UnixNano()), true
	}
	return 0, false
}

func compare(l, r float64, op Op) bool {
	switch op {
	case OpLE:
		return l <= r
	case OpLT:
		return l < r
	case OpGE:
		return l >= r
	case OpGT:
		return l > r
	}
	return false
}

// CriticalFailures counts the failed CRITICAL results in a set.
func CriticalFailures(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed && r.Severity == Critical {
			n++
		}
	}
	return n
}

// WarningFailures counts the failed WARNING results in a set.
func WarningFailures(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed && r.Severity == Warning {
			n++
		}
	}
	return n
}
