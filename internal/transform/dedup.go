// Dedup collapses duplicate rows by a configured key and chooses a winner
// according to a configurable policy:
//
//   - "keep-first"   : keep the earliest occurrence (default; original row
//     order decides, which makes the stage deterministic and re-runnable)
//   - "keep-last"    : keep the latest occurrence
//   - "most-complete": keep the row with the most non-empty fields; ties
//     break by keep-last
//
// Runs in-memory on the whole dataset. It removes duplicates before the
// database sees them; destination UNIQUE/PK constraints remain the backstop.
package transform

import (
	"sort"
	"strings"

	"scetl/internal/dataset"
)

// Dedup is the duplicate-removal stage.
type Dedup struct {
	// Keys are the columns forming the business key. Empty means the full
	// row (all columns) is the key.
	Keys []string

	// Policy selects the winner among duplicates: "keep-first" (default),
	// "keep-last", or "most-complete".
	Policy string
}

func (Dedup) Name() string { return "dedup" }

func (d Dedup) Apply(ds *dataset.Dataset) (StageResult, error) {
	var res StageResult
	if ds.Len() == 0 {
		return res, nil
	}
	keys := d.Keys
	if len(keys) == 0 {
		keys = ds.Columns
	}
	policy := strings.TrimSpace(strings.ToLower(d.Policy))
	if policy == "" {
		policy = "keep-first"
	}

	type slot struct {
		row   dataset.Row
		index int
		score int
	}
	winners := make(map[string]slot, ds.Len())
	var passthrough []slot // rows missing a key column keep their position

	for i, r := range ds.Rows {
		key, ok := dataset.Fingerprint(r, keys)
		if !ok {
			passthrough = append(passthrough, slot{row: r, index: i})
			continue
		}
		switch policy {
		case "keep-last":
			winners[key] = slot{row: r, index: i}
		case "most-complete":
			s := slot{row: r, index: i, score: completeness(r)}
			prev, exists := winners[key]
			if !exists || s.score > prev.score || (s.score == prev.score && s.index > prev.index) {
				winners[key] = s
			}
		default: // keep-first
			if _, exists := winners[key]; !exists {
				winners[key] = slot{row: r, index: i}
			}
		}
	}

	kept := make([]slot, 0, len(winners)+len(passthrough))
	for _, s := range winners {
		kept = append(kept, s)
	}
	kept = append(kept, passthrough...)
	sort.Slice(kept, func(i, j int) bool { return kept[i].index < kept[j].index })

	res.Dropped = ds.Len() - len(kept)
	out := make([]dataset.Row, len(kept))
	for i, s := range kept {
		out[i] = s.row
	}
	ds.Rows = out
	return res, nil
}

// completeness counts non-empty values in a row.
func completeness(r dataset.Row) int {
	n := 0
	for _, v := range r {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		n++
	}
	return n
}
