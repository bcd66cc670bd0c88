package transform

import (
	"fmt"
	"strings"
	"time"

	"scetl/internal/dataset"
)

// defaultLayouts are tried in order when parsing heterogeneous date text.
var defaultLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
	"2006/01/02",
}

// Dates standardizes heterogeneous date representations into time.Time.
// Values that cannot be parsed become nil and are counted, never silently
// kept as text. Columns already holding time.Time pass through, which makes
// the stage idempotent.
type Dates struct {
	// Columns to standardize. Empty means every column whose name contains
	// "date" (case-insensitive), mirroring how the source schema names them.
	Columns []string

	// Layouts overrides the default layout list.
	Layouts []string
}

func (Dates) Name() string { return "dates" }

func (d Dates) Apply(ds *dataset.Dataset) (StageResult, error) {
	var res StageResult
	cols := d.Columns
	if len(cols) == 0 {
		for _, c := range ds.Columns {
			if strings.Contains(strings.ToLower(c), "date") {
				cols = append(cols, c)
			}
		}
	}
	layouts := d.Layouts
	if len(layouts) == 0 {
		layouts = defaultLayouts
	}
	for _, c := range cols {
		if !ds.HasColumn(c) {
			return res, fmt.Errorf("date column %q not in dataset", c)
		}
		ds.Kinds[c] = dataset.KindTemporal
	}

	for _, r := range ds.Rows {
		modified := false
		for _, c := range cols {
			v := r[c]
			if v == nil {
				continue
			}
			if _, ok := v.(time.Time); ok {
				continue
			}
			s, ok := v.(string)
			if !ok {
				// Numeric or boolean junk in a date column.
				r[c] = nil
				res.Nulled++
				modified = true
				continue
			}
			if t, ok := parseDate(s, layouts); ok {
				r[c] = t
				modified = true
			} else {
				r[c] = nil
				res.Nulled++
				modified = true
			}
		}
		if modified {
			res.Modified++
		}
	}
	return res, nil
}

func parseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
