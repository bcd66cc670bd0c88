package profile

import (
	"testing"
	"time"

	"scetl/internal/dataset"
)

func mkDataset(cols []string, rows ...dataset.Row) *dataset.Dataset {
	ds := dataset.New(cols...)
	ds.Rows = rows
	ds.InferKinds()
	return ds
}

func column(t *testing.T, tab *Table, name string) Column {
	t.Helper()
	for _, c := range tab.Columns {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no profile for column %q", name)
	return Column{}
}

// TestBuild_NumericColumn checks the core statistics of a small numeric
// sample, including the empirical quartiles.
func TestBuild_NumericColumn(t *testing.T) {
	t.Parallel()

	ds := mkDataset([]string{"v"},
		dataset.Row{"v": 1.0}, dataset.Row{"v": 2.0},
		dataset.Row{"v": 3.0}, dataset.Row{"v": 4.0})
	tab := Build(ds, "t")
	if tab.RowCount != 4 || tab.ColumnCount != 1 {
		t.Fatalf("table = %+v", tab)
	}
	n := column(t, tab, "v").Numeric
	if n == nil {
		t.Fatal("no numeric profile")
	}
	if n.Count != 4 || n.Nulls != 0 {
		t.Errorf("count/nulls = %d/%d", n.Count, n.Nulls)
	}
	if *n.Mean != 2.5 || *n.Min != 1 || *n.Max != 4 {
		t.Errorf("mean/min/max = %v/%v/%v", *n.Mean, *n.Min, *n.Max)
	}
	if *n.Q25 != 1 || *n.Median != 2 || *n.Q75 != 3 {
		t.Errorf("quartiles = %v/%v/%v", *n.Q25, *n.Median, *n.Q75)
	}
	if n.Std == nil || n.Skew == nil || n.Kurtosis == nil {
		t.Error("moments should be defined for a 4-value sample")
	}
}

// TestBuild_AllNullAndSingleValue reports undefined statistics as nil
// rather than failing.
func TestBuild_AllNullAndSingleValue(t *testing.T) {
	t.Parallel()

	ds := dataset.New("empty", "single")
	ds.Kinds["empty"] = dataset.KindNumeric
	ds.Kinds["single"] = dataset.KindNumeric
	ds.Rows = []dataset.Row{
		{"empty": nil, "single": 7.0},
		{"empty": nil, "single": nil},
	}
	tab := Build(ds, "t")

	empty := column(t, tab, "empty").Numeric
	if empty.Count != 0 || empty.Nulls != 2 {
		t.Errorf("empty column = %+v", empty)
	}
	if empty.Mean != nil || empty.Std != nil || empty.Skew != nil {
		t.Errorf("all-null column should have nil stats: %+v", empty)
	}

	single := column(t, tab, "single").Numeric
	if single.Mean == nil || *single.Mean != 7 {
		t.Errorf("single-value mean = %v", single.Mean)
	}
	if single.Std != nil || single.Skew != nil || single.Kurtosis != nil {
		t.Errorf("single-value column should have nil dispersion: %+v", single)
	}
}

// TestBuild_CategoricalColumn counts distincts and picks the most common
// value, breaking ties toward the first observed.
func TestBuild_CategoricalColumn(t *testing.T) {
	t.Parallel()

	ds := mkDataset([]string{"city"},
		dataset.Row{"city": "Oslo"}, dataset.Row{"city": "Bergen"},
		dataset.Row{"city": "Oslo"}, dataset.Row{"city": nil})
	c := column(t, Build(ds, "t"), "city").Categorical
	if c == nil {
		t.Fatal("no categorical profile")
	}
	if c.Count != 3 || c.Nulls != 1 || c.Distinct != 2 {
		t.Errorf("categorical = %+v", c)
	}
	if c.MostCommon != "Oslo" || c.CommonCount != 2 {
		t.Errorf("most common = %q (%d)", c.MostCommon, c.CommonCount)
	}
}

// TestBuild_TemporalColumn records the observed time range.
func TestBuild_TemporalColumn(t *testing.T) {
	t.Parallel()

	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ds := mkDataset([]string{"when"},
		dataset.Row{"when": late}, dataset.Row{"when": early}, dataset.Row{"when": nil})
	p := column(t, Build(ds, "t"), "when").Temporal
	if p == nil {
		t.Fatal("no temporal profile")
	}
	if p.Count != 2 || p.Nulls != 1 {
		t.Errorf("temporal = %+v", p)
	}
	if !p.Min.Equal(early) || !p.Max.Equal(late) {
		t.Errorf("range = %v .. %v", p.Min, p.Max)
	}
}

// TestBuild_EmptyDataset produces a zero-row profile, not an error.
func TestBuild_EmptyDataset(t *testing.T) {
	t.Parallel()

	ds := dataset.New("a", "b")
	ds.InferKinds()
	tab := Build(ds, "t")
	if tab.RowCount != 0 || tab.ColumnCount != 2 || tab.DuplicateRows != 0 {
		t.Errorf("table = %+v", tab)
	}
}

// TestBuild_DuplicatesAndMemory covers the full-row duplicate count and the
// monotonicity of the memory estimate.
func TestBuild_DuplicatesAndMemory(t *testing.T) {
	t.Parallel()

	ds := mkDataset([]string{"id", "v"},
		dataset.Row{"id": 1, "v": "x"},
		dataset.Row{"id": 1, "v": "x"},
		dataset.Row{"id": 2, "v": "y"})
	tab := Build(ds, "t")
	if tab.DuplicateRows != 1 {
		t.Errorf("duplicates = %d, want 1", tab.DuplicateRows)
	}
	if tab.MemoryBytes <= 0 {
		t.Errorf("memory estimate = %d", tab.MemoryBytes)
	}

	smaller := mkDataset([]string{"id"}, dataset.Row{"id": 1})
	if Build(smaller, "t").MemoryBytes >= tab.MemoryBytes {
		t.Error("memory estimate should grow with the dataset")
	}
}

// TestBuild_DoesNotMutate confirms profiling leaves the dataset untouched.
func TestBuild_DoesNotMutate(t *testing.T) {
	t.Parallel()

	ds := mkDataset([]string{"v"},
		dataset.Row{"v": 3.0}, dataset.Row{"v": 1.0}, dataset.Row{"v": 2.0})
	Build(ds, "t")
	want := []float64{3, 1, 2}
	for i, row := range ds.Rows {
		if row["v"] != want[i] {
			t.Fatalf("row %d mutated: %v", i, row["v"])
		}
	}
}
