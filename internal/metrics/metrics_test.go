package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	counters   []counterCall
	durations  []durationCall
	flushCount int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type durationCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveDuration(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations = append(f.durations, durationCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStage_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordStage("sales", "extract", nil, 2*time.Second)
	RecordStage("orders", "load", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.durations) != 2 {
		t.Fatalf("calls = %d counters, %d durations; want 2/2", len(fb.counters), len(fb.durations))
	}

	c0 := fb.counters[0]
	if c0.name != "pipeline_stage_total" || c0.delta != 1 {
		t.Fatalf("counter[0] = %#v", c0)
	}
	if c0.labels["table"] != "sales" || c0.labels["stage"] != "extract" || c0.labels["status"] != "success" {
		t.Fatalf("counter[0].labels = %v", c0.labels)
	}
	d0 := fb.durations[0]
	if d0.name != "pipeline_stage_duration_seconds" || d0.value < 1.999 || d0.value > 2.001 {
		t.Fatalf("duration[0] = %#v", d0)
	}

	c1 := fb.counters[1]
	if c1.labels["table"] != "orders" || c1.labels["stage"] != "load" || c1.labels["status"] != "failure" {
		t.Fatalf("counter[1].labels = %v", c1.labels)
	}
	d1 := fb.durations[1]
	if d1.value < 1.499 || d1.value > 1.501 {
		t.Fatalf("duration[1].value = %v", d1.value)
	}
}

func TestRecordRowsAndBatches(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRows("sales", "extracted", 100)
	RecordRows("sales", "extracted", 0) // ignored
	RecordRows("sales", "loaded", 98)
	RecordBatches("sales", 2)

	if len(fb.counters) != 3 {
		t.Fatalf("expected 3 counter calls, got %d", len(fb.counters))
	}
	c0 := fb.counters[0]
	if c0.name != "pipeline_rows_total" || c0.delta != 100 {
		t.Fatalf("counter[0] = %#v", c0)
	}
	if c0.labels["table"] != "sales" || c0.labels["kind"] != "extracted" {
		t.Fatalf("counter[0].labels = %v", c0.labels)
	}
	c1 := fb.counters[1]
	if c1.delta != 98 || c1.labels["kind"] != "loaded" {
		t.Fatalf("counter[1] = %#v", c1)
	}
	c2 := fb.counters[2]
	if c2.name != "pipeline_batches_total" || c2.delta != 2 {
		t.Fatalf("counter[2] = %#v", c2)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)
	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("flushCount = %d, want 1", fb.flushCount)
	}

	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
