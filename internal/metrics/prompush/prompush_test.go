package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"scetl/internal/metrics"
)

// readCounterValue reads the current value of a Counter for assertions.
func readCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Counter.Write() error = %v", err)
	}
	if m.GetCounter() == nil {
		t.Fatalf("metric did not contain Counter value")
	}
	return m.GetCounter().GetValue()
}

// readSummaryCountSum reads sample count and sum from a SummaryVec.
func readSummaryCountSum(t *testing.T, v *prometheus.SummaryVec, labels ...string) (uint64, float64) {
	t.Helper()

	m := &dto.Metric{}
	metric, ok := v.WithLabelValues(labels...).(prometheus.Metric)
	if !ok {
		t.Fatalf("SummaryVec.WithLabelValues(...) does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write() error = %v", err)
	}
	if m.GetSummary() == nil {
		t.Fatalf("metric did not contain Summary value")
	}
	sum := m.GetSummary()
	return sum.GetSampleCount(), sum.GetSampleSum()
}

// TestNewBackend validates construction, defaults, and label cardinality.
func TestNewBackend(t *testing.T) {
	t.Parallel()

	if b, err := NewBackend("job", ""); err == nil || b != nil {
		t.Fatalf("NewBackend with empty URL = (%v, %v), want error", b, err)
	}

	b, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	if b.jobName != "scetl" {
		t.Fatalf("default jobName = %q, want scetl", b.jobName)
	}

	// Label cardinality: these must not panic.
	b.stageCounter.WithLabelValues("sales", "load", "success").Add(1)
	b.stageDuration.WithLabelValues("sales", "transform", "failure").Observe(0.5)
	b.rowCounter.WithLabelValues("sales", "loaded").Add(1)
	b.batchCounter.WithLabelValues("sales").Add(1)
}

// TestIncCounter routes updates to the right collectors and ignores unknown
// metric names.
func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("scetl", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	b.IncCounter("pipeline_stage_total", 3, metrics.Labels{"table": "sales", "stage": "extract", "status": "success"})
	b.IncCounter("pipeline_rows_total", 98, metrics.Labels{"table": "sales", "kind": "loaded"})
	b.IncCounter("pipeline_batches_total", 2, metrics.Labels{"table": "sales"})
	b.IncCounter("unknown_metric", 10, metrics.Labels{"foo": "bar"})

	if got := readCounterValue(t, b.stageCounter.WithLabelValues("sales", "extract", "success")); got != 3 {
		t.Errorf("stageCounter = %v, want 3", got)
	}
	if got := readCounterValue(t, b.rowCounter.WithLabelValues("sales", "loaded")); got != 98 {
		t.Errorf("rowCounter = %v, want 98", got)
	}
	if got := readCounterValue(t, b.batchCounter.WithLabelValues("sales")); got != 2 {
		t.Errorf("batchCounter = %v, want 2", got)
	}
}

// TestObserveDuration records only the stage-duration metric.
func TestObserveDuration(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("scetl", "http://example.com")
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}

	b.ObserveDuration("pipeline_stage_duration_seconds", 1.5, metrics.Labels{"table": "sales", "stage": "load", "status": "success"})
	b.ObserveDuration("other_metric", 2.0, metrics.Labels{"table": "sales", "stage": "load", "status": "success"})

	count, sum := readSummaryCountSum(t, b.stageDuration, "sales", "load", "success")
	if count != 1 || sum != 1.5 {
		t.Errorf("summary count/sum = %d/%v, want 1/1.5", count, sum)
	}
}

// TestFlush pushes the registry to the configured Pushgateway URL.
func TestFlush(t *testing.T) {
	t.Parallel()

	type pushInfo struct {
		method  string
		path    string
		bodyLen int
	}
	reqCh := make(chan pushInfo, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		body, _ := io.ReadAll(r.Body)
		reqCh <- pushInfo{method: r.Method, path: r.URL.Path, bodyLen: len(body)}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	b, err := NewBackend("scetl-run", server.URL)
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter("pipeline_stage_total", 1, metrics.Labels{"table": "sales", "stage": "extract", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	select {
	case got := <-reqCh:
		if got.method == "" || got.path == "" || got.bodyLen == 0 {
			t.Fatalf("push request = %+v", got)
		}
	default:
		t.Fatal("Flush() did not reach the Pushgateway")
	}
}

// BenchmarkIncCounterStage measures the cost of incrementing the stage
// counter through the Backend abstraction.
func BenchmarkIncCounterStage(b *testing.B) {
	backend, err := NewBackend("scetl", "http://example.com")
	if err != nil {
		b.Fatalf("NewBackend() error = %v", err)
	}
	labels := metrics.Labels{"table": "sales", "stage": "extract", "status": "success"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		backend.IncCounter("pipeline_stage_total", 1, labels)
	}
}
