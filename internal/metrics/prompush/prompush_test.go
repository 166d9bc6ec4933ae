package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"stacbuild/internal/metrics"
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

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("job", ""); err == nil {
		t.Fatalf("expected error for a missing gateway URL")
	}

	b, err := NewBackend("", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.jobName != "stacbuild" {
		t.Fatalf("default job name got %q", b.jobName)
	}

	b, err = NewBackend("catalog-build", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.jobName != "catalog-build" {
		t.Fatalf("explicit job name got %q", b.jobName)
	}
}

func TestIncCounter(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("job", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter("stacbuild_stage_total", 1, metrics.Labels{"stage": "extract", "status": "success"})
	b.IncCounter("stacbuild_stage_total", 2, metrics.Labels{"stage": "extract", "status": "success"})
	b.IncCounter("stacbuild_records_total", 500, metrics.Labels{"collection": "dtm"})
	b.IncCounter("stacbuild_documents_total", 3, metrics.Labels{"kind": "item", "op": "add"})
	b.IncCounter("unknown_metric", 1, nil) // silently ignored

	if got := readCounterValue(t, b.stageCounter.WithLabelValues("extract", "success")); got != 3 {
		t.Fatalf("stage counter got %v; want 3", got)
	}
	if got := readCounterValue(t, b.recordCounter.WithLabelValues("dtm")); got != 500 {
		t.Fatalf("record counter got %v; want 500", got)
	}
	if got := readCounterValue(t, b.docCounter.WithLabelValues("item", "add")); got != 3 {
		t.Fatalf("document counter got %v; want 3", got)
	}
}

func TestObserveHistogram(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("job", "http://pushgateway:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.ObserveHistogram("stacbuild_stage_duration_seconds", 1.5, metrics.Labels{"stage": "index", "status": "success"})
	b.ObserveHistogram("other_metric", 1.0, nil) // silently ignored

	m := &dto.Metric{}
	metric, ok := b.stageDuration.WithLabelValues("index", "success").(prometheus.Metric)
	if !ok {
		t.Fatalf("SummaryVec observer does not implement prometheus.Metric")
	}
	if err := metric.Write(m); err != nil {
		t.Fatalf("Summary.Write() error = %v", err)
	}
	if m.GetSummary().GetSampleCount() != 1 || m.GetSummary().GetSampleSum() != 1.5 {
		t.Fatalf("summary got count=%d sum=%v", m.GetSummary().GetSampleCount(), m.GetSummary().GetSampleSum())
	}
}

// Flush pushes the whole registry to the Pushgateway job endpoint.
func TestFlush(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("catalog-build", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter("stacbuild_stage_total", 1, metrics.Labels{"stage": "extract", "status": "success"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !strings.Contains(gotPath, "/job/catalog-build") {
		t.Fatalf("push path got %q", gotPath)
	}
	if !strings.Contains(string(gotBody), "stacbuild_stage_total") {
		t.Fatalf("push body lacks the stage counter")
	}
}
