// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the catalog build.
//
// The package is intentionally minimal and opinionated:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data.
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - It keeps concrete metric systems isolated in subpackages; the rest of
//     the codebase depends only on this interface.
//
// The primary use case is instrumentation of the pipeline stages (extract,
// normalize, build, reconcile, index) without coupling the core logic to a
// specific metrics system such as Prometheus.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing
// backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStage measures latency plus success/failure for one pipeline stage
// run (extract, normalize, build, reconcile, index).
func RecordStage(stage string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"stage": stage, "status": status}
	backend.IncCounter("stacbuild_stage_total", 1, lbls)
	backend.ObserveHistogram("stacbuild_stage_duration_seconds", d.Seconds(), lbls)
}

// RecordRecords counts normalized records for a collection. The normalizer
// calls this on its per-1000 progress tick and once at the end.
func RecordRecords(collection string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("stacbuild_records_total", float64(delta), Labels{
		"collection": collection,
	})
}

// RecordDocuments counts index documents per entity kind (catalog,
// collection, item) and operation (add, delete).
func RecordDocuments(kind, op string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("stacbuild_documents_total", float64(delta), Labels{
		"kind": kind,
		"op":   op,
	})
}
