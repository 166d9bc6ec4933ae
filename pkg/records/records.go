// Package records defines the attribute record passed between the pipeline
// stages: a mapping from logical field name to an already-typed value
// (string, float64, time.Time, decoded JSON object, or parsed geometry).
//
// Records are created by the normalizer, consumed once by the item builder,
// and then discarded; they are never shared between stages after handoff.
package records

import "time"

// Record maps a logical field name to a typed value for one source row.
type Record map[string]any

// String returns the string value for key, or "" when absent or not a string.
func (r Record) String(key string) string {
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Time returns the time.Time value for key and whether one is present.
func (r Record) Time(key string) (time.Time, bool) {
	if v, ok := r[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// Has reports whether key is present with a non-nil value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
