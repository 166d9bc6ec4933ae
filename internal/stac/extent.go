// Extent and summary computation. Both are pure functions of the current
// item set so that recomputation after any item change is idempotent.
package stac

import (
	"sort"
	"time"

	"stacbuild/internal/geo"
)

// DefaultSummaryMaxcount caps the number of distinct values a property may
// have and still be summarized as a value list.
const DefaultSummaryMaxcount = 25

// summaryIgnore lists item properties that never appear in summaries because
// they are already captured by the temporal extent.
var summaryIgnore = map[string]bool{
	"datetime":       true,
	"start_datetime": true,
	"end_datetime":   true,
}

// UpdateExtent recomputes the collection's spatial and temporal extent from
// its attached items. The spatial extent is the union bbox of all item
// bboxes; the temporal extent spans the minimum and maximum item timestamps.
func (c *Collection) UpdateExtent() {
	var bbox []float64
	var minT, maxT *time.Time

	consider := func(s string) {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return
		}
		if minT == nil || t.Before(*minT) {
			tt := t
			minT = &tt
		}
		if maxT == nil || t.After(*maxT) {
			tt := t
			maxT = &tt
		}
	}

	for _, it := range c.Items {
		bbox = geo.UnionBBox(bbox, it.BBox)
		if dt, ok := it.Datetime(); ok {
			consider(dt)
			continue
		}
		if s, ok := it.Properties["start_datetime"].(string); ok {
			consider(s)
		}
		if s, ok := it.Properties["end_datetime"].(string); ok {
			consider(s)
		}
	}

	c.Extent.Spatial.BBox = nil
	if bbox != nil {
		c.Extent.Spatial.BBox = [][]float64{bbox}
	}

	var start, end *string
	if minT != nil {
		s := minT.UTC().Format(time.RFC3339)
		start = &s
	}
	if maxT != nil {
		s := maxT.UTC().Format(time.RFC3339)
		end = &s
	}
	c.Extent.Temporal.Interval = [][]*string{{start, end}}
}

// UpdateSummaries recomputes the per-field summaries from the attached
// items: numeric properties become {minimum, maximum} ranges, other scalar
// properties become sorted distinct-value lists. Properties with more than
// DefaultSummaryMaxcount distinct values are omitted.
func (c *Collection) UpdateSummaries() {
	numeric := map[string]*struct{ min, max float64 }{}
	distinct := map[string]map[string]any{}

	for _, it := range c.Items {
		for k, v := range it.Properties {
			if summaryIgnore[k] || v == nil {
				continue
			}
			switch n := v.(type) {
			case float64:
				r, ok := numeric[k]
				if !ok {
					numeric[k] = &struct{ min, max float64 }{n, n}
					continue
				}
				if n < r.min {
					r.min = n
				}
				if n > r.max {
					r.max = n
				}
			case int:
				f := float64(n)
				r, ok := numeric[k]
				if !ok {
					numeric[k] = &struct{ min, max float64 }{f, f}
					continue
				}
				if f < r.min {
					r.min = f
				}
				if f > r.max {
					r.max = f
				}
			case string:
				if distinct[k] == nil {
					distinct[k] = map[string]any{}
				}
				distinct[k][n] = n
			case bool:
				if distinct[k] == nil {
					distinct[k] = map[string]any{}
				}
				if n {
					distinct[k]["true"] = n
				} else {
					distinct[k]["false"] = n
				}
			}
		}
	}

	out := map[string]any{}
	for k, r := range numeric {
		out[k] = map[string]any{"minimum": r.min, "maximum": r.max}
	}
	for k, vals := range distinct {
		if len(vals) > DefaultSummaryMaxcount {
			continue
		}
		keys := make([]string, 0, len(vals))
		for s := range vals {
			keys = append(keys, s)
		}
		sort.Strings(keys)
		list := make([]any, 0, len(keys))
		for _, s := range keys {
			list = append(list, vals[s])
		}
		out[k] = list
	}

	c.Summaries = nil
	if len(out) > 0 {
		c.Summaries = out
	}
}
