// Package normalize converts raw dataset rows into typed attribute records.
// Every configured attribute carries a declared kind, and each kind is one
// pure conversion raw -> typed value; there is no duck typing on the raw
// values beyond what the declared kind requires.
package normalize

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"stacbuild/internal/config"
	"stacbuild/internal/geo"
	"stacbuild/internal/metrics"
	"stacbuild/pkg/records"
)

// progressEvery is the record interval for operability progress ticks.
const progressEvery = 1000

// missionTemplate is the fixed format applied to mission identifiers.
const missionTemplate = "%v"

// Result is the normalized output for one collection: records keyed by the
// generated record id, plus the ids in source row order.
type Result struct {
	IDs     []string
	Records map[string]records.Record
}

// Normalizer applies the per-attribute conversions for one collection
// config.
type Normalizer struct {
	cfg    config.Collection
	layout string

	// now is injectable so the future-date check is testable.
	now func() time.Time
}

// New builds a Normalizer, resolving the collection's date layout when a
// "date" attribute is declared.
func New(cfg config.Collection) (*Normalizer, error) {
	n := &Normalizer{cfg: cfg, now: time.Now}
	if _, ok := cfg.Attribute("date"); ok {
		layout, err := cfg.DateLayout()
		if err != nil {
			return nil, err
		}
		n.layout = layout
	}
	return n, nil
}

// Apply converts every raw row into a typed record. Rows must be aligned to
// the collection's declared attribute order. Duplicate record ids keep the
// last occurrence, like the source rows would in an id-keyed map.
func (n *Normalizer) Apply(rows [][]any) (*Result, error) {
	res := &Result{Records: make(map[string]records.Record, len(rows))}
	attrs := n.cfg.Attributes
	count := 0
	for _, row := range rows {
		if len(row) != len(attrs) {
			return nil, fmt.Errorf("normalize: row has %d values, config declares %d attributes", len(row), len(attrs))
		}
		rec := make(records.Record, len(attrs))
		for i, a := range attrs {
			v, err := n.convert(a, row[i])
			if err != nil {
				return nil, fmt.Errorf("normalize: attribute %q: %w", a.Name, err)
			}
			rec[a.Name] = v
		}
		id := fmt.Sprint(rec["id"])
		if id == "" || id == "<nil>" {
			return nil, fmt.Errorf("normalize: record has no id value")
		}
		if _, dup := res.Records[id]; !dup {
			res.IDs = append(res.IDs, id)
		}
		res.Records[id] = rec

		count++
		if count%progressEvery == 0 {
			log.Printf("normalize: %s: %d records read (last id %s)", n.cfg.ID, count, id)
			metrics.RecordRecords(n.cfg.ID, progressEvery)
		}
	}
	metrics.RecordRecords(n.cfg.ID, int64(count%progressEvery))
	return res, nil
}

// convert applies the conversion for the attribute's declared kind.
func (n *Normalizer) convert(a config.Attribute, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch a.Kind {
	case config.KindDate:
		return n.convertDate(raw)
	case config.KindJSON:
		return convertJSON(raw)
	case config.KindDatetime:
		return convertDatetime(raw)
	case config.KindGeometry:
		return convertGeometry(raw)
	case config.KindDecimal:
		return convertDecimal(raw)
	case config.KindMission:
		return fmt.Sprintf(missionTemplate, raw), nil
	case config.KindVerbatim:
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", a.Kind)
	}
}

// convertDate parses a textual date with the configured layout. A date in
// the future is a data-quality warning, not an error: it is logged and the
// record still proceeds.
func (n *Normalizer) convertDate(raw any) (any, error) {
	var t time.Time
	switch v := raw.(type) {
	case time.Time:
		t = v
	case string:
		var err error
		t, err = time.Parse(n.layout, v)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", v, err)
		}
	default:
		return nil, fmt.Errorf("date value has type %T", raw)
	}
	if t.After(n.now()) {
		log.Printf("normalize: %s: FUTURE date (%s) - change db data!", n.cfg.ID, t.Format(time.RFC3339))
	}
	return t, nil
}

func convertJSON(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("json value has type %T", raw)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("decode embedded json: %w", err)
	}
	return obj, nil
}

func convertDatetime(raw any) (any, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.Format(time.RFC3339), nil
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err == nil {
			return t.Format(time.RFC3339), nil
		}
		// Already textual but not RFC3339; try the common driver format.
		t, err = time.Parse("2006-01-02 15:04:05", v)
		if err != nil {
			return nil, fmt.Errorf("parse datetime %q: %w", v, err)
		}
		return t.UTC().Format(time.RFC3339), nil
	default:
		return nil, fmt.Errorf("datetime value has type %T", raw)
	}
}

func convertGeometry(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("geometry value has type %T", raw)
	}
	g, err := geo.DecodeWKBHex(s)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func convertDecimal(raw any) (any, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parse decimal %q: %w", v, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("decimal value has type %T", raw)
	}
}
