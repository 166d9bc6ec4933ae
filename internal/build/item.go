// Package build turns normalized attribute records into STAC items and
// aggregates them into collections with derived extent and summaries.
package build

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/twpayne/go-geom"

	"stacbuild/internal/config"
	"stacbuild/internal/geo"
	"stacbuild/internal/stac"
	"stacbuild/pkg/records"
)

// ItemPrefix marks the attribute keys that become item properties.
const ItemPrefix = "item:"

// ProjectionExtension is the schema URL of the STAC projection extension the
// per-row SRID is tagged with.
const ProjectionExtension = "https://stac-extensions.github.io/projection/v1.1.0/schema.json"

// Item builds one catalog item from a normalized record.
//
// The item's timestamp is the explicit start-datetime property when one is
// present, otherwise the generic date attribute. Properties are every
// attribute whose key carries the item prefix, with the prefix stripped.
func Item(id string, rec records.Record, cfg config.Collection) (*stac.Item, error) {
	g, ok := rec["geometry"].(geom.T)
	if !ok {
		return nil, fmt.Errorf("build: item %s: record has no decoded geometry", id)
	}
	gj, err := geo.GeoJSON(g)
	if err != nil {
		return nil, fmt.Errorf("build: item %s: %w", id, err)
	}

	props := map[string]any{}
	for k, v := range rec {
		if strings.HasPrefix(k, ItemPrefix) {
			props[strings.TrimPrefix(k, ItemPrefix)] = v
		}
	}

	// Explicit start/end ranges win over the plain date attribute.
	if _, ranged := props["start_datetime"]; ranged {
		props["datetime"] = nil
	} else if t, ok := rec.Time("date"); ok {
		props["datetime"] = t.UTC().Format(time.RFC3339)
	} else {
		props["datetime"] = nil
	}

	exts := append([]string(nil), cfg.Extensions...)
	if epsg, ok := epsgOf(rec); ok {
		props["proj:epsg"] = epsg
		exts = ensure(exts, ProjectionExtension)
	}

	it := &stac.Item{
		Type:        "Feature",
		StacVersion: stac.Version,
		Extensions:  exts,
		ID:          id,
		Geometry:    gj,
		BBox:        geo.BBox(g),
		Properties:  props,
		Assets:      map[string]stac.Asset{},
		Collection:  cfg.ID,
	}
	addAssets(it, rec, cfg)
	return it, nil
}

// addAssets attaches the config's asset templates, interpolated with the
// record's id, filename and optional folder. Optional template fields are
// omitted rather than defaulted.
func addAssets(it *stac.Item, rec records.Record, cfg config.Collection) {
	filename := rec.String("filename")
	folder := rec.String("folder")
	for _, tpl := range cfg.Assets {
		key := interpolate(tpl.IDFormat, it.ID, filename, tpl.FileType, folder)
		title := key
		if tpl.Title != "" {
			title = interpolate(tpl.Title, it.ID, filename, tpl.FileType, folder)
		}
		it.Assets[key] = stac.Asset{
			Href:        interpolate(tpl.URL, it.ID, filename, tpl.FileType, folder),
			Type:        tpl.MediaType,
			Title:       title,
			Description: tpl.Description,
			Roles:       tpl.Roles,
		}
	}
}

// interpolate fills the {id}, {filename}, {filetype} and {folder} tokens of
// an asset template.
func interpolate(tpl, id, filename, filetype, folder string) string {
	return strings.NewReplacer(
		"{id}", id,
		"{filename}", filename,
		"{filetype}", filetype,
		"{folder}", folder,
	).Replace(tpl)
}

// epsgOf reads the record's per-row SRID, tolerating the numeric types the
// different drivers produce.
func epsgOf(rec records.Record) (int, bool) {
	switch v := rec["srid"].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ensure appends s when not already present.
func ensure(list []string, s string) []string {
	for _, e := range list {
		if e == s {
			return list
		}
	}
	return append(list, s)
}
