package index

import (
	"encoding/json"
	"fmt"
	"time"

	"stacbuild/internal/geo"
	"stacbuild/internal/stac"
)

// Document is the flat key/value projection of one catalog entity persisted
// in the search index. The "uniqueid" field is globally unique; at most one
// document per unique id exists in the index at any time.
type Document map[string]any

// UniqueID returns the document's unique id.
func (d Document) UniqueID() string {
	s, _ := d["uniqueid"].(string)
	return s
}

// CatalogDocID is the unique id of a catalog document.
func CatalogDocID(id string) string { return "catalog_" + id }

// CollectionDocID is the unique id of a collection document.
func CollectionDocID(id string) string { return "collection_" + id }

// ItemDocID is the unique id of an item document.
func ItemDocID(collID, itemID string) string { return "item_" + collID + "_" + itemID }

// ItemDocQuery matches every item document of a collection by id prefix.
func ItemDocQuery(collID string) string { return "uniqueid:item_" + collID + "_*" }

// solrTime is the timestamp layout used in daterange queries.
const solrTime = "2006-01-02T15:04:05Z"

// CatalogDocument flattens the catalog into its index document.
func CatalogDocument(cat *stac.Catalog) (Document, error) {
	full, err := json.Marshal(cat)
	if err != nil {
		return nil, fmt.Errorf("index: marshal catalog %s: %w", cat.ID, err)
	}
	return Document{
		"uniqueid":    CatalogDocID(cat.ID),
		"id":          cat.ID,
		"type":        cat.Type,
		"description": cat.Description,
		"json_string": string(full),
	}, nil
}

// CollectionDocument flattens a collection into its index document. The
// datetime field carries the temporal extent start; bbox is the WKT of the
// spatial extent rectangle.
func CollectionDocument(c *stac.Collection) (Document, error) {
	full, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("index: marshal collection %s: %w", c.ID, err)
	}
	doc := Document{
		"uniqueid":    CollectionDocID(c.ID),
		"id":          c.ID,
		"type":        c.Type,
		"description": c.Description,
		"keywords":    c.Keywords,
		"json_string": string(full),
	}
	if iv := c.Extent.Temporal.Interval; len(iv) > 0 && len(iv[0]) > 0 && iv[0][0] != nil {
		doc["datetime"] = *iv[0][0]
	}
	if bb := c.Extent.Spatial.BBox; len(bb) > 0 {
		wkt, err := geo.BoxWKT(bb[0])
		if err != nil {
			return nil, fmt.Errorf("index: collection %s: %w", c.ID, err)
		}
		doc["bbox"] = wkt
	}
	return doc, nil
}

// ItemDocument flattens an item into its index document. Items with a plain
// datetime index it directly; ranged items index a "[start TO end]"
// daterange string instead and leave datetime unset.
func ItemDocument(it *stac.Item) (Document, error) {
	full, err := json.Marshal(it)
	if err != nil {
		return nil, fmt.Errorf("index: marshal item %s: %w", it.ID, err)
	}
	doc := Document{
		"uniqueid":    ItemDocID(it.Collection, it.ID),
		"id":          it.ID,
		"type":        it.Type,
		"collection":  it.Collection,
		"json_string": string(full),
	}
	if dt, ok := it.Datetime(); ok {
		doc["datetime"] = dt
		doc["daterange"] = dt
	} else {
		start, _ := it.Properties["start_datetime"].(string)
		end, _ := it.Properties["end_datetime"].(string)
		rs, err := rangeBound(start)
		if err != nil {
			return nil, fmt.Errorf("index: item %s: %w", it.ID, err)
		}
		re, err := rangeBound(end)
		if err != nil {
			return nil, fmt.Errorf("index: item %s: %w", it.ID, err)
		}
		doc["daterange"] = fmt.Sprintf("[%s TO %s]", rs, re)
	}
	if len(it.Geometry) > 0 {
		wkt, err := geo.WKTFromGeoJSON(it.Geometry)
		if err != nil {
			return nil, fmt.Errorf("index: item %s: %w", it.ID, err)
		}
		doc["bbox"] = wkt
	}
	return doc, nil
}

// rangeBound reformats an ISO datetime as a daterange bound, or "*" for an
// open end.
func rangeBound(s string) (string, error) {
	if s == "" {
		return "*", nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return "", fmt.Errorf("parse range bound %q: %w", s, err)
	}
	return t.UTC().Format(solrTime), nil
}
