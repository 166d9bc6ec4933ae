// Package geo wraps the go-geom encoders used by the pipeline: decoding
// well-known-binary hex geometry columns, computing bounding boxes, and
// producing the WKT / GeoJSON representations the index documents and STAC
// objects need.
package geo

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkbhex"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// DecodeWKBHex decodes a hex-encoded WKB geometry, as stored in PostGIS
// geometry columns.
func DecodeWKBHex(s string) (geom.T, error) {
	g, err := wkbhex.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("geo: decode wkb hex: %w", err)
	}
	return g, nil
}

// BBox returns the 2D envelope of g as [minx, miny, maxx, maxy].
func BBox(g geom.T) []float64 {
	b := g.Bounds()
	return []float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
}

// WKT returns the well-known-text form of g.
func WKT(g geom.T) (string, error) {
	s, err := wkt.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("geo: encode wkt: %w", err)
	}
	return s, nil
}

// GeoJSON returns the GeoJSON encoding of g as a raw JSON message, suitable
// for embedding in an item's "geometry" member.
func GeoJSON(g geom.T) (json.RawMessage, error) {
	b, err := geojson.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("geo: encode geojson: %w", err)
	}
	return json.RawMessage(b), nil
}

// WKTFromGeoJSON re-encodes a GeoJSON geometry as WKT, for the item-level
// bbox index field.
func WKTFromGeoJSON(raw json.RawMessage) (string, error) {
	var g geom.T
	if err := geojson.Unmarshal([]byte(raw), &g); err != nil {
		return "", fmt.Errorf("geo: decode geojson: %w", err)
	}
	return WKT(g)
}

// Box returns the rectangle polygon spanned by bbox [minx, miny, maxx, maxy].
func Box(bbox []float64) (*geom.Polygon, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("geo: bbox must have 4 values, got %d", len(bbox))
	}
	minx, miny, maxx, maxy := bbox[0], bbox[1], bbox[2], bbox[3]
	p := geom.NewPolygon(geom.XY)
	p.MustSetCoords([][]geom.Coord{{
		{minx, miny},
		{maxx, miny},
		{maxx, maxy},
		{minx, maxy},
		{minx, miny},
	}})
	return p, nil
}

// BoxWKT is a convenience for the WKT of the bbox rectangle, used for the
// collection-level bbox index field.
func BoxWKT(bbox []float64) (string, error) {
	p, err := Box(bbox)
	if err != nil {
		return "", err
	}
	return WKT(p)
}

// UnionBBox merges b into acc and returns the union envelope. A nil acc
// starts a new envelope from b.
func UnionBBox(acc, b []float64) []float64 {
	if len(b) != 4 {
		return acc
	}
	if acc == nil {
		out := make([]float64, 4)
		copy(out, b)
		return out
	}
	if b[0] < acc[0] {
		acc[0] = b[0]
	}
	if b[1] < acc[1] {
		acc[1] = b[1]
	}
	if b[2] > acc[2] {
		acc[2] = b[2]
	}
	if b[3] > acc[3] {
		acc[3] = b[3]
	}
	return acc
}
