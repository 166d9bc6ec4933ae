package build

import (
	"strings"
	"testing"
	"time"

	"stacbuild/internal/config"
	"stacbuild/internal/geo"
	"stacbuild/internal/normalize"
	"stacbuild/internal/stac"
	"stacbuild/pkg/records"
)

// Hex WKB of POINT(1 2) and POINT(3 4).
const (
	wkbPoint12 = "0101000000000000000000F03F0000000000000040"
	wkbPoint34 = "010100000000000000000008400000000000001040"
)

func testConfig() config.Collection {
	return config.Collection{
		ID:          "dtm",
		Title:       "DTM",
		Description: "Digital terrain model",
		License:     "CC-BY-4.0",
		Assets: []config.AssetTemplate{{
			IDFormat:  "{id}_tiff",
			Title:     "GeoTIFF {id}",
			URL:       "https://data.example.com/{folder}/{filename}.{filetype}",
			FileType:  "tif",
			MediaType: "image/tiff; application=geotiff",
			Roles:     []string{"data"},
		}},
	}
}

func testRecord(t *testing.T, wkb string) records.Record {
	t.Helper()
	g, err := geo.DecodeWKBHex(wkb)
	if err != nil {
		t.Fatalf("decode wkb: %v", err)
	}
	return records.Record{
		"id":         "42",
		"geometry":   g,
		"date":       time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		"srid":       "25832",
		"filename":   "dtm_42",
		"folder":     "tiles",
		"item:gsd":   0.5,
		"item:notes": "first flight",
	}
}

func TestItem(t *testing.T) {
	rec := testRecord(t, wkbPoint12)
	it, err := Item("42", rec, testConfig())
	if err != nil {
		t.Fatalf("Item: %v", err)
	}

	if it.Type != "Feature" || it.StacVersion != stac.Version || it.Collection != "dtm" {
		t.Fatalf("item shell got %+v", it)
	}
	if it.Properties["datetime"] != "2020-06-01T00:00:00Z" {
		t.Fatalf("datetime got %v", it.Properties["datetime"])
	}
	// Only item-prefixed attributes become properties, prefix stripped.
	if it.Properties["gsd"] != 0.5 || it.Properties["notes"] != "first flight" {
		t.Fatalf("properties got %v", it.Properties)
	}
	if _, leaked := it.Properties["filename"]; leaked {
		t.Fatalf("unprefixed attribute leaked into properties")
	}

	if it.Properties["proj:epsg"] != 25832 {
		t.Fatalf("proj:epsg got %v", it.Properties["proj:epsg"])
	}
	found := false
	for _, e := range it.Extensions {
		if e == ProjectionExtension {
			found = true
		}
	}
	if !found {
		t.Fatalf("projection extension missing: %v", it.Extensions)
	}

	a, ok := it.Assets["42_tiff"]
	if !ok {
		t.Fatalf("asset key not interpolated: %v", it.Assets)
	}
	if a.Href != "https://data.example.com/tiles/dtm_42.tif" {
		t.Fatalf("asset href got %q", a.Href)
	}
	if a.Title != "GeoTIFF 42" {
		t.Fatalf("asset title got %q", a.Title)
	}

	bb := it.BBox
	if bb[0] != 1 || bb[1] != 2 || bb[2] != 1 || bb[3] != 2 {
		t.Fatalf("bbox got %v", bb)
	}
}

// An explicit start-datetime range wins over the plain date attribute: the
// item gets a null datetime.
func TestItem_RangedDatetime(t *testing.T) {
	rec := testRecord(t, wkbPoint12)
	rec["item:start_datetime"] = "2018-03-01T00:00:00Z"
	rec["item:end_datetime"] = "2021-04-01T00:00:00Z"

	it, err := Item("42", rec, testConfig())
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if it.Properties["datetime"] != nil {
		t.Fatalf("datetime got %v; want nil for a ranged item", it.Properties["datetime"])
	}
	if it.Properties["start_datetime"] != "2018-03-01T00:00:00Z" {
		t.Fatalf("start_datetime got %v", it.Properties["start_datetime"])
	}
}

func TestItem_NoGeometry(t *testing.T) {
	rec := testRecord(t, wkbPoint12)
	delete(rec, "geometry")
	if _, err := Item("42", rec, testConfig()); err == nil {
		t.Fatalf("expected error without a decoded geometry")
	}
}

func normalized(t *testing.T) *normalize.Result {
	t.Helper()
	r1 := testRecord(t, wkbPoint12)
	r2 := testRecord(t, wkbPoint34)
	r2["id"] = "43"
	r2["date"] = time.Date(2021, 7, 2, 0, 0, 0, 0, time.UTC)
	return &normalize.Result{
		IDs:     []string{"42", "43"},
		Records: map[string]records.Record{"42": r1, "43": r2},
	}
}

func TestCollection(t *testing.T) {
	rw := stac.NewRewriter("https://api.example.com")
	c, err := Collection(testConfig(), normalized(t), rw)
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}

	if c.Type != "Collection" || c.ID != "dtm" || c.License != "CC-BY-4.0" {
		t.Fatalf("collection shell got %+v", c)
	}
	if len(c.Items) != 2 || c.Items[0].ID != "42" || c.Items[1].ID != "43" {
		t.Fatalf("items got %d in wrong order", len(c.Items))
	}

	bb := c.Extent.Spatial.BBox
	if len(bb) != 1 || bb[0][0] != 1 || bb[0][1] != 2 || bb[0][2] != 3 || bb[0][3] != 4 {
		t.Fatalf("extent bbox got %v; want the union", bb)
	}
	iv := c.Extent.Temporal.Interval
	if *iv[0][0] != "2020-06-01T00:00:00Z" || *iv[0][1] != "2021-07-02T00:00:00Z" {
		t.Fatalf("temporal extent got [%v, %v]", *iv[0][0], *iv[0][1])
	}

	// Item links were rewritten before aggregation.
	for _, it := range c.Items {
		if len(it.Links) == 0 || !strings.HasPrefix(it.Links[0].Href, "https://api.example.com/") {
			t.Fatalf("item links not rewritten: %v", it.Links)
		}
	}
}

func TestCollection_MissionSuffix(t *testing.T) {
	res := normalized(t)
	for _, rec := range res.Records {
		rec["item:mission"] = "sp2020"
	}
	c, err := Collection(testConfig(), res, stac.NewRewriter("https://api.example.com"))
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if c.Description != "Digital terrain model (sp2020)" {
		t.Fatalf("description got %q", c.Description)
	}
}

func TestCollection_Providers(t *testing.T) {
	cfg := testConfig()
	cfg.Providers = []config.Provider{{Name: "Survey Office", Roles: []string{"licensor"}}}

	res := normalized(t)
	res.Records["42"]["producer"] = "Aerial Corp"

	c, err := Collection(cfg, res, stac.NewRewriter("https://api.example.com"))
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	if len(c.Providers) != 2 {
		t.Fatalf("providers got %v", c.Providers)
	}
	if c.Providers[0].Name != "Survey Office" {
		t.Fatalf("config provider lost: %v", c.Providers)
	}
	if c.Providers[1].Name != "Aerial Corp" || c.Providers[1].Roles[0] != "producer" {
		t.Fatalf("record provider got %v", c.Providers[1])
	}
}

func TestCollection_Thumbnail(t *testing.T) {
	cfg := testConfig()
	cfg.Thumbnail = &config.Thumbnail{Key: "thumbnail", Href: "https://data.example.com/dtm.png", MediaType: "image/png"}

	c, err := Collection(cfg, normalized(t), stac.NewRewriter("https://api.example.com"))
	if err != nil {
		t.Fatalf("Collection: %v", err)
	}
	a, ok := c.Assets["thumbnail"]
	if !ok || a.Href != "https://data.example.com/dtm.png" {
		t.Fatalf("thumbnail asset got %v", c.Assets)
	}
	if len(a.Roles) != 1 || a.Roles[0] != "thumbnail" {
		t.Fatalf("thumbnail roles got %v", a.Roles)
	}
}

func TestCollection_NoRecords(t *testing.T) {
	res := &normalize.Result{Records: map[string]records.Record{}}
	if _, err := Collection(testConfig(), res, stac.NewRewriter("https://api.example.com")); err == nil {
		t.Fatalf("expected error for an empty result")
	}
}
