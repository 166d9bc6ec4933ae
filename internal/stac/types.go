// Package stac holds the typed STAC 1.0.0 object model the pipeline builds:
// catalog, collection, item, link, asset, provider, extent and summaries.
// Serialization is plain encoding/json with the exact STAC field names; the
// pipeline never round-trips through untyped maps.
package stac

import "encoding/json"

// Version is the STAC spec version stamped on every produced object.
const Version = "1.0.0"

// Relation types used on links.
const (
	RelSelf        = "self"
	RelRoot        = "root"
	RelParent      = "parent"
	RelChild       = "child"
	RelItem        = "item"
	RelItems       = "items"
	RelData        = "data"
	RelServiceDesc = "service-desc"
	RelServiceDoc  = "service-doc"
	RelConformance = "conformance"
	RelSearch      = "search"
)

// Link is a typed hyperlink between STAC entities.
type Link struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`

	// Method distinguishes the GET and POST search capability links.
	Method string `json:"method,omitempty"`
}

// Asset is a downloadable artifact attached to an item or collection.
type Asset struct {
	Href        string   `json:"href"`
	Type        string   `json:"type,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// Provider describes an organization involved with a collection's data.
type Provider struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// ProviderRoles are the provider roles recognized by the collection builder
// when it scans the first record for provider attributes.
var ProviderRoles = []string{"licensor", "producer", "processor", "host"}

// SpatialExtent is the aggregate bbox list of a collection.
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
}

// TemporalExtent is the aggregate interval list of a collection. Interval
// entries are RFC3339 strings or null for open ends.
type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}

// Extent combines the spatial and temporal extent of a collection. It is
// derived from the collection's items, never authored.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// Catalog is the root container of collections.
type Catalog struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	StacVersion string   `json:"stac_version"`
	Extensions  []string `json:"stac_extensions,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description"`
	Links       []Link   `json:"links"`

	// Children are the collections attached during this run. They are
	// serialized as child links, not inline.
	Children []*Collection `json:"-"`
}

// Collection is a named, described group of items with derived extent and
// summaries.
type Collection struct {
	Type        string           `json:"type"`
	ID          string           `json:"id"`
	StacVersion string           `json:"stac_version"`
	Extensions  []string         `json:"stac_extensions,omitempty"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description"`
	Keywords    []string         `json:"keywords,omitempty"`
	License     string           `json:"license"`
	Providers   []Provider       `json:"providers,omitempty"`
	Extent      Extent           `json:"extent"`
	Summaries   map[string]any   `json:"summaries,omitempty"`
	Assets      map[string]Asset `json:"assets,omitempty"`
	Links       []Link           `json:"links"`

	// Items owned by the collection. Serialized separately, one document per
	// item; a collection JSON never embeds its items.
	Items []*Item `json:"-"`
}

// Item is one spatiotemporal dataset record.
type Item struct {
	Type        string           `json:"type"`
	StacVersion string           `json:"stac_version"`
	Extensions  []string         `json:"stac_extensions,omitempty"`
	ID          string           `json:"id"`
	Geometry    json.RawMessage  `json:"geometry"`
	BBox        []float64        `json:"bbox"`
	Properties  map[string]any   `json:"properties"`
	Links       []Link           `json:"links"`
	Assets      map[string]Asset `json:"assets"`
	Collection  string           `json:"collection,omitempty"`
}

// NewCatalog returns an empty catalog shell.
func NewCatalog(id, title, description string) *Catalog {
	return &Catalog{
		Type:        "Catalog",
		ID:          id,
		StacVersion: Version,
		Title:       title,
		Description: description,
	}
}

// AddChild attaches c as a child collection, replacing any previous child
// link with the same target href.
func (cat *Catalog) AddChild(c *Collection, href string) {
	cat.Children = append(cat.Children, c)
	for _, l := range cat.Links {
		if l.Rel == RelChild && l.Href == href {
			return
		}
	}
	cat.Links = append(cat.Links, Link{Rel: RelChild, Href: href, Type: "application/json", Title: c.Title})
}

// RemoveChild detaches the child collection (and its child link) with the
// given id. It reports whether anything was removed.
func (cat *Catalog) RemoveChild(id, href string) bool {
	removed := false
	kept := cat.Children[:0]
	for _, c := range cat.Children {
		if c.ID == id {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	cat.Children = kept

	links := cat.Links[:0]
	for _, l := range cat.Links {
		if l.Rel == RelChild && l.Href == href {
			removed = true
			continue
		}
		links = append(links, l)
	}
	cat.Links = links
	return removed
}

// MergeExtensions adds every extension in exts not already present on the
// catalog, preserving order.
func (cat *Catalog) MergeExtensions(exts []string) {
	seen := map[string]bool{}
	for _, e := range cat.Extensions {
		seen[e] = true
	}
	for _, e := range exts {
		if !seen[e] {
			cat.Extensions = append(cat.Extensions, e)
			seen[e] = true
		}
	}
}

// Datetime returns the item's plain datetime property when present and
// non-null.
func (it *Item) Datetime() (string, bool) {
	v, ok := it.Properties["datetime"]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
