// Link rewriting. One configured base URL is the single source of truth for
// every self-href and cross-link in the produced catalog; all functions here
// are pure and idempotent.
package stac

import "strings"

// Rewriter computes canonical API hrefs from the serving base URL.
type Rewriter struct {
	base string
}

// NewRewriter builds a Rewriter for base, tolerating a trailing slash.
func NewRewriter(base string) Rewriter {
	return Rewriter{base: strings.TrimRight(base, "/")}
}

// CatalogHref is the canonical self-href of the catalog.
func (rw Rewriter) CatalogHref() string {
	return rw.base
}

// CollectionHref is the canonical self-href of a collection.
func (rw Rewriter) CollectionHref(collID string) string {
	return rw.base + "/collections/" + collID
}

// ItemHref is the canonical self-href of an item.
func (rw Rewriter) ItemHref(collID, itemID string) string {
	return rw.base + "/collections/" + collID + "/items/" + itemID
}

// ItemsHref is the item-listing endpoint of a collection.
func (rw Rewriter) ItemsHref(collID string) string {
	return rw.CollectionHref(collID) + "/items"
}

// RewriteItemLinks sets the item's self, parent, collection and root links to
// the canonical hrefs, replacing whatever was there.
func (rw Rewriter) RewriteItemLinks(it *Item) {
	it.Links = []Link{
		{Rel: RelSelf, Href: rw.ItemHref(it.Collection, it.ID), Type: "application/geo+json"},
		{Rel: RelParent, Href: rw.CollectionHref(it.Collection), Type: "application/json"},
		{Rel: "collection", Href: rw.CollectionHref(it.Collection), Type: "application/json"},
		{Rel: RelRoot, Href: rw.CatalogHref(), Type: "application/json"},
	}
}

// RewriteCollectionLinks normalizes a collection's link set: canonical self,
// parent and root links, and all outgoing per-item links collapsed into a
// single "items" relation pointing at the item listing endpoint.
func (rw Rewriter) RewriteCollectionLinks(c *Collection) {
	kept := make([]Link, 0, len(c.Links)+4)
	for _, l := range c.Links {
		switch l.Rel {
		case RelItem, RelItems, RelSelf, RelParent, RelRoot:
			// replaced below
		default:
			kept = append(kept, l)
		}
	}
	kept = append(kept,
		Link{Rel: RelSelf, Href: rw.CollectionHref(c.ID), Type: "application/json"},
		Link{Rel: RelParent, Href: rw.CatalogHref(), Type: "application/json"},
		Link{Rel: RelRoot, Href: rw.CatalogHref(), Type: "application/json"},
		Link{Rel: RelItems, Href: rw.ItemsHref(c.ID), Type: "application/json", Title: "Get all items of this collection"},
	)
	c.Links = kept
}

// RewriteCatalogLinks sets the catalog's canonical self/root links and adds
// the fixed capability link set. Links whose title is already present are
// left alone, so re-running is a no-op.
func (rw Rewriter) RewriteCatalogLinks(cat *Catalog) {
	kept := make([]Link, 0, len(cat.Links)+8)
	for _, l := range cat.Links {
		if l.Rel == RelSelf || l.Rel == RelRoot {
			continue
		}
		kept = append(kept, l)
	}
	kept = append(kept,
		Link{Rel: RelSelf, Href: rw.CatalogHref(), Type: "application/json"},
		Link{Rel: RelRoot, Href: rw.CatalogHref(), Type: "application/json"},
	)
	cat.Links = kept

	capability := []Link{
		{Rel: RelData, Href: rw.base + "/collections", Type: "application/json", Title: "Get all collections of this catalog"},
		{Rel: RelServiceDesc, Href: rw.base + "/api", Type: "application/vnd.oai.openapi+yaml;version=3.0", Title: "OpenAPI Description YAML"},
		{Rel: RelServiceDoc, Href: rw.base + "/api.html", Type: "text/html", Title: "STAC API OPENAPI Documentation HTML"},
		{Rel: RelConformance, Href: rw.base + "/conformance", Type: "application/json", Title: "STAC conformance classes implemented by this server"},
		{Rel: RelSearch, Href: rw.base + "/search", Type: "application/geo+json", Title: "STAC Search GET", Method: "GET"},
		{Rel: RelSearch, Href: rw.base + "/search", Type: "application/geo+json", Title: "STAC Search POST", Method: "POST"},
	}
	titles := map[string]bool{}
	for _, l := range cat.Links {
		titles[l.Title] = true
	}
	for _, l := range capability {
		if !titles[l.Title] {
			cat.Links = append(cat.Links, l)
		}
	}
}
