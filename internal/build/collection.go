package build

import (
	"fmt"

	"stacbuild/internal/config"
	"stacbuild/internal/normalize"
	"stacbuild/internal/stac"
	"stacbuild/pkg/records"
)

// Collection aggregates the normalized records into a complete collection:
// shell, providers, items with rewritten links, derived extent and
// summaries, and the optional thumbnail asset.
func Collection(cfg config.Collection, res *normalize.Result, rw stac.Rewriter) (*stac.Collection, error) {
	if len(res.IDs) == 0 {
		return nil, fmt.Errorf("build: collection %s: no records", cfg.ID)
	}
	first := res.Records[res.IDs[0]]

	description := cfg.Description
	if m := first.String(ItemPrefix + "mission"); m != "" {
		description += " (" + m + ")"
	}

	c := &stac.Collection{
		Type:        "Collection",
		ID:          cfg.ID,
		StacVersion: stac.Version,
		Extensions:  append([]string(nil), cfg.Extensions...),
		Title:       cfg.Title,
		Description: description,
		Keywords:    cfg.Keywords,
		License:     cfg.License,
		Providers:   providers(cfg, first),
	}

	for _, id := range res.IDs {
		it, err := Item(id, res.Records[id], cfg)
		if err != nil {
			return nil, err
		}
		rw.RewriteItemLinks(it)
		c.Items = append(c.Items, it)
	}

	c.UpdateExtent()
	c.UpdateSummaries()
	rw.RewriteCollectionLinks(c)

	if tbn := cfg.Thumbnail; tbn != nil {
		if c.Assets == nil {
			c.Assets = map[string]stac.Asset{}
		}
		c.Assets[tbn.Key] = stac.Asset{
			Href:  tbn.Href,
			Type:  tbn.MediaType,
			Roles: []string{"thumbnail"},
		}
	}
	return c, nil
}

// providers combines the config-declared providers with any provider role
// values discovered directly on the first record.
func providers(cfg config.Collection, first records.Record) []stac.Provider {
	out := make([]stac.Provider, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		out = append(out, stac.Provider{
			Name:        p.Name,
			Description: p.Description,
			Roles:       p.Roles,
			URL:         p.URL,
		})
	}
	for _, role := range stac.ProviderRoles {
		if name := first.String(role); name != "" {
			out = append(out, stac.Provider{Name: name, Roles: []string{role}})
		}
	}
	return out
}
