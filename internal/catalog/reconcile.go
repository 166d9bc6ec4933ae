package catalog

import (
	"context"
	"fmt"
	"log"
	"strings"

	"stacbuild/internal/config"
	"stacbuild/internal/stac"
)

// Decision is the reconciliation outcome for one configured collection.
type Decision string

const (
	// DecisionSkip leaves the remote collection untouched; no extraction and
	// no index writes happen for it.
	DecisionSkip Decision = "skip"
	// DecisionCreate builds the collection and attaches it to the catalog.
	DecisionCreate Decision = "create"
	// DecisionReplace detaches the existing child first, then creates.
	DecisionReplace Decision = "replace"
)

// BuildFunc builds the full collection (extract, normalize, items, extent)
// for one config. Supplied by the pipeline so that reconciliation stays
// independent of the database layer.
type BuildFunc func(ctx context.Context, cfg config.Collection) (*stac.Collection, error)

// Reconciler decides, per configured collection, whether to skip, create or
// replace it against the published catalog.
type Reconciler struct {
	Client   *Client
	Rewriter stac.Rewriter
	Build    BuildFunc

	// OnProbeError is the configured policy for transport-level existence
	// check failures (config.ProbeAssumeMissing or config.ProbeAbort).
	OnProbeError string
}

// Prepare fetches the published catalog when readParent is set and prunes
// its stale child links; otherwise (or when the fetch finds no catalog) it
// starts a fresh empty catalog from the parent config.
func (r *Reconciler) Prepare(ctx context.Context, parent config.Catalog, readParent, testMode bool) (*Run, error) {
	var cat *stac.Catalog
	if readParent {
		fetched, ok, err := r.Client.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := r.pruneChildLinks(ctx, fetched); err != nil {
				return nil, err
			}
			cat = fetched
		}
	}
	if cat == nil {
		cat = stac.NewCatalog(parent.CatalogID, parent.Title, parent.Description)
	}
	return NewRun(cat, testMode), nil
}

// pruneChildLinks drops every child link whose target collection no longer
// resolves via the existence check. All non-child links pass through
// unchanged.
func (r *Reconciler) pruneChildLinks(ctx context.Context, cat *stac.Catalog) error {
	kept := cat.Links[:0]
	for _, l := range cat.Links {
		if l.Rel != stac.RelChild || l.Href == "" {
			kept = append(kept, l)
			continue
		}
		id := l.Href[strings.LastIndex(l.Href, "/")+1:]
		exists, err := r.exists(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			kept = append(kept, l)
		} else {
			log.Printf("catalog: pruning stale child link %s", l.Href)
		}
	}
	cat.Links = kept
	return nil
}

// Apply runs the reconciliation state machine for one collection config and
// returns the decision taken.
func (r *Reconciler) Apply(ctx context.Context, run *Run, cfg config.Collection) (Decision, error) {
	if cfg.Ignore {
		log.Printf("catalog: %s: ignored by config", cfg.ID)
		return DecisionSkip, nil
	}

	exists, err := r.exists(ctx, cfg.ID)
	if err != nil {
		return DecisionSkip, err
	}

	decision := DecisionCreate
	switch {
	case exists && !cfg.Overwrite:
		log.Printf("catalog: %s: exists remotely, overwrite disabled, skipping", cfg.ID)
		return DecisionSkip, nil
	case exists && cfg.Overwrite:
		log.Printf("catalog: %s: deleting old collection", cfg.ID)
		run.Catalog.RemoveChild(cfg.ID, r.Rewriter.CollectionHref(cfg.ID))
		decision = DecisionReplace
	}

	log.Printf("catalog: %s: creating new collection", cfg.ID)
	coll, err := r.Build(ctx, cfg)
	if err != nil {
		return decision, fmt.Errorf("catalog: build %s: %w", cfg.ID, err)
	}

	run.Touch(coll.ID)
	run.Catalog.AddChild(coll, r.Rewriter.CollectionHref(coll.ID))
	run.Catalog.MergeExtensions(coll.Extensions)
	return decision, nil
}

// exists wraps the client probe with the configured transport-failure
// policy.
func (r *Reconciler) exists(ctx context.Context, id string) (bool, error) {
	exists, err := r.Client.Exists(ctx, id)
	if err == nil {
		return exists, nil
	}
	if r.OnProbeError == config.ProbeAbort {
		return false, err
	}
	log.Printf("catalog: existence check for %s failed, assuming missing: %v", id, err)
	return false, nil
}
