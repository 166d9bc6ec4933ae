package index

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/zeebo/xxh3"

	"stacbuild/internal/catalog"
	"stacbuild/internal/metrics"
	"stacbuild/internal/stac"
)

// Synchronizer performs the ordered index synchronization for one run. For
// every collection touched this run it deletes the stale documents and
// commits, then adds the fresh ones, commits and optimizes; the catalog
// document is rebuilt last, so a reader never observes a collection whose
// items are stale.
type Synchronizer struct {
	Index    Index
	Rewriter stac.Rewriter

	fingerprints map[string]uint64
}

// NewSynchronizer wires a Synchronizer over the index collaborator.
func NewSynchronizer(idx Index, rw stac.Rewriter) *Synchronizer {
	return &Synchronizer{Index: idx, Rewriter: rw, fingerprints: map[string]uint64{}}
}

// SyncCollections replaces the index contents of every collection touched
// this run, one collection at a time, in catalog order.
func (s *Synchronizer) SyncCollections(ctx context.Context, run *catalog.Run) error {
	for _, c := range run.TouchedCollections() {
		start := time.Now()
		err := s.syncCollection(ctx, c)
		metrics.RecordStage("index", err, time.Since(start))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Synchronizer) syncCollection(ctx context.Context, c *stac.Collection) error {
	// Stale documents first: the old collection document and every old item
	// document by id prefix, committed before anything fresh is staged.
	if err := s.Index.DeleteByID(ctx, CollectionDocID(c.ID)); err != nil {
		return fmt.Errorf("index: delete collection %s: %w", c.ID, err)
	}
	if err := s.Index.DeleteByQuery(ctx, ItemDocQuery(c.ID)); err != nil {
		return fmt.Errorf("index: delete items of %s: %w", c.ID, err)
	}
	if err := s.Index.Commit(ctx); err != nil {
		return fmt.Errorf("index: commit deletes %s: %w", c.ID, err)
	}
	metrics.RecordDocuments("collection", "delete", 1)

	docs := make([]Document, 0, len(c.Items)+1)
	for i, it := range c.Items {
		doc, err := ItemDocument(it)
		if err != nil {
			return err
		}
		if err := s.Index.Add(ctx, doc); err != nil {
			return fmt.Errorf("index: add item %s: %w", it.ID, err)
		}
		docs = append(docs, doc)
		if n := i + 1; n%1000 == 0 {
			log.Printf("index: %s: %d items added", c.ID, n)
		}
	}
	metrics.RecordDocuments("item", "add", int64(len(c.Items)))

	log.Printf("index: adding collection document %s", c.ID)
	doc, err := CollectionDocument(c)
	if err != nil {
		return err
	}
	if err := s.Index.Add(ctx, doc); err != nil {
		return fmt.Errorf("index: add collection %s: %w", c.ID, err)
	}
	docs = append(docs, doc)
	metrics.RecordDocuments("collection", "add", 1)

	if err := s.Index.Commit(ctx); err != nil {
		return fmt.Errorf("index: commit %s: %w", c.ID, err)
	}
	if err := s.Index.Optimize(ctx); err != nil {
		return fmt.Errorf("index: optimize %s: %w", c.ID, err)
	}

	fp := Fingerprint(docs)
	s.fingerprints[c.ID] = fp
	log.Printf("index: %s: %d documents, fingerprint %016x", c.ID, len(docs), fp)
	return nil
}

// SyncCatalog rebuilds and indexes the root catalog document. Called after
// every collection has been processed.
func (s *Synchronizer) SyncCatalog(ctx context.Context, run *catalog.Run) error {
	s.Rewriter.RewriteCatalogLinks(run.Catalog)

	doc, err := CatalogDocument(run.Catalog)
	if err != nil {
		return err
	}
	log.Printf("index: adding catalog document %s", run.Catalog.ID)
	if err := s.Index.Add(ctx, doc); err != nil {
		return fmt.Errorf("index: add catalog %s: %w", run.Catalog.ID, err)
	}
	metrics.RecordDocuments("catalog", "add", 1)

	if err := s.Index.Commit(ctx); err != nil {
		return fmt.Errorf("index: commit catalog: %w", err)
	}
	if err := s.Index.Optimize(ctx); err != nil {
		return fmt.Errorf("index: optimize catalog: %w", err)
	}
	s.fingerprints[run.Catalog.ID] = Fingerprint([]Document{doc})
	return nil
}

// Fingerprints returns the per-entity document fingerprints recorded this
// run, keyed by collection (or catalog) id.
func (s *Synchronizer) Fingerprints() map[string]uint64 {
	out := make(map[string]uint64, len(s.fingerprints))
	for k, v := range s.fingerprints {
		out[k] = v
	}
	return out
}

// Fingerprint hashes the documents' serialized records, order-independent,
// so reruns over unchanged data produce identical values.
func Fingerprint(docs []Document) uint64 {
	keys := make([]string, 0, len(docs))
	byID := make(map[string]string, len(docs))
	for _, d := range docs {
		id := d.UniqueID()
		keys = append(keys, id)
		if s, ok := d["json_string"].(string); ok {
			byID[id] = s
		}
	}
	sort.Strings(keys)
	h := xxh3.New()
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.WriteString(byID[k])
	}
	return h.Sum64()
}
