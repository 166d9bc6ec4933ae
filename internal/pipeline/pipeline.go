// Package pipeline wires the full catalog build: load and validate the
// configs, open the database once, build every configured collection,
// reconcile against the published catalog and synchronize the search index.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"stacbuild/internal/build"
	"stacbuild/internal/catalog"
	"stacbuild/internal/config"
	"stacbuild/internal/extract"
	"stacbuild/internal/httpx"
	"stacbuild/internal/index"
	"stacbuild/internal/index/solr"
	"stacbuild/internal/metrics"
	"stacbuild/internal/normalize"
	"stacbuild/internal/stac"
)

// Options are the per-run settings, assembled from the command line.
type Options struct {
	// CatalogPath is the parent-catalog config file.
	CatalogPath string
	// ConfigPaths are the collection config files, processed in order.
	ConfigPaths []string

	// ReadParent fetches the published catalog and reconciles against it;
	// otherwise the run starts from an empty catalog.
	ReadParent bool
	// TestMode redirects the collection configs to the test config folder
	// and prefixes every collection id, so production entries are never
	// probed or replaced.
	TestMode bool
	// Limit caps the rows extracted per collection; 0 means all.
	Limit int

	// Key decrypts the credentials block when the config marks it encrypted.
	Key string
}

// Result summarizes one completed run.
type Result struct {
	RunID     string
	Decisions map[string]catalog.Decision
	Touched   []string
}

// Load reads and validates every config file. The returned issues contain
// warnings as well as errors; callers check config.HasErrors.
func Load(opts Options) (config.Catalog, []config.File, []config.Issue, error) {
	cat, err := config.LoadCatalog(opts.CatalogPath)
	if err != nil {
		return config.Catalog{}, nil, nil, err
	}
	paths := opts.ConfigPaths
	if opts.TestMode {
		paths = config.TestModePaths(paths)
	}
	files, err := config.LoadFiles(paths, opts.TestMode)
	if err != nil {
		return config.Catalog{}, nil, nil, err
	}
	issues := config.ValidateCatalog(cat)
	issues = append(issues, config.ValidateFiles(files)...)
	return cat, files, issues, nil
}

// Run executes the whole pipeline and returns its summary.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	cat, files, issues, err := Load(opts)
	metrics.RecordStage("config", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	for _, is := range issues {
		log.Printf("config: %s", is.Error())
	}
	if config.HasErrors(issues) {
		return nil, fmt.Errorf("pipeline: config has %d validation issue(s)", len(issues))
	}

	if err := config.DecryptDB(&cat.DB, opts.Key); err != nil {
		return nil, err
	}

	ex, err := extract.New(ctx, cat.DB.Type, cat.DB.DSN())
	if err != nil {
		return nil, err
	}
	defer ex.Close()

	hc := httpx.NewClient(httpx.Config{})
	rw := stac.NewRewriter(cat.Href)
	idx := solr.New(cat.Solr, hc)

	rec := &catalog.Reconciler{
		Client:       catalog.NewClient(cat.Href, hc),
		Rewriter:     rw,
		Build:        buildFunc(ex, rw, opts.Limit),
		OnProbeError: cat.OnProbeError,
	}
	return run(ctx, rec, idx, rw, cat, files, opts)
}

// run is the orchestration core, separated from Run so tests can supply
// their own reconciler and index.
func run(ctx context.Context, rec *catalog.Reconciler, idx index.Index, rw stac.Rewriter,
	cat config.Catalog, files []config.File, opts Options) (*Result, error) {

	start := time.Now()
	r, err := rec.Prepare(ctx, cat, opts.ReadParent, opts.TestMode)
	metrics.RecordStage("prepare", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	log.Printf("pipeline: run %s: catalog %s, %d config file(s)", r.ID, cat.CatalogID, len(files))

	res := &Result{RunID: r.ID, Decisions: map[string]catalog.Decision{}}
	for _, f := range files {
		for _, c := range f.Collections {
			start := time.Now()
			d, err := rec.Apply(ctx, r, c)
			metrics.RecordStage("reconcile", err, time.Since(start))
			if err != nil {
				return res, fmt.Errorf("pipeline: %s (%s): %w", c.ID, f.Name, err)
			}
			res.Decisions[c.ID] = d
		}
	}
	res.Touched = r.Touched()
	if len(res.Touched) == 0 {
		log.Printf("pipeline: run %s: no collections touched", r.ID)
	}

	// The catalog document is rebuilt even on an all-skip run: pruning may
	// have dropped child links the indexed document still carries.
	sync := index.NewSynchronizer(idx, rw)
	if err := sync.SyncCollections(ctx, r); err != nil {
		return res, err
	}
	if err := sync.SyncCatalog(ctx, r); err != nil {
		return res, err
	}
	log.Printf("pipeline: run %s: done, %d collection(s) written", r.ID, len(res.Touched))
	return res, nil
}

// buildFunc composes extraction, normalization and collection assembly for
// one configured collection.
func buildFunc(ex extract.Extractor, rw stac.Rewriter, limit int) catalog.BuildFunc {
	return func(ctx context.Context, cfg config.Collection) (*stac.Collection, error) {
		dateCol, ok := cfg.DateColumn()
		if !ok {
			return nil, fmt.Errorf("pipeline: %s: no date column configured", cfg.ID)
		}
		q := extract.Query{
			Columns:    cfg.Columns(),
			Table:      cfg.Table,
			DateColumn: dateCol,
			Where:      cfg.Where,
			Limit:      limit,
		}

		start := time.Now()
		rows, err := extract.Select(ctx, ex, q)
		metrics.RecordStage("extract", err, time.Since(start))
		if err != nil {
			return nil, err
		}
		log.Printf("pipeline: %s: %d row(s) extracted", cfg.ID, len(rows))

		n, err := normalize.New(cfg)
		if err != nil {
			return nil, err
		}
		start = time.Now()
		norm, err := n.Apply(rows)
		metrics.RecordStage("normalize", err, time.Since(start))
		if err != nil {
			return nil, err
		}

		start = time.Now()
		coll, err := build.Collection(cfg, norm, rw)
		metrics.RecordStage("build", err, time.Since(start))
		return coll, err
	}
}
