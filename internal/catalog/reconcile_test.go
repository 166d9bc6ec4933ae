package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stacbuild/internal/config"
	"stacbuild/internal/httpx"
	"stacbuild/internal/stac"
)

// fakeAPI serves a published catalog document at / and answers collection
// probes from its set of existing ids.
type fakeAPI struct {
	catalog  *stac.Catalog
	existing map[string]bool
	probes   []string
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			if f.catalog == nil {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(f.catalog)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/collections/")
		f.probes = append(f.probes, id)
		if f.existing[id] {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
}

func fastClient() *httpx.Client {
	return httpx.NewClient(httpx.Config{Timeout: 2 * time.Second, MaxRetries: 0, InitialBackoff: time.Millisecond})
}

func reconciler(t *testing.T, api *fakeAPI) (*Reconciler, *fakeAPI, func()) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	rw := stac.NewRewriter(srv.URL)
	r := &Reconciler{
		Client:   NewClient(srv.URL, fastClient()),
		Rewriter: rw,
		Build: func(ctx context.Context, cfg config.Collection) (*stac.Collection, error) {
			return &stac.Collection{Type: "Collection", ID: cfg.ID, Title: cfg.Title}, nil
		},
		OnProbeError: config.ProbeAssumeMissing,
	}
	return r, api, srv.Close
}

func parentConfig() config.Catalog {
	return config.Catalog{CatalogID: "geodata", Title: "Geodata", Description: "aerial survey catalog"}
}

func TestClientFetch_Absent(t *testing.T) {
	r, _, done := reconciler(t, &fakeAPI{})
	defer done()

	cat, ok, err := r.Client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if ok || cat != nil {
		t.Fatalf("absent catalog got (%v, %v)", cat, ok)
	}
}

func TestPrepare_FreshWhenAbsent(t *testing.T) {
	r, _, done := reconciler(t, &fakeAPI{})
	defer done()

	run, err := r.Prepare(context.Background(), parentConfig(), true, false)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if run.Catalog.ID != "geodata" || run.Catalog.Type != "Catalog" {
		t.Fatalf("fresh catalog got %+v", run.Catalog)
	}
	if run.ID == "" {
		t.Fatalf("run has no id")
	}
}

func TestPrepare_PrunesStaleChildLinks(t *testing.T) {
	published := stac.NewCatalog("geodata", "Geodata", "aerial survey catalog")
	published.Links = append(published.Links,
		stac.Link{Rel: stac.RelChild, Href: "http://old/collections/dtm"},
		stac.Link{Rel: stac.RelChild, Href: "http://old/collections/gone"},
		stac.Link{Rel: "license", Href: "http://old/license"},
	)
	r, _, done := reconciler(t, &fakeAPI{catalog: published, existing: map[string]bool{"dtm": true}})
	defer done()

	run, err := r.Prepare(context.Background(), parentConfig(), true, false)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	var children []string
	license := false
	for _, l := range run.Catalog.Links {
		switch l.Rel {
		case stac.RelChild:
			children = append(children, l.Href)
		case "license":
			license = true
		}
	}
	if len(children) != 1 || !strings.HasSuffix(children[0], "/dtm") {
		t.Fatalf("child links after prune: %v", children)
	}
	if !license {
		t.Fatalf("non-child link was pruned")
	}
}

func TestPrepare_NoReadSkipsFetch(t *testing.T) {
	published := stac.NewCatalog("published", "", "d")
	r, api, done := reconciler(t, &fakeAPI{catalog: published})
	defer done()

	run, err := r.Prepare(context.Background(), parentConfig(), false, false)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if run.Catalog.ID != "geodata" {
		t.Fatalf("catalog got %q; want the config catalog", run.Catalog.ID)
	}
	if len(api.probes) != 0 {
		t.Fatalf("probes happened without readParent: %v", api.probes)
	}
}

func TestApply_Decisions(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Collection
		exists  bool
		want    Decision
		touched bool
	}{
		{"new collection", config.Collection{ID: "dtm"}, false, DecisionCreate, true},
		{"existing, overwrite off", config.Collection{ID: "dtm"}, true, DecisionSkip, false},
		{"existing, overwrite on", config.Collection{ID: "dtm", Overwrite: true}, true, DecisionReplace, true},
		{"ignored", config.Collection{ID: "dtm", Ignore: true}, true, DecisionSkip, false},
	}

	for _, tc := range tests {
		existing := map[string]bool{}
		if tc.exists {
			existing["dtm"] = true
		}
		r, _, done := reconciler(t, &fakeAPI{existing: existing})
		run := NewRun(stac.NewCatalog("geodata", "", "d"), false)

		got, err := r.Apply(context.Background(), run, tc.cfg)
		done()
		if err != nil {
			t.Fatalf("%s: Apply: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: decision got %q; want %q", tc.name, got, tc.want)
		}
		if run.WasTouched("dtm") != tc.touched {
			t.Fatalf("%s: touched got %v; want %v", tc.name, run.WasTouched("dtm"), tc.touched)
		}
	}
}

func TestApply_ReplaceDetachesOldChild(t *testing.T) {
	r, _, done := reconciler(t, &fakeAPI{existing: map[string]bool{"dtm": true}})
	defer done()

	run := NewRun(stac.NewCatalog("geodata", "", "d"), false)
	old := &stac.Collection{ID: "dtm", Title: "old"}
	run.Catalog.AddChild(old, r.Rewriter.CollectionHref("dtm"))

	if _, err := r.Apply(context.Background(), run, config.Collection{ID: "dtm", Overwrite: true}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if len(run.Catalog.Children) != 1 || run.Catalog.Children[0].Title == "old" {
		t.Fatalf("old child not replaced: %+v", run.Catalog.Children)
	}
	childLinks := 0
	for _, l := range run.Catalog.Links {
		if l.Rel == stac.RelChild {
			childLinks++
		}
	}
	if childLinks != 1 {
		t.Fatalf("got %d child links; want 1", childLinks)
	}
}

// In test mode the ids carry the test prefix, so probes never hit the
// production collection ids.
func TestApply_TestModeProbesPrefixedIDs(t *testing.T) {
	r, api, done := reconciler(t, &fakeAPI{})
	defer done()

	run := NewRun(stac.NewCatalog("geodata", "", "d"), true)
	cfg := config.Collection{ID: config.TestPrefix + "dtm"}
	if _, err := r.Apply(context.Background(), run, cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, p := range api.probes {
		if !strings.HasPrefix(p, config.TestPrefix) {
			t.Fatalf("probe hit unprefixed id %q", p)
		}
	}
}

func TestApply_ProbePolicy(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // every probe now fails at the transport level

	build := func(ctx context.Context, cfg config.Collection) (*stac.Collection, error) {
		return &stac.Collection{ID: cfg.ID}, nil
	}

	// assume-missing: the failed probe counts as "does not exist".
	r := &Reconciler{
		Client:       NewClient(url, fastClient()),
		Rewriter:     stac.NewRewriter(url),
		Build:        build,
		OnProbeError: config.ProbeAssumeMissing,
	}
	run := NewRun(stac.NewCatalog("geodata", "", "d"), false)
	d, err := r.Apply(context.Background(), run, config.Collection{ID: "dtm"})
	if err != nil {
		t.Fatalf("assume-missing: %v", err)
	}
	if d != DecisionCreate {
		t.Fatalf("assume-missing decision got %q", d)
	}

	// abort: the failure is surfaced.
	r.OnProbeError = config.ProbeAbort
	run = NewRun(stac.NewCatalog("geodata", "", "d"), false)
	if _, err := r.Apply(context.Background(), run, config.Collection{ID: "dtm"}); err == nil {
		t.Fatalf("abort: expected the probe error")
	}
}

func TestApply_MergesExtensions(t *testing.T) {
	r, _, done := reconciler(t, &fakeAPI{})
	defer done()
	r.Build = func(ctx context.Context, cfg config.Collection) (*stac.Collection, error) {
		return &stac.Collection{ID: cfg.ID, Extensions: []string{"https://ext.example.com/v1"}}, nil
	}

	run := NewRun(stac.NewCatalog("geodata", "", "d"), false)
	if _, err := r.Apply(context.Background(), run, config.Collection{ID: "dtm"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(run.Catalog.Extensions) != 1 || run.Catalog.Extensions[0] != "https://ext.example.com/v1" {
		t.Fatalf("catalog extensions got %v", run.Catalog.Extensions)
	}
}
