package catalog

import (
	"github.com/google/uuid"

	"stacbuild/internal/stac"
)

// Run threads the run's mutable state through the pipeline stages: the
// catalog under construction and the set of collection ids touched this
// run. There is no package-level run state.
type Run struct {
	// ID identifies this run in logs and metrics.
	ID string

	// Catalog is the catalog under construction.
	Catalog *stac.Catalog

	// TestMode marks runs whose collection ids carry the test prefix.
	TestMode bool

	touched    []string
	touchedSet map[string]bool
}

// NewRun wraps the catalog in a fresh run context.
func NewRun(cat *stac.Catalog, testMode bool) *Run {
	return &Run{
		ID:         uuid.NewString(),
		Catalog:    cat,
		TestMode:   testMode,
		touchedSet: map[string]bool{},
	}
}

// Touch records a collection id as created this run.
func (r *Run) Touch(id string) {
	if r.touchedSet[id] {
		return
	}
	r.touchedSet[id] = true
	r.touched = append(r.touched, id)
}

// Touched lists the collection ids created this run, in creation order.
func (r *Run) Touched() []string {
	return r.touched
}

// WasTouched reports whether the collection id was created this run.
func (r *Run) WasTouched(id string) bool {
	return r.touchedSet[id]
}

// TouchedCollections returns the catalog children created this run, in
// catalog order.
func (r *Run) TouchedCollections() []*stac.Collection {
	var out []*stac.Collection
	for _, c := range r.Catalog.Children {
		if r.touchedSet[c.ID] {
			out = append(out, c)
		}
	}
	return out
}
