// Package index keeps the search index in sync with the catalog: flattened
// documents for catalog, collection and item entities, and an ordered,
// idempotent synchronization per run (delete-stale, add-current, commit,
// optimize).
package index

import "context"

// Index is the search-index collaborator. All operations block; the
// pipeline is strictly sequential.
type Index interface {
	// Add stages a document for indexing, replacing any document with the
	// same unique id.
	Add(ctx context.Context, doc Document) error
	// DeleteByID stages deletion of the document with the given unique id.
	DeleteByID(ctx context.Context, id string) error
	// DeleteByQuery stages deletion of every document matching the query
	// (e.g. "uniqueid:item_X_*").
	DeleteByQuery(ctx context.Context, q string) error
	// Commit makes all staged changes visible.
	Commit(ctx context.Context) error
	// Optimize compacts the index.
	Optimize(ctx context.Context) error
}
