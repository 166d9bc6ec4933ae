// Package memory implements an in-memory index.Index for tests and dry
// runs. It mirrors the visibility semantics of a real index: staged changes
// become observable only after Commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"stacbuild/internal/index"
)

// Index is a map-backed index.Index.
type Index struct {
	staged    map[string]index.Document
	deletions []string // staged id or prefix deletions
	committed map[string]index.Document

	// Ops records every operation in order, for assertions on the strict
	// delete-add-commit-optimize sequencing.
	Ops []string

	Commits   int
	Optimizes int
}

// New returns an empty in-memory index.
func New() *Index {
	return &Index{
		staged:    map[string]index.Document{},
		committed: map[string]index.Document{},
	}
}

// Add stages a document.
func (m *Index) Add(ctx context.Context, doc index.Document) error {
	id := doc.UniqueID()
	if id == "" {
		return fmt.Errorf("memory: document has no uniqueid")
	}
	m.staged[id] = doc
	m.Ops = append(m.Ops, "add "+id)
	return nil
}

// DeleteByID stages deletion of one document.
func (m *Index) DeleteByID(ctx context.Context, id string) error {
	m.deletions = append(m.deletions, id)
	m.Ops = append(m.Ops, "delete id "+id)
	return nil
}

// DeleteByQuery stages deletion by "uniqueid:<prefix>*" query.
func (m *Index) DeleteByQuery(ctx context.Context, q string) error {
	prefix, ok := strings.CutPrefix(q, "uniqueid:")
	if !ok {
		return fmt.Errorf("memory: unsupported query %q", q)
	}
	prefix, ok = strings.CutSuffix(prefix, "*")
	if !ok {
		return fmt.Errorf("memory: unsupported query %q", q)
	}
	m.deletions = append(m.deletions, prefix+"*")
	m.Ops = append(m.Ops, "delete query "+q)
	return nil
}

// Commit applies staged deletions, then staged additions.
func (m *Index) Commit(ctx context.Context) error {
	for _, d := range m.deletions {
		if prefix, ok := strings.CutSuffix(d, "*"); ok {
			for id := range m.committed {
				if strings.HasPrefix(id, prefix) {
					delete(m.committed, id)
				}
			}
			continue
		}
		delete(m.committed, d)
	}
	m.deletions = nil
	for id, doc := range m.staged {
		m.committed[id] = doc
	}
	m.staged = map[string]index.Document{}
	m.Commits++
	m.Ops = append(m.Ops, "commit")
	return nil
}

// Optimize is a no-op beyond bookkeeping.
func (m *Index) Optimize(ctx context.Context) error {
	m.Optimizes++
	m.Ops = append(m.Ops, "optimize")
	return nil
}

// Get returns the committed document for the unique id.
func (m *Index) Get(id string) (index.Document, bool) {
	d, ok := m.committed[id]
	return d, ok
}

// IDs lists the committed unique ids, sorted.
func (m *Index) IDs() []string {
	out := make([]string, 0, len(m.committed))
	for id := range m.committed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len is the number of committed documents.
func (m *Index) Len() int {
	return len(m.committed)
}
