// Package vectorstore is the minimal facade (C2) the query engine depends
// on for entity-embedding similarity search: load, search by vector, search
// by text (via an embedder callback), and filter by id.
package vectorstore

import "context"

// Document is a vector-store record: an entity description embedding plus
// enough of the source text/attributes to resolve back to a domain record.
type Document struct {
	ID         string
	Text       string
	Vector     []float32
	Attributes map[string]any
}

// SearchResult pairs a matched document with its similarity score.
// Score is in [-1, 1]; higher is more similar (1 - |cosine distance|).
type SearchResult struct {
	Document Document
	Score    float64
}

// EmbedFunc embeds a single piece of text, used by SearchByText.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// IDFilter is a disjunctive id-set applied to a single search call. Scoping
// the filter to the call (rather than mutable store state) resolves the
// spec's open question about per-request vs per-engine filter lifetime —
// see DESIGN.md.
type IDFilter struct {
	IDs map[string]struct{}
}

// NewIDFilter builds a filter matching any of the given ids.
func NewIDFilter(ids []string) *IDFilter {
	f := &IDFilter{IDs: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		f.IDs[id] = struct{}{}
	}
	return f
}

func (f *IDFilter) allows(id string) bool {
	if f == nil {
		return true
	}
	_, ok := f.IDs[id]
	return ok
}

// Store is the vector-store facade contract.
type Store interface {
	Load(ctx context.Context, docs []Document, overwrite bool) error
	SearchByVector(ctx context.Context, vec []float32, k int, filter *IDFilter) ([]SearchResult, error)
	SearchByText(ctx context.Context, text string, embed EmbedFunc, k int, filter *IDFilter) ([]SearchResult, error)
	FilterByID(ids []string) *IDFilter
}
