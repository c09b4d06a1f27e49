package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemStore is an in-process linear-scan cosine-similarity store. It is the
// default backend for small corpora and for tests, grounded the same way
// the source's embedded LanceDB backend stands in for a full ANN server
// deployment when one isn't warranted.
type MemStore struct {
	collectionName string

	mu   sync.RWMutex
	docs []Document
}

// NewMemStore returns an empty MemStore for the named collection.
func NewMemStore(collectionName string) *MemStore {
	return &MemStore{collectionName: collectionName}
}

func (s *MemStore) Load(_ context.Context, docs []Document, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if overwrite {
		s.docs = append([]Document{}, docs...)
		return nil
	}
	s.docs = append(s.docs, docs...)
	return nil
}

func (s *MemStore) SearchByVector(_ context.Context, vec []float32, k int, filter *IDFilter) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.docs))
	for _, d := range s.docs {
		if !filter.allows(d.ID) {
			continue
		}
		results = append(results, SearchResult{Document: d, Score: cosineSimilarity(vec, d.Vector)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *MemStore) SearchByText(ctx context.Context, text string, embed EmbedFunc, k int, filter *IDFilter) ([]SearchResult, error) {
	vec, err := embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.SearchByVector(ctx, vec, k, filter)
}

func (s *MemStore) FilterByID(ids []string) *IDFilter {
	return NewIDFilter(ids)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
