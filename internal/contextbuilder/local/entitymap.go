package local

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// EmbeddingVectorStoreKey selects which field of a matched vector-store
// document resolves back to an Entity: its id, or its title.
type EmbeddingVectorStoreKey string

const (
	EmbeddingKeyID    EmbeddingVectorStoreKey = "id"
	EmbeddingKeyTitle EmbeddingVectorStoreKey = "title"
)

// mapQueryToEntities implements step 2 of the local-context algorithm,
// ported from the source's map_query_to_entities: embed the query, search
// the entity-description store oversampled by oversampleScaler, resolve
// hits back to entities, drop excluded names, and prepend included names
// (every matching entity, not just the first).
func (b *Builder) mapQueryToEntities(
	ctx context.Context,
	query string,
	includeNames, excludeNames []string,
	key EmbeddingVectorStoreKey,
	k, oversampleScaler int,
) ([]types.Entity, error) {
	var matched []types.Entity

	if query != "" {
		results, err := b.vectorStore.SearchByText(ctx, query, b.embedText, k*oversampleScaler, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			value := r.Document.ID
			if key == EmbeddingKeyTitle {
				if t, ok := r.Document.Attributes["title"].(string); ok {
					value = t
				}
			}
			if e, ok := b.getEntityByKey(key, value); ok {
				matched = append(matched, e)
			}
		}
	} else {
		all := make([]types.Entity, 0, len(b.entities))
		for _, e := range b.entities {
			all = append(all, e)
		}
		sort.Slice(all, func(i, j int) bool { return all[i].Rank > all[j].Rank })
		if len(all) > k {
			all = all[:k]
		}
		matched = all
	}

	if len(excludeNames) > 0 {
		excluded := lo.SliceToMap(excludeNames, func(n string) (string, struct{}) { return n, struct{}{} })
		matched = lo.Filter(matched, func(e types.Entity, _ int) bool {
			_, drop := excluded[e.Title]
			return !drop
		})
	}

	var included []types.Entity
	for _, name := range includeNames {
		included = append(included, b.entitiesByTitle[name]...)
	}

	return append(included, matched...), nil
}

func (b *Builder) getEntityByKey(key EmbeddingVectorStoreKey, value string) (types.Entity, bool) {
	if key == EmbeddingKeyTitle {
		if es, ok := b.entitiesByTitle[value]; ok && len(es) > 0 {
			return es[0], true
		}
		return types.Entity{}, false
	}
	e, ok := b.entities[value]
	return e, ok
}

func (b *Builder) embedText(ctx context.Context, text string) ([]float32, error) {
	return b.embedder.Embed(ctx, text)
}
