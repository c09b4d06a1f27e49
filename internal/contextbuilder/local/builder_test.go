package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrag-query/go-graphrag-query/internal/types"
	"github.com/graphrag-query/go-graphrag-query/internal/vectorstore"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) { return []float32{1, 0}, nil }
func (stubEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (stubEmbedder) ModelName() string { return "stub" }
func (stubEmbedder) Dimensions() int   { return 2 }

func TestBuildContext_EmptyQuerySelectsTopKByRank(t *testing.T) {
	entities := []types.Entity{
		{ID: "a", Title: "A", Rank: 5},
		{ID: "b", Title: "B", Rank: 3},
		{ID: "c", Title: "C", Rank: 1},
	}
	store := vectorstore.NewMemStore("entities")
	b := NewBuilder(entities, nil, nil, nil, nil, store, stubEmbedder{})

	selected, err := b.mapQueryToEntities(context.Background(), "", nil, nil, EmbeddingKeyID, 2, 2)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "A", selected[0].Title)
	assert.Equal(t, "B", selected[1].Title)
}

func TestBuildContext_BudgetSlicing(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxTokens = 1000
	opts.CommunityProp = 0.3
	opts.TextUnitProp = 0.2

	maxTokens := opts.MaxTokens
	community := int(float64(maxTokens) * opts.CommunityProp)
	textUnit := int(float64(maxTokens) * opts.TextUnitProp)
	local := int(float64(maxTokens) - float64(maxTokens)*opts.CommunityProp - float64(maxTokens)*opts.TextUnitProp)

	assert.Equal(t, 300, community)
	assert.Equal(t, 200, textUnit)
	assert.Equal(t, 500, local)
}

func TestBuildContext_RejectsBudgetOverOne(t *testing.T) {
	store := vectorstore.NewMemStore("entities")
	b := NewBuilder(nil, nil, nil, nil, nil, store, stubEmbedder{})
	opts := DefaultOptions()
	opts.CommunityProp = 0.7
	opts.TextUnitProp = 0.5

	_, _, err := b.BuildContext(context.Background(), "q", nil, opts)
	require.Error(t, err)
}

func TestBuildContext_EmptySelectionYieldsHeaderOnlyTables(t *testing.T) {
	store := vectorstore.NewMemStore("entities")
	b := NewBuilder(nil, nil, nil, nil, nil, store, stubEmbedder{})
	opts := DefaultOptions()
	opts.TopKMappedEntities = 5

	text, data, err := b.BuildContext(context.Background(), "", nil, opts)
	require.NoError(t, err)
	assert.Contains(t, text, "Entities")
	view, ok := data["sources"]
	require.True(t, ok)
	assert.True(t, view.Empty())
}
