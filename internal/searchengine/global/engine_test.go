package global

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	globalctx "github.com/graphrag-query/go-graphrag-query/internal/contextbuilder/global"
	"github.com/graphrag-query/go-graphrag-query/internal/models/chat"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// fakeChatModel is a minimal chat.Model test double that counts calls and
// answers every map-phase call with a single zero-score point, so that
// reduce's filtering always yields no survivors.
type fakeChatModel struct {
	chatCalls   int
	streamCalls int
}

func (f *fakeChatModel) ModelName() string { return "fake" }

func (f *fakeChatModel) Chat(_ context.Context, _ []chat.Message, _ chat.Options) (*chat.Response, error) {
	f.chatCalls++
	return &chat.Response{Content: `{"points":[{"answer":"a","score":0}]}`, FinishReason: "stop"}, nil
}

func (f *fakeChatModel) ChatStream(_ context.Context, _ []chat.Message, _ chat.Options) (<-chan chat.StreamChunk, error) {
	f.streamCalls++
	ch := make(chan chat.StreamChunk, 1)
	ch <- chat.StreamChunk{Delta: "x", FinishReason: "stop"}
	close(ch)
	return ch, nil
}

func newTestEngine(model *fakeChatModel) *Engine {
	builder := globalctx.NewBuilder([]types.CommunityReport{
		{ID: "c1", Title: "t", Summary: "s", Rank: 1},
	}, nil)
	e := New(model, builder)
	e.Concurrency = 1
	return e
}

func TestParseMapResponse_EnvelopedPoints(t *testing.T) {
	content := `{"points":[{"answer":"a","score":80},{"answer":"b","score":10}]}`
	points := parseMapResponse(content, 2)
	require.Len(t, points, 2)
	assert.Equal(t, 2, points[0].Analyst)
	assert.Equal(t, "a", points[0].Answer)
	assert.Equal(t, 80.0, points[0].Score)
}

func TestParseMapResponse_TopLevelArray(t *testing.T) {
	content := `[{"answer":"a","score":50}]`
	points := parseMapResponse(content, 0)
	require.Len(t, points, 1)
	assert.Equal(t, "a", points[0].Answer)
}

func TestParseMapResponse_RepairsTruncatedJSON(t *testing.T) {
	content := `{"points":[{"answer":"a","score":50}`
	points := parseMapResponse(content, 0)
	require.Len(t, points, 1)
	assert.Equal(t, "a", points[0].Answer)
}

func TestParseMapResponse_UnrecoverableFallsBackToEmptyPoint(t *testing.T) {
	points := parseMapResponse("not json at all {{{", 3)
	require.Len(t, points, 1)
	assert.Equal(t, "", points[0].Answer)
	assert.Equal(t, 3, points[0].Analyst)
}

func TestReduce_NoSurvivingPointsWithoutGeneralKnowledgeReportsNoData(t *testing.T) {
	e := New(nil, nil)
	out := e.reduce(nil, SearchOptions{})
	assert.True(t, out.noData)
	assert.Empty(t, out.systemPrompt)
	assert.Empty(t, out.reportData)
}

func TestReduce_SortsByScoreDescending(t *testing.T) {
	e := New(nil, nil)
	points := []types.KeyPoint{
		{Analyst: 0, Answer: "low", Score: 10},
		{Analyst: 1, Answer: "high", Score: 90},
	}
	out := e.reduce(points, SearchOptions{})
	require.False(t, out.noData)
	highIdx := indexOf(out.reportData, "high")
	lowIdx := indexOf(out.reportData, "low")
	require.GreaterOrEqual(t, highIdx, 0)
	require.GreaterOrEqual(t, lowIdx, 0)
	assert.Less(t, highIdx, lowIdx)
}

func TestReduce_RendersOneBasedAnalystAndUnroundedScore(t *testing.T) {
	e := New(nil, nil)
	out := e.reduce([]types.KeyPoint{{Analyst: 0, Answer: "a", Score: 12.5}}, SearchOptions{})
	require.False(t, out.noData)
	assert.Contains(t, out.reportData, "----Analyst 1----")
	assert.Contains(t, out.reportData, "Importance score: 12.5")
}

func TestSearch_NoSurvivingPointsShortCircuitsWithoutReduceCall(t *testing.T) {
	model := &fakeChatModel{}
	e := newTestEngine(model)

	result, err := e.Search(context.Background(), "q", nil, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, NoDataAnswer, result.Content)
	assert.Equal(t, 1, result.LLMCalls)
	assert.Equal(t, 1, model.chatCalls)
}

func TestSearchStream_NoSurvivingPointsShortCircuitsWithoutReduceCall(t *testing.T) {
	model := &fakeChatModel{}
	e := newTestEngine(model)

	ch, err := e.SearchStream(context.Background(), "q", nil, SearchOptions{})
	require.NoError(t, err)

	var chunks []types.SearchResultChunkVerbose
	for c := range ch {
		chunks = append(chunks, c)
	}
	require.Len(t, chunks, 1)
	assert.Equal(t, NoDataAnswer, chunks[0].Delta)
	assert.Equal(t, "stop", chunks[0].FinishReason)
	require.NotNil(t, chunks[0].LLMCalls)
	assert.Equal(t, 1, *chunks[0].LLMCalls)
	assert.Equal(t, 0, model.streamCalls)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
