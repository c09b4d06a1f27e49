package streaming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

func TestFrame_RendersDataPrefixAndTrailer(t *testing.T) {
	frame := Frame(types.ChatCompletionChunkResponse{ID: "chatcmpl-x"})
	s := string(frame)
	assert.True(t, strings.HasPrefix(s, "data: "))
	assert.True(t, strings.HasSuffix(s, "\n\n"))
	assert.Contains(t, s, `"chatcmpl-x"`)
}

func TestDone_IsLiteralDoneEvent(t *testing.T) {
	assert.Equal(t, "data: [DONE]\n\n", string(Done()))
}

func TestNewChatCompletionID_HasExpectedPrefix(t *testing.T) {
	id := NewChatCompletionID()
	assert.True(t, strings.HasPrefix(id, "chat-"))
	assert.Len(t, id, len("chat-")+32)
}

func TestToChunkResponse_FinishReasonNilUntilTerminal(t *testing.T) {
	resp := ToChunkResponse("id", 0, types.SearchResultChunkVerbose{
		SearchResultChunk: types.SearchResultChunk{Delta: "hi"},
	})
	assert.Nil(t, resp.Choices[0].FinishReason)

	final := ToChunkResponse("id", 0, types.SearchResultChunkVerbose{
		SearchResultChunk: types.SearchResultChunk{FinishReason: "stop"},
	})
	assert.NotNil(t, final.Choices[0].FinishReason)
	assert.Equal(t, "stop", *final.Choices[0].FinishReason)
}
