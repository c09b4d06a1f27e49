// Package streaming renders unified search result chunks as OpenAI-wire
// Server-Sent Events: each frame is `data: <json>\n\n`, terminated by a
// literal `data: [DONE]\n\n`.
package streaming

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

// NewChatCompletionID returns a fresh id of the form "chat-<32 hex>",
// generated once per request and reused across every chunk in the stream.
func NewChatCompletionID() string {
	return "chat-" + randomHex(16)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "00000000000000000000000000000000"[:n*2]
	}
	return hex.EncodeToString(buf)
}

// Frame renders one SSE data event carrying chunk as JSON.
func Frame(chunk types.ChatCompletionChunkResponse) []byte {
	body, err := json.Marshal(chunk)
	if err != nil {
		body = []byte(`{}`)
	}
	return []byte(fmt.Sprintf("data: %s\n\n", body))
}

// Done renders the terminal SSE event.
func Done() []byte {
	return []byte("data: [DONE]\n\n")
}

// ToChunkResponse projects a unified verbose stream chunk onto the
// OpenAI-wire chunk shape. finishReason is nil until the terminal chunk.
func ToChunkResponse(id string, created int64, result types.SearchResultChunkVerbose) types.ChatCompletionChunkResponse {
	var finishReason *string
	if result.FinishReason != "" {
		fr := result.FinishReason
		finishReason = &fr
	}
	return types.ChatCompletionChunkResponse{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   result.Model,
		Choices: []types.ChunkChoice{
			{
				Index:        0,
				FinishReason: finishReason,
				Delta:        types.ChunkDelta{Content: result.Delta},
			},
		},
		Usage: result.Usage,
	}
}

// ToCompletionResponse projects a unified verbose non-streaming result onto
// the OpenAI-wire response shape.
func ToCompletionResponse(id string, created int64, result *types.SearchResultVerbose) types.ChatCompletionResponse {
	finishReason := result.FinishReason
	return types.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion",
		Created: created,
		Model:   result.Model,
		Choices: []types.Choice{
			{
				Index:        0,
				FinishReason: &finishReason,
				Message:      &types.ChatCompletionMessage{Role: types.RoleAssistant, Content: result.Content},
			},
		},
		Usage: result.Usage,
	}
}
