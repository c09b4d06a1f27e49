// Package local implements the Local Search Engine (C7): build context,
// render the system prompt with safe-format substitution, invoke the chat
// LLM, and return a unified (streaming or not, verbose or not) result.
package local

import (
	"context"
	"time"

	localctx "github.com/graphrag-query/go-graphrag-query/internal/contextbuilder/local"
	"github.com/graphrag-query/go-graphrag-query/internal/conversation"
	"github.com/graphrag-query/go-graphrag-query/internal/logger"
	"github.com/graphrag-query/go-graphrag-query/internal/models/chat"
	"github.com/graphrag-query/go-graphrag-query/internal/template"
	"github.com/graphrag-query/go-graphrag-query/internal/types"
)

const DefaultSysPrompt = `---Role---

You are a helpful assistant responding to questions about data in the tables provided.

---Goal---

Generate a response that responds to the user's question, summarizing all information in the input data tables appropriate for the response length and format, incorporating any relevant general knowledge.

---Data tables---

{context_data}
`

// Engine is the Local Search Engine.
type Engine struct {
	ChatModel       chat.Model
	ContextBuilder  *localctx.Builder
	SysPrompt       string
	Logger          logger.Logger
}

// New returns an Engine with the default system prompt unless overridden.
func New(chatModel chat.Model, builder *localctx.Builder) *Engine {
	return &Engine{ChatModel: chatModel, ContextBuilder: builder, SysPrompt: DefaultSysPrompt}
}

// SearchOptions controls a single search call.
type SearchOptions struct {
	ContextOptions localctx.Options
	ChatOptions    chat.Options
	SysPrompt      string // overrides Engine.SysPrompt if non-empty
	Verbose        bool
}

// Search builds context, renders the prompt, and invokes the chat LLM
// non-streaming. It always returns the verbose result; opts.Verbose is not
// read.
func (e *Engine) Search(
	ctx context.Context,
	query string,
	history *conversation.History,
	opts SearchOptions,
) (*types.SearchResultVerbose, error) {
	created := time.Now()

	contextText, contextData, err := e.ContextBuilder.BuildContext(ctx, query, history, opts.ContextOptions)
	if err != nil {
		return nil, err
	}

	sysPrompt := opts.SysPrompt
	if sysPrompt == "" {
		sysPrompt = e.SysPrompt
	}
	if !template.HasPlaceholder(sysPrompt, "context_data") && e.Logger != nil {
		e.Logger.Warnf("local search system prompt does not contain {context_data}")
	}
	prompt := template.Render(sysPrompt, map[string]string{"context_data": contextText})

	messages := []chat.Message{{Role: "system", Content: prompt}}
	if history != nil {
		for _, m := range history.ToMessages() {
			messages = append(messages, chat.Message{Role: m.Role, Content: m.Content})
		}
	}
	messages = append(messages, chat.Message{Role: "user", Content: query})

	resp, err := e.ChatModel.Chat(ctx, messages, opts.ChatOptions)
	if err != nil {
		return nil, err
	}

	result := &types.SearchResultVerbose{
		SearchResult: types.SearchResult{
			Model:        e.ChatModel.ModelName(),
			FinishReason: resp.FinishReason,
			Content:      resp.Content,
		},
		ContextText:    contextText,
		ContextData:    contextData,
		CompletionTime: time.Since(created).Seconds(),
		LLMCalls:       1,
	}
	if resp.Usage != nil {
		result.Usage = &types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return result, nil
}

// SearchStream invokes the chat LLM in streaming mode, returning a channel
// of chunks. Context/timing/usage fields are populated only on the
// terminal chunk (FinishReason != ""), matching the verbose streaming
// contract.
func (e *Engine) SearchStream(
	ctx context.Context,
	query string,
	history *conversation.History,
	opts SearchOptions,
) (<-chan types.SearchResultChunkVerbose, error) {
	created := time.Now()

	contextText, contextData, err := e.ContextBuilder.BuildContext(ctx, query, history, opts.ContextOptions)
	if err != nil {
		return nil, err
	}

	sysPrompt := opts.SysPrompt
	if sysPrompt == "" {
		sysPrompt = e.SysPrompt
	}
	prompt := template.Render(sysPrompt, map[string]string{"context_data": contextText})

	messages := []chat.Message{{Role: "system", Content: prompt}}
	if history != nil {
		for _, m := range history.ToMessages() {
			messages = append(messages, chat.Message{Role: m.Role, Content: m.Content})
		}
	}
	messages = append(messages, chat.Message{Role: "user", Content: query})

	upstream, err := e.ChatModel.ChatStream(ctx, messages, opts.ChatOptions)
	if err != nil {
		return nil, err
	}

	out := make(chan types.SearchResultChunkVerbose)
	go func() {
		defer close(out)
		for chunk := range upstream {
			if chunk.Err != nil {
				return
			}
			result := types.SearchResultChunkVerbose{
				SearchResultChunk: types.SearchResultChunk{
					Model:        e.ChatModel.ModelName(),
					FinishReason: chunk.FinishReason,
					Delta:        chunk.Delta,
				},
			}
			if chunk.FinishReason != "" {
				ct := contextText
				cd := time.Since(created).Seconds()
				calls := 1
				result.ContextText = &ct
				result.ContextData = contextData
				result.CompletionTime = &cd
				result.LLMCalls = &calls
				if chunk.Usage != nil {
					result.Usage = &types.Usage{
						PromptTokens:     chunk.Usage.PromptTokens,
						CompletionTokens: chunk.Usage.CompletionTokens,
						TotalTokens:      chunk.Usage.TotalTokens,
					}
				}
			}
			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
