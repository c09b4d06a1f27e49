package chat

import (
	"context"
	"net/http"
	"net/url"

	ollamaapi "github.com/ollama/ollama/api"

	ierrors "github.com/graphrag-query/go-graphrag-query/internal/errors"
)

// OllamaChat implements Model against a local Ollama daemon, adapted from
// the teacher's ollama chat wrapper: same buildChatRequest/callback shape,
// generalized to this package's Message/Options/StreamChunk types instead
// of the teacher's types.ChatResponse/types.StreamResponse.
type OllamaChat struct {
	client *ollamaapi.Client
	model  string
}

// NewOllamaChat builds a client against baseURL (e.g. http://localhost:11434).
func NewOllamaChat(baseURL, model string) (*OllamaChat, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &OllamaChat{client: ollamaapi.NewClient(u, http.DefaultClient), model: model}, nil
}

func (c *OllamaChat) ModelName() string { return c.model }

func (c *OllamaChat) convertMessages(messages []Message) []ollamaapi.Message {
	out := make([]ollamaapi.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, ollamaapi.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *OllamaChat) buildRequest(messages []Message, opts Options, stream bool) *ollamaapi.ChatRequest {
	streamFlag := stream
	req := &ollamaapi.ChatRequest{
		Model:    c.model,
		Messages: c.convertMessages(messages),
		Stream:   &streamFlag,
		Options:  map[string]any{},
	}
	if opts.Temperature != nil {
		req.Options["temperature"] = *opts.Temperature
	}
	if opts.TopP != nil {
		req.Options["top_p"] = *opts.TopP
	}
	if opts.MaxTokens != nil {
		req.Options["num_predict"] = *opts.MaxTokens
	}
	if opts.JSONMode {
		req.Format = []byte(`"json"`)
	}
	return req
}

func (c *OllamaChat) Chat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	req := c.buildRequest(messages, opts, false)

	var content, finishReason string
	var promptTokens, evalCount int
	err := c.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
		content = resp.Message.Content
		if resp.Done {
			finishReason = "stop"
			promptTokens = resp.PromptEvalCount
			evalCount = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ErrUpstreamChat, err)
	}
	return &Response{
		Content:      content,
		FinishReason: finishReason,
		Usage: &Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: evalCount - promptTokens,
			TotalTokens:      evalCount,
		},
	}, nil
}

func (c *OllamaChat) ChatStream(ctx context.Context, messages []Message, opts Options) (<-chan StreamChunk, error) {
	req := c.buildRequest(messages, opts, true)
	out := make(chan StreamChunk)

	go func() {
		defer close(out)
		err := c.client.Chat(ctx, req, func(resp ollamaapi.ChatResponse) error {
			chunk := StreamChunk{Delta: resp.Message.Content}
			if resp.Done {
				chunk.FinishReason = "stop"
				chunk.Usage = &Usage{
					PromptTokens:     resp.PromptEvalCount,
					CompletionTokens: resp.EvalCount - resp.PromptEvalCount,
					TotalTokens:      resp.EvalCount,
				}
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			out <- StreamChunk{Err: ierrors.Wrap(ierrors.ErrUpstreamChat, err)}
		}
	}()
	return out, nil
}
