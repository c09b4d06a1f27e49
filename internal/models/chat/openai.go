package chat

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	ierrors "github.com/graphrag-query/go-graphrag-query/internal/errors"
)

// OpenAIChat implements Model against any OpenAI Chat Completions compatible
// endpoint (OpenAI itself, or a compatible gateway).
type OpenAIChat struct {
	client *openai.Client
	model  string
}

// NewOpenAIChat builds a client for baseURL (empty = api.openai.com).
func NewOpenAIChat(apiKey, baseURL, model string) *OpenAIChat {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIChat{client: openai.NewClientWithConfig(cfg), model: model}
}

func (c *OpenAIChat) ModelName() string { return c.model }

func (c *OpenAIChat) buildRequest(messages []Message, opts Options, stream bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: convertMessages(messages),
		Stream:   stream,
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.TopP != nil {
		req.TopP = *opts.TopP
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.FrequencyPenalty != nil {
		req.FrequencyPenalty = *opts.FrequencyPenalty
	}
	if opts.PresencePenalty != nil {
		req.PresencePenalty = *opts.PresencePenalty
	}
	if len(opts.Stop) > 0 {
		req.Stop = opts.Stop
	}
	if opts.Seed != nil {
		req.Seed = opts.Seed
	}
	if opts.User != "" {
		req.User = opts.User
	}
	if opts.LogitBias != nil {
		req.LogitBias = opts.LogitBias
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return req
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (c *OpenAIChat) Chat(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	req := c.buildRequest(messages, opts, false)
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ErrUpstreamChat, err)
	}
	if len(resp.Choices) == 0 {
		return nil, ierrors.Wrap(ierrors.ErrUpstreamChat, fmt.Errorf("no choices returned"))
	}
	choice := resp.Choices[0]
	return &Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *OpenAIChat) ChatStream(ctx context.Context, messages []Message, opts Options) (<-chan StreamChunk, error) {
	req := c.buildRequest(messages, opts, true)
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, ierrors.Wrap(ierrors.ErrUpstreamChat, err)
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				out <- StreamChunk{Err: ierrors.Wrap(ierrors.ErrUpstreamChat, err)}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			choice := resp.Choices[0]
			chunk := StreamChunk{Delta: choice.Delta.Content, FinishReason: string(choice.FinishReason)}
			if resp.Usage != nil {
				chunk.Usage = &Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				}
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.FinishReason != "" {
				return
			}
		}
	}()
	return out, nil
}
