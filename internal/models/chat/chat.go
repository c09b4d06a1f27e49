// Package chat defines the Chat LLM client contract (C3) shared by the
// OpenAI-wire-compatible and Ollama backends, and the option set that
// replaces the source's runtime kwarg-signature forwarding with an
// explicit, enumerable struct (per the re-architecture notes).
package chat

import "context"

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// Options enumerates the passthrough fields accepted from a request. A
// nil/zero field is not sent. Each backend sends only the fields its
// buildRequest copies: OpenAIChat sends Temperature, TopP, MaxTokens,
// FrequencyPenalty, PresencePenalty, Stop, Seed, User and LogitBias;
// OllamaChat sends Temperature, TopP and MaxTokens. The remaining fields are
// accepted and not forwarded.
type Options struct {
	Temperature         *float32
	TopP                *float32
	MaxTokens           *int
	MaxCompletionTokens *int
	FrequencyPenalty    *float32
	PresencePenalty     *float32
	Stop                []string
	Seed                *int
	ResponseFormat      map[string]any
	ToolChoice          any
	Tools               []any
	LogitBias           map[string]int
	LogProbs            *bool
	TopLogProbs         *int
	User                string
	StreamOptions       map[string]any
	ServiceTier         string
	Store               *bool
	ParallelToolCalls   *bool

	// JSONMode forces the upstream call into strict JSON output, used by
	// the global engine's map phase.
	JSONMode bool
}

// Usage mirrors the OpenAI usage block.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a single non-streaming chat completion.
type Response struct {
	Content      string
	FinishReason string
	Usage        *Usage
}

// StreamChunk is one delta of a streaming chat completion.
type StreamChunk struct {
	Delta        string
	FinishReason string // "" until the terminal chunk
	Usage        *Usage // populated only on the terminal chunk, if at all
	Err          error
}

// Model is the capability interface the search engines depend on. Sync and
// async callers share this one contract; "async" in this Go port means
// "call from a goroutine with a cancellable context", not a distinct type.
type Model interface {
	Chat(ctx context.Context, messages []Message, opts Options) (*Response, error)
	ChatStream(ctx context.Context, messages []Message, opts Options) (<-chan StreamChunk, error)
	ModelName() string
}
