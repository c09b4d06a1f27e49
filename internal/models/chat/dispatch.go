package chat

import (
	"github.com/graphrag-query/go-graphrag-query/internal/models/provider"
)

// Config selects and parameterizes a chat backend, mirroring the teacher's
// embedder Config: a Source-like provider name plus connection details.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
}

// New dispatches to the configured provider's Model implementation,
// auto-detecting from BaseURL when Provider is unset — same routing shape
// as the teacher's NewEmbedder switch.
func New(cfg Config) (Model, error) {
	name := provider.Name(cfg.Provider)
	if name == "" {
		name = provider.DetectProvider(cfg.BaseURL)
	}

	switch name {
	case provider.Ollama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = provider.Get(provider.Ollama).DefaultBaseURL
		}
		return NewOllamaChat(baseURL, cfg.Model)
	default:
		return NewOpenAIChat(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	}
}
