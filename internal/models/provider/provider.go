// Package provider is a small registry of upstream chat/embedding
// provider profiles, adapted from the teacher repo's provider-registry
// pattern: each provider registers itself in init() and the registry is
// used to auto-detect a provider from a base URL or an explicit name.
package provider

import "strings"

// Name identifies a provider profile.
type Name string

const (
	OpenAI    Name = "openai"
	Ollama    Name = "ollama"
	Generic   Name = "generic"
)

// Info describes a provider profile: its default base URL and whatever
// validation its config requires.
type Info struct {
	Name           Name
	DefaultBaseURL string
	Validate       func(baseURL, apiKey string) error
}

var registry = map[Name]Info{}

// Register adds a provider profile. Called from each provider's init().
func Register(info Info) { registry[info.Name] = info }

// Get returns the registered Info for name, or the Generic fallback.
func Get(name Name) Info {
	if info, ok := registry[name]; ok {
		return info
	}
	return registry[Generic]
}

// DetectProvider infers a provider Name from a base URL's host, falling
// back to Generic (OpenAI-wire-compatible) when nothing matches.
func DetectProvider(baseURL string) Name {
	lower := strings.ToLower(baseURL)
	switch {
	case strings.Contains(lower, "api.openai.com"):
		return OpenAI
	case strings.Contains(lower, "ollama"), strings.Contains(lower, "localhost:11434"):
		return Ollama
	default:
		return Generic
	}
}

func init() {
	Register(Info{Name: Generic, DefaultBaseURL: ""})
	Register(Info{Name: OpenAI, DefaultBaseURL: "https://api.openai.com/v1", Validate: func(_, apiKey string) error {
		if apiKey == "" {
			return errMissingAPIKey
		}
		return nil
	}})
	Register(Info{Name: Ollama, DefaultBaseURL: "http://localhost:11434"})
}

var errMissingAPIKey = &ValidationError{Reason: "api key is required for this provider"}

// ValidationError is returned by a provider's Validate function.
type ValidationError struct{ Reason string }

func (e *ValidationError) Error() string { return e.Reason }
