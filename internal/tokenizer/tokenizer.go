// Package tokenizer wraps pkoukk/tiktoken-go to provide the num_tokens and
// token-window chunking primitives the context builders and embedding
// client need, using the cl100k_base encoding by default.
package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const DefaultEncoding = "cl100k_base"

var (
	once    sync.Once
	encoder *tiktoken.Tiktoken
	encErr  error
)

func get() (*tiktoken.Tiktoken, error) {
	once.Do(func() {
		encoder, encErr = tiktoken.GetEncoding(DefaultEncoding)
	})
	return encoder, encErr
}

// NumTokens returns the token count of s under the default encoding. If the
// encoder cannot be loaded, it falls back to a conservative whitespace
// estimate rather than failing — token budgeting is advisory, not a hard
// error surface.
func NumTokens(s string) int {
	enc, err := get()
	if err != nil {
		return fallbackCount(s)
	}
	return len(enc.Encode(s, nil, nil))
}

func fallbackCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

// ChunkText splits text into windows of at most maxTokens tokens each,
// preserving order. Used by the embedding client to token-chunk long input
// before calling the upstream embeddings endpoint.
func ChunkText(text string, maxTokens int) []string {
	if maxTokens <= 0 {
		return []string{text}
	}
	enc, err := get()
	if err != nil {
		return []string{text}
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return []string{text}
	}
	chunks := make([]string, 0, (len(tokens)/maxTokens)+1)
	for i := 0; i < len(tokens); i += maxTokens {
		end := i + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, enc.Decode(tokens[i:end]))
	}
	return chunks
}
