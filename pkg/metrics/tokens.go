package metrics

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const estimatorEncoding = "cl100k_base"

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// CountTokens estimates how many tokens a prompt consumes. The Gemini tokenizer
// is not public, so a cl100k count is used as a close stand-in; when the
// encoding cannot be loaded a rune-based heuristic keeps the estimate usable.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(estimatorEncoding)
		if err == nil {
			encoding = enc
		}
	})
	if encoding == nil {
		return (utf8.RuneCountInString(text) + 3) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}

// EstimateUsage builds usage metrics for a prompt/completion pair.
func EstimateUsage(prompt, completion string) TokenUsage {
	usage := TokenUsage{
		PromptTokens:     CountTokens(prompt),
		CompletionTokens: CountTokens(completion),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}
