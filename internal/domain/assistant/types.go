package assistant

import (
	"context"
	"time"

	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
	"github.com/campushelp/canvas-assistant/pkg/metrics"
)

// Source identifies which resolution path produced an answer.
type Source string

const (
	// SourceStore means the answer came from an existing knowledge record.
	SourceStore Source = "store"
	// SourceGenerated means the answer was produced by the generation backend.
	SourceGenerated Source = "generated"
	// SourceGreeting means the greeting shortcut answered without a lookup.
	SourceGreeting Source = "greeting"
	// SourceFallback means the canned apology was served after an upstream failure.
	SourceFallback Source = "fallback"
)

// Request is a single user question bound from the HTTP transport.
type Request struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId"`
}

// Response is returned for every resolved question. ResponseID is nil only on
// the fallback path.
type Response struct {
	Answer       string              `json:"answer"`
	ResponseID   *int64              `json:"responseId"`
	ResponseLang string              `json:"responseLang"`
	SessionID    string              `json:"sessionId"`
	Source       Source              `json:"source"`
	DurationMs   int64               `json:"durationMs,omitempty"`
	TokenUsage   *metrics.TokenUsage `json:"tokenUsage,omitempty"`
}

// FeedbackRequest carries one user reaction to a delivered answer.
type FeedbackRequest struct {
	ResponseID int64          `json:"responseId"`
	IsPositive bool           `json:"isPositive"`
	SessionID  string         `json:"sessionId"`
	Metadata   map[string]any `json:"metadata"`
}

// FeedbackResult reports the record state after the feedback was applied.
type FeedbackResult struct {
	QAID             int64   `json:"qaId"`
	PositiveFeedback int64   `json:"positiveFeedback"`
	NegativeFeedback int64   `json:"negativeFeedback"`
	PriorityScore    float64 `json:"priorityScore"`
}

// TopQuestion is one entry of the most-asked listing.
type TopQuestion struct {
	Question   string `json:"question"`
	TimesAsked int64  `json:"timesAsked"`
}

// Generator is the external generation collaborator: one prompt in, one
// answer out, fallible.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Translator is the external language collaborator. Both calls are
// best-effort; the resolver falls back to the untranslated text on failure.
type Translator interface {
	Detect(ctx context.Context, text string) (lang string, confidence float64, err error)
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// AnswerCache is an optional read-through cache keyed by the normalized
// question. It is never the system of record and must be droppable at any
// time without data loss.
type AnswerCache interface {
	Get(ctx context.Context, question string) (knowledge.QARecord, bool, error)
	Save(ctx context.Context, record knowledge.QARecord, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
