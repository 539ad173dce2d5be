package knowledge

import "time"

// QARecord is a stored question/answer pair with usage and feedback counters.
// Question is kept lower-cased with collapsed whitespace; PriorityScore is
// derived from the feedback counters and never set directly by callers.
type QARecord struct {
	ID               int64     `json:"id"`
	Question         string    `json:"question"`
	Answer           string    `json:"answer"`
	TimesAsked       int64     `json:"timesAsked"`
	PositiveFeedback int64     `json:"positiveFeedback"`
	NegativeFeedback int64     `json:"negativeFeedback"`
	PriorityScore    float64   `json:"priorityScore"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// FeedbackEvent records one user reaction to one delivered answer. Rows are
// immutable once written.
type FeedbackEvent struct {
	ID         int64          `json:"id"`
	QAID       int64          `json:"qaId"`
	IsPositive bool           `json:"isPositive"`
	SessionID  string         `json:"sessionId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// ConversationTurn is one exchange within a session, append-only.
type ConversationTurn struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"sessionId"`
	UserMessage     string    `json:"userMessage"`
	BotResponse     string    `json:"botResponse"`
	UserLanguage    string    `json:"userLanguage"`
	ResponseSeconds float64   `json:"responseTimeSeconds"`
	CreatedAt       time.Time `json:"createdAt"`
}

// DefaultLanguage is assumed whenever detection fails or is skipped.
const DefaultLanguage = "en"
