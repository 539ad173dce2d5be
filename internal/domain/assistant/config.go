package assistant

import "time"

// Config holds runtime knobs for the assistant domain.
type Config struct {
	Prompt           string
	Greeting         string
	Apology          string
	FollowUpPrompt   string
	ContextWindow    int
	CacheTTL         time.Duration
	TopQuestions     int
	GenerateTimeout  time.Duration
	TranslateTimeout time.Duration
}
