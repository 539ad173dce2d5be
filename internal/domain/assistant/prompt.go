package assistant

import (
	"fmt"
	"strings"

	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
)

// noContextMarker keeps the prompt structure stable when a session has no
// history yet.
const noContextMarker = "No previous conversation."

// renderContext turns the most-recent-first window into chronological
// alternating User/Bot lines.
func renderContext(turns []knowledge.ConversationTurn) string {
	if len(turns) == 0 {
		return noContextMarker
	}
	var b strings.Builder
	for i := len(turns) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "User: %s\n", turns[i].UserMessage)
		fmt.Fprintf(&b, "Bot: %s\n", turns[i].BotResponse)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildPrompt(preamble, contextBlock, question string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(preamble))
	b.WriteString("\n\nPrevious conversation:\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
