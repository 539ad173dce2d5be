package knowledge

import "strings"

// NormalizeQuestion lower-cases a question and collapses runs of whitespace.
// Punctuation is preserved so stored keys stay exactly as an admin typed them.
func NormalizeQuestion(q string) string {
	lowered := strings.ToLower(strings.TrimSpace(q))
	return strings.Join(strings.Fields(lowered), " ")
}
