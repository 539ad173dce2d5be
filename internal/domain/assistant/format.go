package assistant

import "strings"

// FormatAnswer normalizes raw generated text into the bullet-point shape every
// answer is served in: emphasis markers stripped, foreign bullet glyphs
// rewritten to "- ", paragraph text re-split into one bullet per sentence, and
// a follow-up question appended when the answer does not already ask one.
// Applying it twice yields the same bullet structure as applying it once.
func FormatAnswer(raw, followUp string) string {
	text := strings.ReplaceAll(raw, "**", "")
	text = strings.TrimSpace(text)

	lines := strings.Split(text, "\n")
	hasBullets := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") {
			hasBullets = true
			continue
		}
		if rest, ok := stripBulletGlyph(trimmed); ok {
			lines[i] = "- " + rest
			hasBullets = true
		}
	}
	text = strings.Join(lines, "\n")

	if !hasBullets {
		text = bulletizeSentences(text)
	}

	if !anyLineEndsWithQuestion(text) && followUp != "" {
		text += "\n\n- " + followUp
	}
	return text
}

func stripBulletGlyph(line string) (string, bool) {
	for _, glyph := range []string{"*", "•"} {
		if strings.HasPrefix(line, glyph) {
			return strings.TrimSpace(strings.TrimPrefix(line, glyph)), true
		}
	}
	return "", false
}

func bulletizeSentences(text string) string {
	fragments := strings.Split(text, ".")
	bullets := make([]string, 0, len(fragments))
	for _, fragment := range fragments {
		trimmed := strings.TrimSpace(fragment)
		if trimmed == "" {
			continue
		}
		bullets = append(bullets, "- "+trimmed+".")
	}
	return strings.Join(bullets, "\n")
}

func anyLineEndsWithQuestion(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasSuffix(strings.TrimSpace(line), "?") {
			return true
		}
	}
	return false
}
