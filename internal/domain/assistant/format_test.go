package assistant

import (
	"strings"
	"testing"
)

const testFollowUp = "Is there anything specific you'd like me to clarify?"

func TestFormatAnswerStripsEmphasis(t *testing.T) {
	got := FormatAnswer("- Go to **Grades**\n- Pick a course?", testFollowUp)
	if strings.Contains(got, "**") {
		t.Fatalf("emphasis markers survived: %q", got)
	}
}

func TestFormatAnswerRewritesBulletGlyphs(t *testing.T) {
	got := FormatAnswer("* First step\n• Second step?", testFollowUp)
	want := "- First step\n- Second step?"
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestFormatAnswerBulletizesParagraph(t *testing.T) {
	got := FormatAnswer("Open the course. Click Grades. Done", testFollowUp)
	want := "- Open the course.\n- Click Grades.\n- Done.\n\n- " + testFollowUp
	if got != want {
		t.Fatalf("expected %q got %q", want, got)
	}
}

func TestFormatAnswerAppendsFollowUpOnlyWhenNoQuestion(t *testing.T) {
	withQuestion := FormatAnswer("- Check the syllabus\n- Need more detail?", testFollowUp)
	if strings.Contains(withQuestion, testFollowUp) {
		t.Fatalf("follow-up appended despite existing question: %q", withQuestion)
	}

	withoutQuestion := FormatAnswer("- Check the syllabus", testFollowUp)
	if !strings.HasSuffix(withoutQuestion, "- "+testFollowUp) {
		t.Fatalf("follow-up missing: %q", withoutQuestion)
	}
}

func TestFormatAnswerIdempotent(t *testing.T) {
	inputs := []string{
		"Open the course. Click Grades",
		"* Mixed glyphs\nPlain line with **bold**",
		"- Already bulleted\n- Already asking?",
	}
	for _, input := range inputs {
		once := FormatAnswer(input, testFollowUp)
		twice := FormatAnswer(once, testFollowUp)
		if once != twice {
			t.Fatalf("not idempotent for %q:\nonce:  %q\ntwice: %q", input, once, twice)
		}
	}
}

func TestFormatAnswerEmptyEmphasisStripIsNoOp(t *testing.T) {
	in := "- No markers here?"
	if got := FormatAnswer(in, testFollowUp); got != in {
		t.Fatalf("expected %q got %q", in, got)
	}
}
