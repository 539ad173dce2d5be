package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
	"github.com/campushelp/canvas-assistant/internal/infra/knowledgerepo"
	apperrors "github.com/campushelp/canvas-assistant/pkg/errors"
)

type stubGenerator struct {
	answer string
	err    error
	calls  int
	prompt string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

type stubTranslator struct {
	lang         string
	detectErr    error
	translated   map[string]string
	translateErr error
	detectCalls  int
}

func (t *stubTranslator) Detect(_ context.Context, _ string) (string, float64, error) {
	t.detectCalls++
	if t.detectErr != nil {
		return "", 0, t.detectErr
	}
	return t.lang, 0.9, nil
}

func (t *stubTranslator) Translate(_ context.Context, text, targetLang string) (string, error) {
	if t.translateErr != nil {
		return "", t.translateErr
	}
	if out, ok := t.translated[targetLang+"|"+text]; ok {
		return out, nil
	}
	return "[" + targetLang + "] " + text, nil
}

func testConfig() Config {
	return Config{
		Prompt:           DefaultPrompt,
		Greeting:         DefaultGreeting,
		Apology:          DefaultApology,
		FollowUpPrompt:   DefaultFollowUp,
		ContextWindow:    3,
		CacheTTL:         time.Hour,
		TopQuestions:     10,
		GenerateTimeout:  time.Second,
		TranslateTimeout: time.Second,
	}
}

func newTestService(repo knowledge.Repository, generator Generator, translator Translator) Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(testConfig(), repo, nil, generator, translator, logger)
}

func TestResolveMissThenHit(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	gen := &stubGenerator{answer: "Check the Assignments section. Deadlines show per course"}
	svc := newTestService(repo, gen, nil)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, Request{Question: "What are the assignment deadlines?"})
	require.NoError(t, err)
	require.Equal(t, SourceGenerated, first.Source)
	require.NotNil(t, first.ResponseID)
	require.Equal(t, "en", first.ResponseLang)
	require.NotEmpty(t, first.SessionID)
	require.Equal(t, 1, gen.calls)
	require.NotNil(t, first.TokenUsage)
	require.Positive(t, first.TokenUsage.PromptTokens)

	stored, found, err := repo.FindExact(ctx, "what are the assignment deadlines?")
	require.NoError(t, err)
	require.True(t, found, "record persisted under the lower-cased question")
	require.EqualValues(t, 0, stored.TimesAsked)
	require.True(t, strings.HasPrefix(stored.Answer, "- "), "persisted answer is formatted: %q", stored.Answer)

	second, err := svc.Resolve(ctx, Request{Question: "What are the assignment deadlines?", SessionID: first.SessionID})
	require.NoError(t, err)
	require.Equal(t, SourceStore, second.Source)
	require.Equal(t, 1, gen.calls, "no second generation call")
	require.Equal(t, stored.Answer, second.Answer, "stored hit served verbatim")
	require.Equal(t, *first.ResponseID, *second.ResponseID)

	after, _, err := repo.Get(ctx, stored.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, after.TimesAsked)
}

func TestResolveSimilarMatch(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	seeded, err := repo.Create(context.Background(), "where can i see my grades?", "- Open the Grades section.")
	require.NoError(t, err)

	gen := &stubGenerator{answer: "unused"}
	svc := newTestService(repo, gen, nil)

	resp, err := svc.Resolve(context.Background(), Request{Question: "grades"})
	require.NoError(t, err)
	require.Equal(t, SourceStore, resp.Source)
	require.Equal(t, seeded.Answer, resp.Answer)
	require.Zero(t, gen.calls)
}

func TestResolveGenerationFailureServesApology(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	gen := &stubGenerator{err: errors.New("upstream unavailable")}
	svc := newTestService(repo, gen, nil)

	resp, err := svc.Resolve(context.Background(), Request{Question: "How do I submit a quiz?"})
	require.NoError(t, err, "upstream failure never propagates")
	require.Equal(t, SourceFallback, resp.Source)
	require.Nil(t, resp.ResponseID)
	require.Equal(t, DefaultApology, resp.Answer)
	require.Equal(t, "en", resp.ResponseLang)

	_, found, err := repo.FindExact(context.Background(), "how do i submit a quiz?")
	require.NoError(t, err)
	require.False(t, found, "nothing persisted on the fallback path")
}

func TestResolveGreetingShortcut(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	gen := &stubGenerator{answer: "unused"}
	svc := newTestService(repo, gen, nil)

	resp, err := svc.Resolve(context.Background(), Request{Question: "Hello", SessionID: "s1"})
	require.NoError(t, err)
	require.Equal(t, SourceGreeting, resp.Source)
	require.Equal(t, DefaultGreeting, resp.Answer)
	require.Nil(t, resp.ResponseID)
	require.Zero(t, gen.calls)

	turns, err := repo.RecentTurns(context.Background(), "s1", 3)
	require.NoError(t, err)
	require.Len(t, turns, 1)
}

func TestResolveGreetingSkipsTranslation(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	gen := &stubGenerator{answer: "unused"}
	translator := &stubTranslator{lang: "es"}
	svc := newTestService(repo, gen, translator)

	// "hola" is in the shortcut list; the fixed greeting is served as stored,
	// without a detection or translation round trip.
	resp, err := svc.Resolve(context.Background(), Request{Question: "Hola"})
	require.NoError(t, err)
	require.Equal(t, SourceGreeting, resp.Source)
	require.Equal(t, DefaultGreeting, resp.Answer)
	require.Equal(t, "en", resp.ResponseLang)
	require.Zero(t, translator.detectCalls)
	require.Zero(t, gen.calls)
}

func TestResolveEmptyQuestion(t *testing.T) {
	svc := newTestService(knowledgerepo.NewMemoryRepository(), &stubGenerator{}, nil)
	_, err := svc.Resolve(context.Background(), Request{Question: "   "})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestResolveDetectFailureDefaultsToEnglish(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	gen := &stubGenerator{answer: "Answer text"}
	translator := &stubTranslator{detectErr: errors.New("detector down")}
	svc := newTestService(repo, gen, translator)

	resp, err := svc.Resolve(context.Background(), Request{Question: "Where is the syllabus?"})
	require.NoError(t, err)
	require.Equal(t, "en", resp.ResponseLang)
	require.Equal(t, SourceGenerated, resp.Source)
}

func TestResolveTranslatesInAndOut(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	gen := &stubGenerator{answer: "Open the Grades section"}
	translator := &stubTranslator{
		lang: "es",
		translated: map[string]string{
			"en|¿Dónde están mis notas?": "Where are my grades?",
		},
	}
	svc := newTestService(repo, gen, translator)

	resp, err := svc.Resolve(context.Background(), Request{Question: "¿Dónde están mis notas?"})
	require.NoError(t, err)
	require.Equal(t, "es", resp.ResponseLang)
	require.Contains(t, gen.prompt, "Where are my grades?", "generator sees the translated question")
	require.True(t, strings.HasPrefix(resp.Answer, "[es] "), "answer translated back: %q", resp.Answer)

	// The record is keyed by the original, untranslated question.
	_, found, err := repo.FindExact(context.Background(), "¿dónde están mis notas?")
	require.NoError(t, err)
	require.True(t, found)
}

func TestResolveTranslateFailureFallsBackToOriginalText(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	gen := &stubGenerator{answer: "Some answer"}
	translator := &stubTranslator{lang: "fr", translateErr: errors.New("translator down")}
	svc := newTestService(repo, gen, translator)

	resp, err := svc.Resolve(context.Background(), Request{Question: "Où sont mes notes?"})
	require.NoError(t, err)
	require.Equal(t, SourceGenerated, resp.Source)
	require.Contains(t, gen.prompt, "Où sont mes notes?", "untranslated question used after inbound failure")
	require.Equal(t, "fr", resp.ResponseLang)
}

type duplicateOnCreateRepo struct {
	knowledge.Repository
}

func (r *duplicateOnCreateRepo) Create(_ context.Context, _, _ string) (knowledge.QARecord, error) {
	return knowledge.QARecord{}, knowledge.ErrDuplicateQuestion
}

func TestResolveDuplicateRaceResolvesAsHit(t *testing.T) {
	inner := knowledgerepo.NewMemoryRepository()
	seeded, err := inner.Create(context.Background(), "what is a module?", "- A module groups course content.")
	require.NoError(t, err)

	repo := &duplicateOnCreateRepo{Repository: inner}
	gen := &stubGenerator{answer: "A module groups things"}
	svc := newTestService(repo, gen, nil)

	resp, err := svc.Resolve(context.Background(), Request{Question: "What is a module?"})
	require.NoError(t, err)
	require.Equal(t, SourceStore, resp.Source)
	require.Equal(t, seeded.Answer, resp.Answer)
	require.NotNil(t, resp.ResponseID)
	require.Equal(t, seeded.ID, *resp.ResponseID)
}

func TestSubmitFeedbackUnknownID(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	svc := newTestService(repo, &stubGenerator{}, nil)

	_, err := svc.SubmitFeedback(context.Background(), FeedbackRequest{ResponseID: 777, IsPositive: true})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	require.Contains(t, err.Error(), "Invalid response ID")
	require.Empty(t, repo.Events(), "no event persisted for unknown id")
}

func TestSubmitFeedbackUpdatesScore(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	record, err := repo.Create(context.Background(), "q?", "a")
	require.NoError(t, err)

	svc := newTestService(repo, &stubGenerator{}, nil)
	result, err := svc.SubmitFeedback(context.Background(), FeedbackRequest{
		ResponseID: record.ID,
		IsPositive: true,
		SessionID:  "s1",
		Metadata:   map[string]any{"screen": "chat"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, result.PositiveFeedback)
	require.InDelta(t, knowledge.PriorityScore(1, 0), result.PriorityScore, 1e-9)
	require.Len(t, repo.Events(), 1)
}

func TestSubmitFeedbackValidation(t *testing.T) {
	svc := newTestService(knowledgerepo.NewMemoryRepository(), &stubGenerator{}, nil)

	_, err := svc.SubmitFeedback(context.Background(), FeedbackRequest{ResponseID: 0, IsPositive: true})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	oversized := make(map[string]any, maxMetadataEntries+1)
	for i := 0; i <= maxMetadataEntries; i++ {
		oversized[strings.Repeat("k", i+1)] = i
	}
	_, err = svc.SubmitFeedback(context.Background(), FeedbackRequest{ResponseID: 1, IsPositive: true, Metadata: oversized})
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func TestResolveUsesSessionContextInPrompt(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	require.NoError(t, repo.AppendTurn(context.Background(), knowledge.ConversationTurn{
		SessionID:   "s9",
		UserMessage: "how do i open a course?",
		BotResponse: "- Use the Dashboard.",
	}))

	gen := &stubGenerator{answer: "Use the course navigation menu"}
	svc := newTestService(repo, gen, nil)

	_, err := svc.Resolve(context.Background(), Request{Question: "And where are announcements?", SessionID: "s9"})
	require.NoError(t, err)
	require.Contains(t, gen.prompt, "User: how do i open a course?")
	require.Contains(t, gen.prompt, "Bot: - Use the Dashboard.")
}

func TestTopQuestionsListing(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	ctx := context.Background()
	popular, err := repo.Create(ctx, "popular?", "a")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "rare?", "b")
	require.NoError(t, err)
	require.NoError(t, repo.IncrementAsked(ctx, popular.ID))

	svc := newTestService(repo, &stubGenerator{}, nil)
	items, err := svc.TopQuestions(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, items)
	require.Equal(t, "popular?", items[0].Question)
}
