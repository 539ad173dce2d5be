package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
	apperrors "github.com/campushelp/canvas-assistant/pkg/errors"
	"github.com/campushelp/canvas-assistant/pkg/metrics"
	"github.com/campushelp/canvas-assistant/pkg/util"
)

// Service exposes the question-resolution and feedback capabilities.
type Service interface {
	Resolve(ctx context.Context, req Request) (Response, error)
	SubmitFeedback(ctx context.Context, req FeedbackRequest) (FeedbackResult, error)
	TopQuestions(ctx context.Context) ([]TopQuestion, error)
	RankedAnswers(ctx context.Context) ([]knowledge.QARecord, error)
	InvalidateCache(ctx context.Context) error
}

const (
	maxMetadataEntries = 32
	maxMetadataBytes   = 8 << 10
)

type service struct {
	cfg        Config
	repo       knowledge.Repository
	cache      AnswerCache
	generator  Generator
	translator Translator
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires up the assistant domain.
func NewService(cfg Config, repo knowledge.Repository, cache AnswerCache, generator Generator, translator Translator, logger *slog.Logger) Service {
	return &service{
		cfg:        cfg,
		repo:       repo,
		cache:      cache,
		generator:  generator,
		translator: translator,
		logger:     logger.With("component", "assistant.service"),
		now:        util.NowUTC,
	}
}

// Resolve runs the lookup/generation state machine for one question. Every
// upstream failure on the generation path degrades to the canned apology; the
// caller always receives a readable answer.
func (s *service) Resolve(ctx context.Context, req Request) (Response, error) {
	started := s.now()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "question cannot be empty", nil)
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	normalized := knowledge.NormalizeQuestion(question)

	if isGreeting(normalized) {
		s.recordTurn(ctx, sessionID, question, s.cfg.Greeting, knowledge.DefaultLanguage, started)
		return Response{
			Answer:       s.cfg.Greeting,
			ResponseLang: knowledge.DefaultLanguage,
			SessionID:    sessionID,
			Source:       SourceGreeting,
			DurationMs:   s.elapsedMs(started),
		}, nil
	}

	if record, ok := s.lookup(ctx, normalized); ok {
		return s.serveStored(ctx, record, sessionID, question, started), nil
	}

	return s.serveGenerated(ctx, sessionID, question, normalized, started)
}

// lookup tries the read-through cache, then exact, then substring containment.
// A cache error is never fatal; the repository stays the system of record.
func (s *service) lookup(ctx context.Context, normalized string) (knowledge.QARecord, bool) {
	if s.cache != nil {
		record, ok, err := s.cache.Get(ctx, normalized)
		if err != nil {
			s.logger.Warn("answer cache lookup failed", "error", err)
		} else if ok {
			return record, true
		}
	}

	record, found, err := s.repo.FindExact(ctx, normalized)
	if err != nil {
		s.logger.Warn("exact lookup failed", "error", err)
	}
	if !found {
		record, found, err = s.repo.FindSimilar(ctx, normalized)
		if err != nil {
			s.logger.Warn("similar lookup failed", "error", err)
		}
	}
	if !found {
		return knowledge.QARecord{}, false
	}
	s.cacheSave(ctx, record)
	return record, true
}

// serveStored is the HIT terminal state: bump the usage counter, record the
// turn, and return the stored answer verbatim. Stored answers were formatted
// at creation time, so no second formatting pass runs here.
func (s *service) serveStored(ctx context.Context, record knowledge.QARecord, sessionID, question string, started time.Time) Response {
	if err := s.repo.IncrementAsked(ctx, record.ID); err != nil {
		s.logger.Warn("times-asked increment failed", "id", record.ID, "error", err)
	}
	s.recordTurn(ctx, sessionID, question, record.Answer, knowledge.DefaultLanguage, started)
	id := record.ID
	return Response{
		Answer:       record.Answer,
		ResponseID:   &id,
		ResponseLang: knowledge.DefaultLanguage,
		SessionID:    sessionID,
		Source:       SourceStore,
		DurationMs:   s.elapsedMs(started),
	}
}

// serveGenerated is the MISS pipeline: detect language, translate inbound,
// generate with session context, format, translate outbound, persist.
func (s *service) serveGenerated(ctx context.Context, sessionID, question, normalized string, started time.Time) (Response, error) {
	lang := s.detectLanguage(ctx, question)

	englishQuestion := question
	if lang != knowledge.DefaultLanguage {
		englishQuestion = s.translateOrKeep(ctx, question, knowledge.DefaultLanguage)
	}

	contextBlock := s.renderSessionContext(ctx, sessionID)
	prompt := buildPrompt(s.cfg.Prompt, contextBlock, englishQuestion)

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
	defer cancel()
	raw, err := s.generator.Generate(genCtx, prompt)
	if err != nil {
		s.logger.Error("generation failed", "error", err)
		return s.serveApology(ctx, sessionID, lang, started), nil
	}

	answer := FormatAnswer(raw, s.cfg.FollowUpPrompt)
	if lang != knowledge.DefaultLanguage {
		answer = s.translateOrKeep(ctx, answer, lang)
	}

	usage := metrics.EstimateUsage(prompt, raw)

	record, err := s.repo.Create(ctx, normalized, answer)
	if errors.Is(err, knowledge.ErrDuplicateQuestion) {
		// Lost a create race against a concurrent miss: the stored row wins.
		if stored, found, lookupErr := s.repo.FindExact(ctx, normalized); lookupErr == nil && found {
			s.cacheSave(ctx, stored)
			return s.serveStored(ctx, stored, sessionID, question, started), nil
		}
	}
	if err != nil {
		// The answer is already in hand; losing the row must not cost the
		// user their response.
		s.logger.Error("failed to persist generated answer", "error", err)
		s.recordTurn(ctx, sessionID, question, answer, lang, started)
		return Response{
			Answer:       answer,
			ResponseLang: lang,
			SessionID:    sessionID,
			Source:       SourceGenerated,
			DurationMs:   s.elapsedMs(started),
			TokenUsage:   &usage,
		}, nil
	}

	s.cacheSave(ctx, record)
	s.recordTurn(ctx, sessionID, question, answer, lang, started)

	id := record.ID
	return Response{
		Answer:       answer,
		ResponseID:   &id,
		ResponseLang: lang,
		SessionID:    sessionID,
		Source:       SourceGenerated,
		DurationMs:   s.elapsedMs(started),
		TokenUsage:   &usage,
	}, nil
}

// serveApology is the SERVE_ERROR terminal state. The response still reads as
// a success to the caller; only the nil response id reveals the failure.
func (s *service) serveApology(ctx context.Context, sessionID, lang string, started time.Time) Response {
	apology := s.cfg.Apology
	if lang != knowledge.DefaultLanguage {
		apology = s.translateOrKeep(ctx, apology, lang)
	}
	return Response{
		Answer:       apology,
		ResponseLang: lang,
		SessionID:    sessionID,
		Source:       SourceFallback,
		DurationMs:   s.elapsedMs(started),
	}
}

func (s *service) SubmitFeedback(ctx context.Context, req FeedbackRequest) (FeedbackResult, error) {
	if req.ResponseID <= 0 {
		return FeedbackResult{}, apperrors.Wrap(apperrors.CodeInvalidInput, "responseId is required", nil)
	}
	if err := validateMetadata(req.Metadata); err != nil {
		return FeedbackResult{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid metadata", err)
	}

	event := knowledge.FeedbackEvent{
		QAID:       req.ResponseID,
		IsPositive: req.IsPositive,
		SessionID:  req.SessionID,
		Metadata:   req.Metadata,
		CreatedAt:  s.now(),
	}
	record, err := s.repo.ApplyFeedback(ctx, event)
	if errors.Is(err, knowledge.ErrNotFound) {
		return FeedbackResult{}, apperrors.Wrap(apperrors.CodeNotFound, "Invalid response ID", err)
	}
	if err != nil {
		return FeedbackResult{}, apperrors.Wrap(apperrors.CodeStorage, "failed to apply feedback", err)
	}
	s.cacheSave(ctx, record)

	return FeedbackResult{
		QAID:             record.ID,
		PositiveFeedback: record.PositiveFeedback,
		NegativeFeedback: record.NegativeFeedback,
		PriorityScore:    record.PriorityScore,
	}, nil
}

func (s *service) TopQuestions(ctx context.Context) ([]TopQuestion, error) {
	records, err := s.repo.RankedByTimesAsked(ctx, s.cfg.TopQuestions)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to load top questions", err)
	}
	items := make([]TopQuestion, 0, len(records))
	for _, record := range records {
		items = append(items, TopQuestion{Question: record.Question, TimesAsked: record.TimesAsked})
	}
	return items, nil
}

func (s *service) RankedAnswers(ctx context.Context) ([]knowledge.QARecord, error) {
	records, err := s.repo.RankedByPriority(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorage, "failed to load ranked answers", err)
	}
	return records, nil
}

func (s *service) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		return apperrors.Wrap(apperrors.CodeStorage, "failed to invalidate answer cache", err)
	}
	return nil
}

// detectLanguage is best-effort; any failure means "en".
func (s *service) detectLanguage(ctx context.Context, text string) string {
	if s.translator == nil {
		return knowledge.DefaultLanguage
	}
	detectCtx, cancel := context.WithTimeout(ctx, s.cfg.TranslateTimeout)
	defer cancel()
	lang, _, err := s.translator.Detect(detectCtx, text)
	if err != nil || strings.TrimSpace(lang) == "" {
		if err != nil {
			s.logger.Warn("language detection failed", "error", err)
		}
		return knowledge.DefaultLanguage
	}
	return strings.ToLower(strings.TrimSpace(lang))
}

// translateOrKeep returns the original text whenever translation fails.
func (s *service) translateOrKeep(ctx context.Context, text, targetLang string) string {
	if s.translator == nil {
		return text
	}
	translateCtx, cancel := context.WithTimeout(ctx, s.cfg.TranslateTimeout)
	defer cancel()
	translated, err := s.translator.Translate(translateCtx, text, targetLang)
	if err != nil || strings.TrimSpace(translated) == "" {
		if err != nil {
			s.logger.Warn("translation failed", "target", targetLang, "error", err)
		}
		return text
	}
	return translated
}

func (s *service) renderSessionContext(ctx context.Context, sessionID string) string {
	turns, err := s.repo.RecentTurns(ctx, sessionID, s.cfg.ContextWindow)
	if err != nil {
		s.logger.Warn("recent turns fetch failed", "session", sessionID, "error", err)
		turns = nil
	}
	return renderContext(turns)
}

func (s *service) recordTurn(ctx context.Context, sessionID, userMessage, botResponse, lang string, started time.Time) {
	turn := knowledge.ConversationTurn{
		SessionID:       sessionID,
		UserMessage:     userMessage,
		BotResponse:     botResponse,
		UserLanguage:    lang,
		ResponseSeconds: s.now().Sub(started).Seconds(),
		CreatedAt:       s.now(),
	}
	if err := s.repo.AppendTurn(ctx, turn); err != nil {
		s.logger.Warn("conversation turn append failed", "session", sessionID, "error", err)
	}
}

func (s *service) cacheSave(ctx context.Context, record knowledge.QARecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, record, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("answer cache save failed", "id", record.ID, "error", err)
	}
}

func (s *service) elapsedMs(started time.Time) int64 {
	return s.now().Sub(started).Milliseconds()
}

func validateMetadata(metadata map[string]any) error {
	if len(metadata) == 0 {
		return nil
	}
	if len(metadata) > maxMetadataEntries {
		return fmt.Errorf("metadata has %d entries, limit is %d", len(metadata), maxMetadataEntries)
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("metadata is not serializable: %w", err)
	}
	if len(payload) > maxMetadataBytes {
		return fmt.Errorf("metadata payload is %d bytes, limit is %d", len(payload), maxMetadataBytes)
	}
	return nil
}
