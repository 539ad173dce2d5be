package knowledgerepo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
)

// MemoryRepository is a mutex-guarded knowledge.Repository used for tests and
// as the provider fallback when no Postgres DSN is configured. The ids slice
// preserves insertion order so FindSimilar keeps the storage-order tie-break.
type MemoryRepository struct {
	mu          sync.RWMutex
	nextID      int64
	nextEventID int64
	records     map[int64]knowledge.QARecord
	ids         []int64
	byQuestion  map[string]int64
	events      []knowledge.FeedbackEvent
	turns       map[string][]knowledge.ConversationTurn
	nowFn       func() time.Time
}

// NewMemoryRepository constructs a repository backed by process memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:      1,
		nextEventID: 1,
		records:     make(map[int64]knowledge.QARecord),
		byQuestion:  make(map[string]int64),
		turns:       make(map[string][]knowledge.ConversationTurn),
		nowFn:       time.Now,
	}
}

// FindExact implements knowledge.Repository.
func (r *MemoryRepository) FindExact(_ context.Context, question string) (knowledge.QARecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byQuestion[question]
	if !ok {
		return knowledge.QARecord{}, false, nil
	}
	return r.records[id], true, nil
}

// FindSimilar implements knowledge.Repository: substring containment in either
// direction, first match in insertion order.
func (r *MemoryRepository) FindSimilar(_ context.Context, question string) (knowledge.QARecord, bool, error) {
	if question == "" {
		return knowledge.QARecord{}, false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.ids {
		stored := r.records[id]
		if strings.Contains(stored.Question, question) || strings.Contains(question, stored.Question) {
			return stored, true, nil
		}
	}
	return knowledge.QARecord{}, false, nil
}

// Get implements knowledge.Repository.
func (r *MemoryRepository) Get(_ context.Context, id int64) (knowledge.QARecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	return record, ok, nil
}

// Create implements knowledge.Repository.
func (r *MemoryRepository) Create(_ context.Context, question, answer string) (knowledge.QARecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byQuestion[question]; exists {
		return knowledge.QARecord{}, knowledge.ErrDuplicateQuestion
	}
	now := r.nowFn()
	record := knowledge.QARecord{
		ID:        r.nextID,
		Question:  question,
		Answer:    answer,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.nextID++
	r.records[record.ID] = record
	r.ids = append(r.ids, record.ID)
	r.byQuestion[question] = record.ID
	return record, nil
}

// IncrementAsked implements knowledge.Repository.
func (r *MemoryRepository) IncrementAsked(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return knowledge.ErrNotFound
	}
	record.TimesAsked++
	record.UpdatedAt = r.nowFn()
	r.records[id] = record
	return nil
}

// ApplyFeedback implements knowledge.Repository. Event persistence and the
// counter/score update happen under one lock so a concurrent reader never
// observes an intermediate state.
func (r *MemoryRepository) ApplyFeedback(_ context.Context, event knowledge.FeedbackEvent) (knowledge.QARecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[event.QAID]
	if !ok {
		return knowledge.QARecord{}, knowledge.ErrNotFound
	}
	event.ID = r.nextEventID
	r.nextEventID++
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.nowFn()
	}
	r.events = append(r.events, event)

	if event.IsPositive {
		record.PositiveFeedback++
	} else {
		record.NegativeFeedback++
	}
	record.PriorityScore = knowledge.PriorityScore(record.PositiveFeedback, record.NegativeFeedback)
	record.UpdatedAt = r.nowFn()
	r.records[event.QAID] = record
	return record, nil
}

// RankedByPriority implements knowledge.Repository.
func (r *MemoryRepository) RankedByPriority(_ context.Context) ([]knowledge.QARecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]knowledge.QARecord, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.records[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriorityScore > out[j].PriorityScore
	})
	return out, nil
}

// RankedByTimesAsked implements knowledge.Repository.
func (r *MemoryRepository) RankedByTimesAsked(_ context.Context, limit int) ([]knowledge.QARecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]knowledge.QARecord, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.records[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimesAsked > out[j].TimesAsked
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AppendTurn implements knowledge.Repository.
func (r *MemoryRepository) AppendTurn(_ context.Context, turn knowledge.ConversationTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if turn.UserLanguage == "" {
		turn.UserLanguage = knowledge.DefaultLanguage
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = r.nowFn()
	}
	turn.ID = int64(len(r.turns[turn.SessionID]) + 1)
	r.turns[turn.SessionID] = append(r.turns[turn.SessionID], turn)
	return nil
}

// RecentTurns implements knowledge.Repository, most recent first.
func (r *MemoryRepository) RecentTurns(_ context.Context, sessionID string, limit int) ([]knowledge.ConversationTurn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.turns[sessionID]
	if limit <= 0 || limit > len(stored) {
		limit = len(stored)
	}
	out := make([]knowledge.ConversationTurn, 0, limit)
	for i := len(stored) - 1; i >= len(stored)-limit; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

// Events returns a copy of the persisted feedback events, for tests.
func (r *MemoryRepository) Events() []knowledge.FeedbackEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]knowledge.FeedbackEvent(nil), r.events...)
}

var _ knowledge.Repository = (*MemoryRepository)(nil)
