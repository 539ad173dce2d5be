package knowledgerepo

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
)

func TestCreateRejectsDuplicateQuestion(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.Create(ctx, "what are the assignment deadlines?", "- Check the Assignments section."); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := repo.Create(ctx, "what are the assignment deadlines?", "- Something else.")
	if !errors.Is(err, knowledge.ErrDuplicateQuestion) {
		t.Fatalf("expected ErrDuplicateQuestion got %v", err)
	}
}

func TestIncrementAskedUnknownID(t *testing.T) {
	repo := NewMemoryRepository()
	if err := repo.IncrementAsked(context.Background(), 42); !errors.Is(err, knowledge.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestApplyFeedbackUnknownIDPersistsNothing(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.ApplyFeedback(context.Background(), knowledge.FeedbackEvent{QAID: 99, IsPositive: true})
	if !errors.Is(err, knowledge.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
	if events := repo.Events(); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestApplyFeedbackKeepsScoreConsistent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	record, err := repo.Create(ctx, "where can i see my grades?", "- Open the Grades section.")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, positive := range []bool{true, true, false} {
		record, err = repo.ApplyFeedback(ctx, knowledge.FeedbackEvent{QAID: record.ID, IsPositive: positive})
		if err != nil {
			t.Fatalf("apply feedback failed: %v", err)
		}
		want := knowledge.PriorityScore(record.PositiveFeedback, record.NegativeFeedback)
		if math.Abs(record.PriorityScore-want) > 1e-9 {
			t.Fatalf("score drifted: got %v want %v", record.PriorityScore, want)
		}
	}
	if record.PositiveFeedback != 2 || record.NegativeFeedback != 1 {
		t.Fatalf("unexpected counters: +%d/-%d", record.PositiveFeedback, record.NegativeFeedback)
	}
	if events := repo.Events(); len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
}

func TestApplyFeedbackOrderIndependent(t *testing.T) {
	ctx := context.Background()
	orders := [][]bool{
		{true, true, false},
		{true, false, true},
		{false, true, true},
	}

	var scores []float64
	for _, order := range orders {
		repo := NewMemoryRepository()
		record, err := repo.Create(ctx, "q?", "a")
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		for _, positive := range order {
			record, err = repo.ApplyFeedback(ctx, knowledge.FeedbackEvent{QAID: record.ID, IsPositive: positive})
			if err != nil {
				t.Fatalf("apply feedback failed: %v", err)
			}
		}
		if record.PositiveFeedback != 2 || record.NegativeFeedback != 1 {
			t.Fatalf("order %v: unexpected counters +%d/-%d", order, record.PositiveFeedback, record.NegativeFeedback)
		}
		scores = append(scores, record.PriorityScore)
	}
	for _, score := range scores[1:] {
		if math.Abs(score-scores[0]) > 1e-9 {
			t.Fatalf("scores differ across orders: %v", scores)
		}
	}
}

func TestConcurrentFeedbackLosesNoIncrement(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	record, err := repo.Create(ctx, "q?", "a")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		positive := i%2 == 0
		go func() {
			defer wg.Done()
			if _, err := repo.ApplyFeedback(ctx, knowledge.FeedbackEvent{QAID: record.ID, IsPositive: positive}); err != nil {
				t.Errorf("apply feedback failed: %v", err)
			}
		}()
	}
	wg.Wait()

	final, _, err := repo.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if total := final.PositiveFeedback + final.NegativeFeedback; total != workers {
		t.Fatalf("lost increments: total %d want %d", total, workers)
	}
	want := knowledge.PriorityScore(final.PositiveFeedback, final.NegativeFeedback)
	if math.Abs(final.PriorityScore-want) > 1e-9 {
		t.Fatalf("score drifted: got %v want %v", final.PriorityScore, want)
	}
}

func TestConcurrentCreateSameQuestion(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	const workers = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, "what are the assignment deadlines?", "- Check Assignments.")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, knowledge.ErrDuplicateQuestion):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if created != 1 || duplicates != workers-1 {
		t.Fatalf("expected exactly one winner, got created=%d duplicates=%d", created, duplicates)
	}
}

func TestFindSimilarSubstringContainment(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	if _, err := repo.Create(ctx, "where can i see my grades?", "- Open Grades."); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	record, found, err := repo.FindSimilar(ctx, "grades")
	if err != nil || !found {
		t.Fatalf("expected match, found=%v err=%v", found, err)
	}
	if record.Question != "where can i see my grades?" {
		t.Fatalf("unexpected match: %q", record.Question)
	}

	// Containment works in the other direction too.
	_, found, err = repo.FindSimilar(ctx, "tell me where can i see my grades? please")
	if err != nil || !found {
		t.Fatalf("expected reverse containment match, found=%v err=%v", found, err)
	}
}

func TestFindSimilarStorageOrderTieBreak(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	first, _ := repo.Create(ctx, "how do i check grades online?", "a")
	if _, err := repo.Create(ctx, "can i export grades?", "b"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	record, found, err := repo.FindSimilar(ctx, "grades")
	if err != nil || !found {
		t.Fatalf("expected match, found=%v err=%v", found, err)
	}
	if record.ID != first.ID {
		t.Fatalf("expected first stored record %d, got %d", first.ID, record.ID)
	}
}

func TestRecentTurnsMostRecentFirstAndBounded(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	for _, msg := range []string{"one", "two", "three", "four"} {
		if err := repo.AppendTurn(ctx, knowledge.ConversationTurn{SessionID: "s1", UserMessage: msg, BotResponse: "ok"}); err != nil {
			t.Fatalf("append turn failed: %v", err)
		}
	}

	turns, err := repo.RecentTurns(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("recent turns failed: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	for i, want := range []string{"four", "three", "two"} {
		if turns[i].UserMessage != want {
			t.Fatalf("turn %d: expected %q got %q", i, want, turns[i].UserMessage)
		}
	}
}

func TestRankedListings(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	low, _ := repo.Create(ctx, "low?", "a")
	high, _ := repo.Create(ctx, "high?", "b")

	for i := 0; i < 3; i++ {
		if _, err := repo.ApplyFeedback(ctx, knowledge.FeedbackEvent{QAID: high.ID, IsPositive: true}); err != nil {
			t.Fatalf("apply feedback failed: %v", err)
		}
	}
	if _, err := repo.ApplyFeedback(ctx, knowledge.FeedbackEvent{QAID: low.ID, IsPositive: false}); err != nil {
		t.Fatalf("apply feedback failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.IncrementAsked(ctx, low.ID); err != nil {
			t.Fatalf("increment failed: %v", err)
		}
	}

	byPriority, err := repo.RankedByPriority(ctx)
	if err != nil {
		t.Fatalf("ranked by priority failed: %v", err)
	}
	if byPriority[0].ID != high.ID {
		t.Fatalf("expected high-scored record first, got %d", byPriority[0].ID)
	}

	byAsked, err := repo.RankedByTimesAsked(ctx, 1)
	if err != nil {
		t.Fatalf("ranked by times asked failed: %v", err)
	}
	if len(byAsked) != 1 || byAsked[0].ID != low.ID {
		t.Fatalf("expected most-asked record only, got %+v", byAsked)
	}
}
