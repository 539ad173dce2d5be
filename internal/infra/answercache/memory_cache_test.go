package answercache

import (
	"context"
	"testing"
	"time"

	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	record := knowledge.QARecord{ID: 1, Question: "where can i see my grades?", Answer: "- Open Grades."}

	if err := cache.Save(ctx, record, time.Hour); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, ok, err := cache.Get(ctx, record.Question)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got.Answer != record.Answer {
		t.Fatalf("expected %q got %q", record.Answer, got.Answer)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	record := knowledge.QARecord{ID: 1, Question: "q?", Answer: "a"}

	if err := cache.Save(ctx, record, time.Nanosecond); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := cache.Get(ctx, record.Question); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	if err := cache.Save(ctx, knowledge.QARecord{ID: 1, Question: "q?", Answer: "a"}, 0); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "q?"); ok {
		t.Fatal("expected miss after invalidation")
	}
}
