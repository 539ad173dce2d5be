package knowledge

import "context"

// Repository is the persistence boundary owning all three record kinds. It is
// the single source of truth shared by every request worker; implementations
// must make IncrementAsked and ApplyFeedback per-record atomic and enforce the
// unique question constraint inside the store itself.
type Repository interface {
	// FindExact matches a normalized question literally.
	FindExact(ctx context.Context, question string) (QARecord, bool, error)
	// FindSimilar matches by substring containment in either direction and
	// returns the first candidate in storage order. The match is deliberately
	// unranked.
	FindSimilar(ctx context.Context, question string) (QARecord, bool, error)
	// Get fetches a record by id.
	Get(ctx context.Context, id int64) (QARecord, bool, error)
	// Create inserts a new pair; ErrDuplicateQuestion when the normalized
	// question already exists.
	Create(ctx context.Context, question, answer string) (QARecord, error)
	// IncrementAsked bumps the monotonic usage counter; ErrNotFound on an
	// unknown id.
	IncrementAsked(ctx context.Context, id int64) error
	// ApplyFeedback persists the event and updates the referenced record's
	// counters and priority score in one atomic step; ErrNotFound when the
	// event references an unknown record.
	ApplyFeedback(ctx context.Context, event FeedbackEvent) (QARecord, error)
	// RankedByPriority lists records by descending priority score.
	RankedByPriority(ctx context.Context) ([]QARecord, error)
	// RankedByTimesAsked lists the most asked records, descending.
	RankedByTimesAsked(ctx context.Context, limit int) ([]QARecord, error)
	// AppendTurn stores one conversation exchange.
	AppendTurn(ctx context.Context, turn ConversationTurn) error
	// RecentTurns returns up to limit turns for a session, most recent first.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]ConversationTurn, error)
}
