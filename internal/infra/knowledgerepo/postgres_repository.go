package knowledgerepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
)

const uniqueViolation = "23505"

// PostgresRepository implements knowledge.Repository using pgx. The qa table
// carries a unique index on question; duplicate detection happens in the
// store, not through a prior existence check.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const qaColumns = `id, question, answer, times_asked, positive_feedback, negative_feedback, priority_score, created_at, updated_at`

// FindExact fetches by normalized question text.
func (r *PostgresRepository) FindExact(ctx context.Context, question string) (knowledge.QARecord, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+qaColumns+`
		FROM qa
		WHERE question = $1
		LIMIT 1
	`, question)
	return scanOptionalRecord(row)
}

// FindSimilar matches by substring containment in either direction; the
// ascending id order preserves the storage-order tie-break.
func (r *PostgresRepository) FindSimilar(ctx context.Context, question string) (knowledge.QARecord, bool, error) {
	if question == "" {
		return knowledge.QARecord{}, false, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+qaColumns+`
		FROM qa
		WHERE position($1 in question) > 0 OR position(question in $1) > 0
		ORDER BY id
		LIMIT 1
	`, question)
	return scanOptionalRecord(row)
}

// Get fetches a record by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (knowledge.QARecord, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+qaColumns+`
		FROM qa
		WHERE id = $1
		LIMIT 1
	`, id)
	return scanOptionalRecord(row)
}

// Create inserts a new pair; the unique index closes the check-then-act race
// between two concurrent misses.
func (r *PostgresRepository) Create(ctx context.Context, question, answer string) (knowledge.QARecord, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO qa (question, answer, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING `+qaColumns+`
	`, question, answer)
	record, err := scanRecord(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return knowledge.QARecord{}, knowledge.ErrDuplicateQuestion
		}
		return knowledge.QARecord{}, fmt.Errorf("insert qa: %w", err)
	}
	return record, nil
}

// IncrementAsked bumps the monotonic usage counter in one statement.
func (r *PostgresRepository) IncrementAsked(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE qa
		SET times_asked = times_asked + 1, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("increment times_asked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return knowledge.ErrNotFound
	}
	return nil
}

// ApplyFeedback persists the event and updates the record inside a single
// transaction; the row lock makes concurrent feedback on the same record
// serialize without losing increments.
func (r *PostgresRepository) ApplyFeedback(ctx context.Context, event knowledge.FeedbackEvent) (knowledge.QARecord, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return knowledge.QARecord{}, fmt.Errorf("begin feedback tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var positive, negative int64
	err = tx.QueryRow(ctx, `
		SELECT positive_feedback, negative_feedback
		FROM qa
		WHERE id = $1
		FOR UPDATE
	`, event.QAID).Scan(&positive, &negative)
	if errors.Is(err, pgx.ErrNoRows) {
		return knowledge.QARecord{}, knowledge.ErrNotFound
	}
	if err != nil {
		return knowledge.QARecord{}, fmt.Errorf("lock qa row: %w", err)
	}

	if event.IsPositive {
		positive++
	} else {
		negative++
	}
	score := knowledge.PriorityScore(positive, negative)

	row := tx.QueryRow(ctx, `
		UPDATE qa
		SET positive_feedback = $2, negative_feedback = $3, priority_score = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+qaColumns+`
	`, event.QAID, positive, negative, score)
	record, err := scanRecord(row)
	if err != nil {
		return knowledge.QARecord{}, fmt.Errorf("update qa counters: %w", err)
	}

	metadata, err := marshalMetadata(event.Metadata)
	if err != nil {
		return knowledge.QARecord{}, err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO response_feedback (qa_id, is_positive, session_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.QAID, event.IsPositive, event.SessionID, metadata, event.CreatedAt)
	if err != nil {
		return knowledge.QARecord{}, fmt.Errorf("insert feedback event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return knowledge.QARecord{}, fmt.Errorf("commit feedback tx: %w", err)
	}
	return record, nil
}

// RankedByPriority lists records by descending priority score.
func (r *PostgresRepository) RankedByPriority(ctx context.Context) ([]knowledge.QARecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+qaColumns+`
		FROM qa
		ORDER BY priority_score DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query ranked by priority: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// RankedByTimesAsked lists the most asked records.
func (r *PostgresRepository) RankedByTimesAsked(ctx context.Context, limit int) ([]knowledge.QARecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+qaColumns+`
		FROM qa
		ORDER BY times_asked DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ranked by times asked: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// AppendTurn stores one conversation exchange.
func (r *PostgresRepository) AppendTurn(ctx context.Context, turn knowledge.ConversationTurn) error {
	lang := turn.UserLanguage
	if lang == "" {
		lang = knowledge.DefaultLanguage
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation (session_id, user_message, bot_response, user_language, response_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, turn.SessionID, turn.UserMessage, turn.BotResponse, lang, turn.ResponseSeconds, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to limit turns for a session, most recent first.
func (r *PostgresRepository) RecentTurns(ctx context.Context, sessionID string, limit int) ([]knowledge.ConversationTurn, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, user_message, bot_response, user_language, response_time, created_at
		FROM conversation
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	var turns []knowledge.ConversationTurn
	for rows.Next() {
		var turn knowledge.ConversationTurn
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.UserMessage, &turn.BotResponse, &turn.UserLanguage, &turn.ResponseSeconds, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (knowledge.QARecord, error) {
	var record knowledge.QARecord
	err := row.Scan(
		&record.ID,
		&record.Question,
		&record.Answer,
		&record.TimesAsked,
		&record.PositiveFeedback,
		&record.NegativeFeedback,
		&record.PriorityScore,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	return record, err
}

func scanOptionalRecord(row rowScanner) (knowledge.QARecord, bool, error) {
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return knowledge.QARecord{}, false, nil
	}
	if err != nil {
		return knowledge.QARecord{}, false, err
	}
	return record, true, nil
}

func collectRecords(rows pgx.Rows) ([]knowledge.QARecord, error) {
	var out []knowledge.QARecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan qa record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal feedback metadata: %w", err)
	}
	return payload, nil
}

var _ knowledge.Repository = (*PostgresRepository)(nil)
