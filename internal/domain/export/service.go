package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
	apperrors "github.com/campushelp/canvas-assistant/pkg/errors"
	"github.com/campushelp/canvas-assistant/pkg/util"
)

// StoredObject describes one written export artifact.
type StoredObject struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	ETag string `json:"etag,omitempty"`
}

// Sink writes export artifacts to durable storage.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (StoredObject, error)
}

// Result summarizes one snapshot run.
type Result struct {
	Objects     []StoredObject `json:"objects"`
	RecordCount int            `json:"recordCount"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Service builds knowledge-base snapshots. It is a pure side-format
// converter; no resolution logic lives here.
type Service interface {
	Snapshot(ctx context.Context) (Result, error)
}

type service struct {
	repo   knowledge.Repository
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires up the export domain.
func NewService(repo knowledge.Repository, sink Sink, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		sink:   sink,
		logger: logger.With("component", "export.service"),
		now:    util.NowUTC,
	}
}

type snapshotPayload struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Records     []knowledge.QARecord `json:"records"`
}

func (s *service) Snapshot(ctx context.Context) (Result, error) {
	records, err := s.repo.RankedByPriority(ctx)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeStorage, "failed to load records for export", err)
	}

	generatedAt := s.now()
	stamp := generatedAt.Format("20060102T150405Z")

	jsonBody, err := json.MarshalIndent(snapshotPayload{GeneratedAt: generatedAt, Records: records}, "", "  ")
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeStorage, "failed to encode snapshot", err)
	}
	jsonObj, err := s.sink.Put(ctx, fmt.Sprintf("exports/qa-%s.json", stamp), jsonBody, "application/json")
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeStorage, "failed to write json snapshot", err)
	}

	csvBody, err := encodeCSV(records)
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeStorage, "failed to encode csv snapshot", err)
	}
	csvObj, err := s.sink.Put(ctx, fmt.Sprintf("exports/qa-%s.csv", stamp), csvBody, "text/csv")
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeStorage, "failed to write csv snapshot", err)
	}

	s.logger.Info("knowledge snapshot written", "records", len(records), "json", jsonObj.Key, "csv", csvObj.Key)
	return Result{
		Objects:     []StoredObject{jsonObj, csvObj},
		RecordCount: len(records),
		GeneratedAt: generatedAt,
	}, nil
}

func encodeCSV(records []knowledge.QARecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	header := []string{"id", "question", "answer", "times_asked", "positive_feedback", "negative_feedback", "priority_score", "created_at", "updated_at"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, record := range records {
		row := []string{
			strconv.FormatInt(record.ID, 10),
			record.Question,
			record.Answer,
			strconv.FormatInt(record.TimesAsked, 10),
			strconv.FormatInt(record.PositiveFeedback, 10),
			strconv.FormatInt(record.NegativeFeedback, 10),
			strconv.FormatFloat(record.PriorityScore, 'f', -1, 64),
			record.CreatedAt.Format(time.RFC3339),
			record.UpdatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	return buf.Bytes(), writer.Error()
}
