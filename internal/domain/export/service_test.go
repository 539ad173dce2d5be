package export

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
	"github.com/campushelp/canvas-assistant/internal/infra/knowledgerepo"
)

type memorySink struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemorySink() *memorySink {
	return &memorySink{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *memorySink) Put(_ context.Context, key string, data []byte, contentType string) (StoredObject, error) {
	s.objects[key] = data
	s.types[key] = contentType
	return StoredObject{Key: key, Size: int64(len(data))}, nil
}

func TestSnapshotWritesJSONAndCSV(t *testing.T) {
	repo := knowledgerepo.NewMemoryRepository()
	ctx := context.Background()
	record, err := repo.Create(ctx, "where can i see my grades?", "- Open the Grades section.")
	require.NoError(t, err)
	_, err = repo.ApplyFeedback(ctx, knowledge.FeedbackEvent{QAID: record.ID, IsPositive: true})
	require.NoError(t, err)

	sink := newMemorySink()
	svc := NewService(repo, sink, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.RecordCount)
	require.Len(t, result.Objects, 2)

	var jsonKey, csvKey string
	for key := range sink.objects {
		switch {
		case strings.HasSuffix(key, ".json"):
			jsonKey = key
		case strings.HasSuffix(key, ".csv"):
			csvKey = key
		}
	}
	require.NotEmpty(t, jsonKey)
	require.NotEmpty(t, csvKey)
	require.Equal(t, "application/json", sink.types[jsonKey])
	require.Equal(t, "text/csv", sink.types[csvKey])

	var payload snapshotPayload
	require.NoError(t, json.Unmarshal(sink.objects[jsonKey], &payload))
	require.Len(t, payload.Records, 1)
	require.Equal(t, "where can i see my grades?", payload.Records[0].Question)

	csvText := string(sink.objects[csvKey])
	require.Contains(t, csvText, "id,question,answer")
	require.Contains(t, csvText, "where can i see my grades?")
}
