package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/campushelp/canvas-assistant/internal/domain/export"
)

// FilesystemSink writes export artifacts under a local directory. It is the
// provider fallback when no object store is configured.
type FilesystemSink struct {
	root string
}

// NewFilesystemSink constructs the sink rooted at dir.
func NewFilesystemSink(dir string) *FilesystemSink {
	if dir == "" {
		dir = "exports"
	}
	return &FilesystemSink{root: dir}
}

// Put writes one export artifact to disk.
func (s *FilesystemSink) Put(_ context.Context, key string, data []byte, _ string) (export.StoredObject, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return export.StoredObject{}, fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return export.StoredObject{}, fmt.Errorf("write export file: %w", err)
	}
	return export.StoredObject{Key: path, Size: int64(len(data))}, nil
}

var _ export.Sink = (*FilesystemSink)(nil)
