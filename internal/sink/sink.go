// Package sink writes generated artifacts (submission documents, ledger
// exports) to a blob store.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"seqsubmit/internal/blob"
	"seqsubmit/internal/document"
)

var contentTypes = map[string]string{
	".xml":  "application/xml",
	".tsv":  "text/tab-separated-values",
	".json": "application/json",
}

// BlobSink stores each artifact under prefix/filename. Writes overwrite, so
// re-running a batch replaces the previous documents.
type BlobSink struct {
	store  blob.Store
	prefix string
	logger *zap.Logger
}

var _ document.Sink = (*BlobSink)(nil)

// NewBlobSink returns a sink writing below prefix in store.
func NewBlobSink(store blob.Store, prefix string, logger *zap.Logger) *BlobSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobSink{store: store, prefix: strings.Trim(prefix, "/"), logger: logger}
}

// Key is the blob key filename is stored under.
func (s *BlobSink) Key(filename string) string {
	if s.prefix == "" {
		return filename
	}
	return path.Join(s.prefix, filename)
}

// WithPrefix returns a sink sharing the store but writing below prefix
// relative to this sink's own prefix.
func (s *BlobSink) WithPrefix(prefix string) *BlobSink {
	return &BlobSink{store: s.store, prefix: strings.Trim(s.Key(strings.Trim(prefix, "/")), "/"), logger: s.logger}
}

// Write implements document.Sink.
func (s *BlobSink) Write(ctx context.Context, filename string, payload []byte) error {
	if filename == "" {
		return fmt.Errorf("sink: empty file name")
	}
	key := s.Key(filename)
	info, err := s.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentTypes[path.Ext(filename)],
		Overwrite:   true,
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	s.logger.Debug("artifact written", zap.String("key", key), zap.Int64("size", info.Size), zap.String("driver", string(s.store.Driver())))
	return nil
}

// Read returns the artifact stored under filename.
func (s *BlobSink) Read(ctx context.Context, filename string) ([]byte, error) {
	_, rc, err := s.store.Get(ctx, s.Key(filename))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// List returns the artifacts below the sink's prefix.
func (s *BlobSink) List(ctx context.Context) ([]blob.Info, error) {
	prefix := s.prefix
	if prefix != "" {
		prefix += "/"
	}
	return s.store.List(ctx, prefix)
}
