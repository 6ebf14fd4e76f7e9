// Package snapshot persists the raw crawl result of a run before any
// reconciliation touches it, as a JSON array of listings.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/clock"
	"github.com/smorales/jobharvester/internal/jobs"
)

// Sink writes one snapshot per run and returns its location. An empty
// batch is skipped and reported as an empty location.
type Sink interface {
	Save(ctx context.Context, runID string, listings []jobs.Listing) (string, error)
	Close() error
}

// FileSink writes snapshots under a local directory.
type FileSink struct {
	dir    string
	clock  clock.Clock
	logger *zap.Logger
}

// NewFileSink creates the directory if needed.
func NewFileSink(dir string, clk clock.Clock, logger *zap.Logger) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot.dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileSink{dir: dir, clock: clk, logger: logger}, nil
}

// Save writes the listings as indented JSON. Returns the file path.
func (s *FileSink) Save(_ context.Context, runID string, listings []jobs.Listing) (string, error) {
	if len(listings) == 0 {
		return "", nil
	}
	data, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	path := filepath.Join(s.dir, snapshotName(s.clock.Now(), runID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.Info("snapshot written",
		zap.String("path", path),
		zap.Int("listings", len(listings)),
	)
	return path, nil
}

// Close is a no-op.
func (s *FileSink) Close() error { return nil }

func snapshotName(now time.Time, runID string) string {
	return fmt.Sprintf("listings-%s-%s.json", now.Format("2006-01-02"), runID)
}

// DiscardSink drops snapshots. Used when snapshotting is disabled.
type DiscardSink struct{}

func (DiscardSink) Save(context.Context, string, []jobs.Listing) (string, error) {
	return "", nil
}

func (DiscardSink) Close() error { return nil }
