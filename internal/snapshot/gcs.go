package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/clock"
	"github.com/smorales/jobharvester/internal/jobs"
)

// GCSSink writes snapshots to a Google Cloud Storage bucket under an
// optional object prefix.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
	clock  clock.Clock
	logger *zap.Logger
}

// NewGCSSink dials GCS with ambient credentials.
func NewGCSSink(ctx context.Context, bucket, prefix string, clk clock.Clock, logger *zap.Logger) (*GCSSink, error) {
	if bucket == "" {
		return nil, fmt.Errorf("snapshot.bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSSink{
		client: client,
		bucket: bucket,
		prefix: prefix,
		clock:  clk,
		logger: logger,
	}, nil
}

// Save uploads the listings as one JSON object and returns its gs:// URI.
func (s *GCSSink) Save(ctx context.Context, runID string, listings []jobs.Listing) (string, error) {
	if len(listings) == 0 {
		return "", nil
	}
	data, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	object := path.Join(s.prefix, snapshotName(s.clock.Now(), runID))
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize snapshot upload: %w", err)
	}

	uri := fmt.Sprintf("gs://%s/%s", s.bucket, object)
	s.logger.Info("snapshot uploaded",
		zap.String("uri", uri),
		zap.Int("listings", len(listings)),
	)
	return uri, nil
}

// Close releases the GCS client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}
