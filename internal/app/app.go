// Package app wires the configured providers into a runnable harvester
// and orchestrates one crawl-and-reconcile run.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/clock"
	"github.com/smorales/jobharvester/internal/config"
	"github.com/smorales/jobharvester/internal/crawl"
	"github.com/smorales/jobharvester/internal/extract"
	"github.com/smorales/jobharvester/internal/fetch"
	"github.com/smorales/jobharvester/internal/jobs"
	"github.com/smorales/jobharvester/internal/ledger"
	ledgermemory "github.com/smorales/jobharvester/internal/ledger/memory"
	ledgermongo "github.com/smorales/jobharvester/internal/ledger/mongo"
	ledgerpostgres "github.com/smorales/jobharvester/internal/ledger/postgres"
	"github.com/smorales/jobharvester/internal/notify"
	"github.com/smorales/jobharvester/internal/reconcile"
	"github.com/smorales/jobharvester/internal/snapshot"
)

// Report summarizes one completed run.
type Report struct {
	RunID       string    `json:"run_id"`
	Crawled     int       `json:"crawled"`
	Admitted    int       `json:"admitted"`
	Enriched    int       `json:"enriched"`
	Pruned      int       `json:"pruned"`
	SnapshotURI string    `json:"snapshot_uri,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// App owns the wired components for the lifetime of the process.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	driver     *crawl.Driver
	reconciler *reconcile.Reconciler
	store      ledger.Store
	sink       snapshot.Sink
	publisher  notify.Publisher
	clock      clock.Clock
}

// New builds the application from config, failing fast on unknown or
// unreachable providers.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	clk := clock.NewSystem()

	client, err := fetch.New(fetch.Config{
		UserAgent:   cfg.Crawl.UserAgent,
		Timeout:     cfg.HTTPTimeout(),
		MaxAttempts: cfg.HTTP.MaxRetries,
		BackoffBase: cfg.BackoffInitial(),
	}, logger)
	if err != nil {
		return nil, err
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sink, err := newSink(ctx, cfg, clk, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	publisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		store.Close()
		_ = sink.Close()
		return nil, err
	}

	listings := extract.NewListingExtractor(cfg.Crawl.DetailURLPrefix, clk, logger)
	driver := crawl.NewDriver(client, listings, crawl.Config{
		BaseURL:  cfg.Crawl.BaseURL,
		PageSize: cfg.Crawl.PageSize,
		MinDelay: cfg.MinDelay(),
		MaxDelay: cfg.MaxDelay(),
	}, logger)
	details := extract.NewDetailExtractor(client, clk, logger)

	return &App{
		cfg:        cfg,
		logger:     logger,
		driver:     driver,
		reconciler: reconcile.New(store, details, logger),
		store:      store,
		sink:       sink,
		publisher:  publisher,
		clock:      clk,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (ledger.Store, error) {
	switch cfg.Ledger.Provider {
	case "memory":
		store := ledgermemory.NewStore(ledger.NewJobs, ledger.Links, ledger.BlackList, ledger.Control)
		for _, name := range []string{ledger.NewJobs, ledger.Links, ledger.BlackList, ledger.Control} {
			store.Seed(name, []ledger.Row{ledger.Header(name)})
		}
		return store, nil
	case "postgres":
		return ledgerpostgres.NewStore(ctx, ledgerpostgres.Config{
			DSN:   cfg.Ledger.DSN,
			Table: cfg.Ledger.Table,
		})
	case "mongo":
		return ledgermongo.NewStore(ctx, ledgermongo.Config{
			URI:        cfg.Ledger.URI,
			Database:   cfg.Ledger.Database,
			Collection: cfg.Ledger.Collection,
		})
	default:
		return nil, fmt.Errorf("unknown ledger provider %q", cfg.Ledger.Provider)
	}
}

func newSink(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *zap.Logger) (snapshot.Sink, error) {
	switch cfg.Snapshot.Provider {
	case "discard":
		return snapshot.DiscardSink{}, nil
	case "file":
		return snapshot.NewFileSink(cfg.Snapshot.Dir, clk, logger)
	case "gcs":
		return snapshot.NewGCSSink(ctx, cfg.Snapshot.Bucket, cfg.Snapshot.Prefix, clk, logger)
	default:
		return nil, fmt.Errorf("unknown snapshot provider %q", cfg.Snapshot.Provider)
	}
}

func newPublisher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (notify.Publisher, error) {
	switch cfg.Notify.Provider {
	case "discard":
		return notify.DiscardPublisher{}, nil
	case "memory":
		return notify.NewMemoryPublisher(), nil
	case "pubsub":
		return notify.NewPubSubPublisher(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicID, logger)
	default:
		return nil, fmt.Errorf("unknown notify provider %q", cfg.Notify.Provider)
	}
}

// Run executes one harvest: crawl, snapshot, admit, notify, enrich,
// prune. Only a failed crawl aborts the run; snapshot and notification
// faults are logged and skipped, ledger faults surface as the returned
// error alongside the partial report.
func (a *App) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: a.clock.Now(),
	}
	logger := a.logger.With(zap.String("run_id", report.RunID))

	crawled, err := a.driver.Crawl(ctx, a.cfg.Search.Keywords, a.cfg.Search.Location, a.cfg.Search.MaxJobs)
	if err != nil {
		return report, fmt.Errorf("crawl: %w", err)
	}
	report.Crawled = len(crawled)
	logger.Info("crawl finished", zap.Int("listings", len(crawled)))

	uri, err := a.sink.Save(ctx, report.RunID, crawled)
	if err != nil {
		logger.Warn("snapshot failed, continuing", zap.Error(err))
	}
	report.SnapshotURI = uri

	admitted, err := a.reconciler.Admit(ctx, crawled)
	if err != nil {
		return report, err
	}
	report.Admitted = len(admitted)

	if len(admitted) > 0 {
		if err := a.announce(ctx, report.RunID, admitted, logger); err != nil {
			logger.Warn("notification failed, continuing", zap.Error(err))
		}
	}

	// Only jobs already forwarded through Links are enriched; staged
	// jobs reach Control after an operator sends them, not before.
	sent, err := a.reconciler.SentJobs(ctx)
	if err != nil {
		return report, err
	}
	enriched, err := a.reconciler.Enrich(ctx, sent)
	if err != nil {
		return report, err
	}
	report.Enriched = enriched

	pruned, err := a.reconciler.Prune(ctx)
	if err != nil {
		return report, err
	}
	report.Pruned = pruned

	report.FinishedAt = a.clock.Now()
	logger.Info("run finished",
		zap.Int("crawled", report.Crawled),
		zap.Int("admitted", report.Admitted),
		zap.Int("enriched", report.Enriched),
		zap.Int("pruned", report.Pruned),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (a *App) announce(ctx context.Context, runID string, admitted []jobs.Listing, logger *zap.Logger) error {
	ids := make([]string, 0, len(admitted))
	for _, job := range admitted {
		ids = append(ids, job.ID)
	}
	id, err := a.publisher.Publish(ctx, notify.AdmittedBatch{
		RunID:    runID,
		Admitted: len(admitted),
		IDs:      ids,
	})
	if err != nil {
		return err
	}
	if id != "" {
		logger.Info("admitted batch announced", zap.String("message_id", id))
	}
	return nil
}

// Close releases every provider.
func (a *App) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("close publisher", zap.Error(err))
	}
	if err := a.sink.Close(); err != nil {
		a.logger.Warn("close snapshot sink", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close ledger store", zap.Error(err))
	}
}
