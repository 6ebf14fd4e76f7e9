// Package reconcile applies the ledger-driven dedup rules: which
// crawled listings are new, which need enrichment, and which staged
// rows have already been sent and can be pruned.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/jobs"
	"github.com/smorales/jobharvester/internal/ledger"
	"github.com/smorales/jobharvester/internal/metrics"
	"github.com/smorales/jobharvester/internal/normalize"
)

// DetailFetcher produces the enriched record for one listing. Failures
// are carried inside the returned record, not as an error.
type DetailFetcher interface {
	Detail(ctx context.Context, job jobs.Listing) jobs.Detail
}

// Reconciler reads and writes the four ledgers. Ledger faults abort
// the operation in progress; the caller decides whether the run
// continues.
type Reconciler struct {
	store   ledger.Store
	details DetailFetcher
	logger  *zap.Logger
}

// New builds a reconciler over the given store.
func New(store ledger.Store, details DetailFetcher, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, details: details, logger: logger}
}

// Admit appends to NewJobs every listing that is not already staged,
// sent, or blacklisted, preserving input order. A listing is excluded
// when its id matches a staged id, or when its link or short URL
// matches a Links or BlackList key exactly. Returns the admitted
// listings.
func (r *Reconciler) Admit(ctx context.Context, listings []jobs.Listing) ([]jobs.Listing, error) {
	staged, err := r.stagedIDs(ctx)
	if err != nil {
		return nil, err
	}
	excluded, err := r.excludedLinks(ctx)
	if err != nil {
		return nil, err
	}

	var admitted []jobs.Listing
	var rows []ledger.Row
	seen := make(map[string]struct{})
	for _, job := range listings {
		if _, ok := staged[job.ID]; ok {
			continue
		}
		if _, ok := seen[job.ID]; ok {
			continue
		}
		if _, ok := excluded[job.Link]; ok {
			continue
		}
		if _, ok := excluded[job.ShortURL]; ok {
			continue
		}
		seen[job.ID] = struct{}{}
		admitted = append(admitted, job)
		rows = append(rows, job.Row())
	}

	if err := r.store.AppendRows(ctx, ledger.NewJobs, rows); err != nil {
		return nil, fmt.Errorf("admit listings: %w", err)
	}
	metrics.ObserveAdmitted(len(rows))
	r.logger.Info("admitted listings",
		zap.Int("crawled", len(listings)),
		zap.Int("admitted", len(rows)),
	)
	return admitted, nil
}

// Enrich fetches the detail page for every listing whose id is not yet
// in Control and appends the resulting records, fetch failures
// included, after all fetches finish. Listings already in Control cost
// no HTTP request. Returns the number of records appended.
func (r *Reconciler) Enrich(ctx context.Context, listings []jobs.Listing) (int, error) {
	known, err := r.controlIDs(ctx)
	if err != nil {
		return 0, err
	}

	var rows []ledger.Row
	seen := make(map[string]struct{})
	for _, job := range listings {
		if _, ok := known[job.ID]; ok {
			continue
		}
		if _, ok := seen[job.ID]; ok {
			continue
		}
		seen[job.ID] = struct{}{}
		detail := r.details.Detail(ctx, job)
		rows = append(rows, ledger.Row(detail.Row()))
	}

	if err := r.store.AppendRows(ctx, ledger.Control, rows); err != nil {
		return 0, fmt.Errorf("enrich listings: %w", err)
	}
	metrics.ObserveEnriched(len(rows))
	r.logger.Info("enriched listings",
		zap.Int("candidates", len(listings)),
		zap.Int("enriched", len(rows)),
	)
	return len(rows), nil
}

// Prune rewrites NewJobs without the rows whose short URL now appears
// in Links or BlackList. The header row survives; rows too short to
// carry a short URL survive as well. The rewrite clears and re-appends,
// so a crash between the two can lose the staging ledger; the ledgers
// are recoverable working state, not the system of record. Returns the
// number of rows removed.
func (r *Reconciler) Prune(ctx context.Context) (int, error) {
	rows, err := r.store.ReadAllRows(ctx, ledger.NewJobs)
	if err != nil {
		return 0, fmt.Errorf("prune staging: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	excluded, err := r.excludedLinks(ctx)
	if err != nil {
		return 0, err
	}

	header := rows[0]
	survivors := make([]ledger.Row, 0, len(rows))
	survivors = append(survivors, header)
	removed := 0
	for _, row := range rows[1:] {
		if len(row) > jobs.StagingShortURLColumn {
			if _, ok := excluded[row[jobs.StagingShortURLColumn]]; ok {
				removed++
				continue
			}
		}
		survivors = append(survivors, row)
	}
	if removed == 0 {
		return 0, nil
	}

	if err := r.store.Clear(ctx, ledger.NewJobs); err != nil {
		return 0, fmt.Errorf("prune staging: %w", err)
	}
	if err := r.store.AppendRows(ctx, ledger.NewJobs, survivors); err != nil {
		return 0, fmt.Errorf("prune staging: rewrite after clear: %w", err)
	}
	metrics.ObservePruned(removed)
	r.logger.Info("pruned staging ledger",
		zap.Int("removed", removed),
		zap.Int("kept", len(survivors)-1),
	)
	return removed, nil
}

// SentJobs reads the Links ledger back as listings, so already-sent
// postings can still be enriched. Only the link survives the round
// trip; the id is re-derived from it.
func (r *Reconciler) SentJobs(ctx context.Context) ([]jobs.Listing, error) {
	rows, err := r.store.ReadAllRows(ctx, ledger.Links)
	if err != nil {
		return nil, fmt.Errorf("read sent jobs: %w", err)
	}
	var out []jobs.Listing
	for _, row := range dataRows(rows) {
		link := strings.TrimSpace(row[jobs.KeyColumn])
		if link == "" {
			continue
		}
		id, _ := normalize.JobID(link)
		out = append(out, jobs.Listing{Link: link, ID: id, ShortURL: link})
	}
	return out, nil
}

// stagedIDs returns the ids currently in NewJobs.
func (r *Reconciler) stagedIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.store.ReadAllRows(ctx, ledger.NewJobs)
	if err != nil {
		return nil, fmt.Errorf("read staged ids: %w", err)
	}
	ids := make(map[string]struct{})
	for _, row := range dataRows(rows) {
		if len(row) > jobs.StagingIDColumn {
			ids[row[jobs.StagingIDColumn]] = struct{}{}
		}
	}
	return ids, nil
}

// controlIDs returns the ids already enriched into Control.
func (r *Reconciler) controlIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.store.ReadAllRows(ctx, ledger.Control)
	if err != nil {
		return nil, fmt.Errorf("read control ids: %w", err)
	}
	ids := make(map[string]struct{})
	for _, row := range dataRows(rows) {
		if id := strings.TrimSpace(row[jobs.KeyColumn]); id != "" {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// excludedLinks is the union of the Links and BlackList key columns.
// Matching is exact string equality after trimming whitespace; no URL
// normalization happens here.
func (r *Reconciler) excludedLinks(ctx context.Context) (map[string]struct{}, error) {
	excluded := make(map[string]struct{})
	for _, name := range []string{ledger.Links, ledger.BlackList} {
		rows, err := r.store.ReadAllRows(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		for _, row := range dataRows(rows) {
			if link := strings.TrimSpace(row[jobs.KeyColumn]); link != "" {
				excluded[link] = struct{}{}
			}
		}
	}
	return excluded, nil
}

// dataRows drops the header row and any empty rows.
func dataRows(rows []ledger.Row) []ledger.Row {
	if len(rows) == 0 {
		return nil
	}
	out := make([]ledger.Row, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out
}
