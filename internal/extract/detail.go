package extract

import (
	"bytes"
	"context"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/clock"
	"github.com/smorales/jobharvester/internal/fetch"
	"github.com/smorales/jobharvester/internal/jobs"
	"github.com/smorales/jobharvester/internal/normalize"
)

// Detail page selectors, each independently optional.
const (
	detailCompanySelector  = "a[class*='topcard__org-name-link']"
	detailPostedSelector   = "span.posted-time-ago__text"
	detailRoleSelector     = "h1[class*='topcard__title']"
	detailLocationSelector = "span[class*='main-job-card__location']"
)

// DetailExtractor fetches and parses single-posting detail pages.
// Per-record failure is captured in the returned record, never
// propagated: a fetch or parse fault yields a Detail carrying only the
// job id and the error text, so one bad posting cannot sink a batch.
type DetailExtractor struct {
	client fetch.Client
	clock  clock.Clock
	logger *zap.Logger
}

// NewDetailExtractor builds a detail extractor on top of the fetch client.
func NewDetailExtractor(client fetch.Client, clk clock.Clock, logger *zap.Logger) *DetailExtractor {
	return &DetailExtractor{
		client: client,
		clock:  clk,
		logger: logger,
	}
}

// Detail fetches the job's canonical short URL and assembles the
// enriched record. The applied-date stamp is set whenever a detail is
// produced, including partial extractions.
func (d *DetailExtractor) Detail(ctx context.Context, job jobs.Listing) jobs.Detail {
	body, err := d.client.Get(ctx, job.ShortURL, detailHeaders())
	if err != nil {
		d.logger.Warn("detail fetch failed",
			zap.String("job_id", job.ID),
			zap.String("url", job.ShortURL),
			zap.Error(err),
		)
		return jobs.Detail{ID: job.ID, Error: err.Error()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		d.logger.Warn("detail parse failed",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		return jobs.Detail{ID: job.ID, Error: err.Error()}
	}

	now := d.clock.Now()
	role := textOf(doc.Selection, detailRoleSelector)
	position := role
	if position == "" {
		position = textOf(doc.Selection, "title")
	}

	return jobs.Detail{
		ID:          job.ID,
		Position:    position,
		Company:     textOf(doc.Selection, detailCompanySelector),
		Role:        role,
		Location:    textOf(doc.Selection, detailLocationSelector),
		PostedDate:  normalize.ISODate(textOf(doc.Selection, detailPostedSelector), now),
		AppliedDate: now.Format("2006-01-02"),
	}
}

// detailHeaders is the simplified header set for detail pages; the
// full browser set is only needed on the search endpoint.
func detailHeaders() http.Header {
	return http.Header{
		"Accept": []string{"text/html,application/xhtml+xml"},
	}
}
