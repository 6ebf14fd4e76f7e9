// Package crawl drives paginated listing requests against the search
// endpoint: fixed page-size offsets, a randomized courtesy delay
// between pages, and stop conditions for exhaustion and page faults.
package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/jobs"
)

// ListingSource parses one search-results page into listing records.
type ListingSource interface {
	Listings(markup []byte) ([]jobs.Listing, error)
}

// PageClient fetches one URL; see fetch.Client.
type PageClient interface {
	Get(ctx context.Context, url string, headers http.Header) ([]byte, error)
}

// Config tunes a crawl run.
type Config struct {
	// BaseURL is the search endpoint without query parameters.
	BaseURL string
	// PageSize is the listing-count stride between page offsets.
	PageSize int
	// MinDelay and MaxDelay bound the randomized pause between
	// successful pages. MaxDelay <= 0 disables the pause entirely,
	// which tests rely on.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Driver issues successive listing requests with increasing offsets.
type Driver struct {
	client    PageClient
	extractor ListingSource
	cfg       Config
	logger    *zap.Logger
}

// NewDriver builds a pagination driver.
func NewDriver(client PageClient, extractor ListingSource, cfg Config, logger *zap.Logger) *Driver {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 25
	}
	return &Driver{
		client:    client,
		extractor: extractor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Crawl accumulates up to maxJobs listing records. Page-level faults
// after the first page are non-fatal: the loop stops and the partial
// result is returned with a nil error. The error return is non-nil
// only when the very first page produced nothing at all.
func (d *Driver) Crawl(ctx context.Context, keywords, location string, maxJobs int) ([]jobs.Listing, error) {
	var all []jobs.Listing
	start := 0

	for len(all) < maxJobs {
		pageURL := d.searchURL(keywords, location, start)
		body, err := d.client.Get(ctx, pageURL, searchHeaders())
		if err != nil {
			if len(all) == 0 {
				return nil, fmt.Errorf("first listing fetch: %w", err)
			}
			d.logger.Error("listing fetch failed, stopping pagination",
				zap.String("url", pageURL),
				zap.Int("collected", len(all)),
				zap.Error(err),
			)
			break
		}

		listings, err := d.extractor.Listings(body)
		if err != nil {
			if len(all) == 0 {
				return nil, fmt.Errorf("first listing page: %w", err)
			}
			d.logger.Error("listing extraction failed, stopping pagination",
				zap.String("url", pageURL),
				zap.Error(err),
			)
			break
		}
		if len(listings) == 0 {
			d.logger.Info("listing page empty, search exhausted",
				zap.Int("offset", start),
				zap.Int("collected", len(all)),
			)
			break
		}

		all = append(all, listings...)
		d.logger.Info("listing page scraped",
			zap.Int("offset", start),
			zap.Int("page_count", len(listings)),
			zap.Int("collected", len(all)),
		)
		start += d.cfg.PageSize

		if len(all) >= maxJobs {
			break
		}
		if err := d.pause(ctx); err != nil {
			d.logger.Warn("crawl canceled during pause", zap.Error(err))
			break
		}
	}

	if len(all) > maxJobs {
		all = all[:maxJobs]
	}
	return all, nil
}

func (d *Driver) searchURL(keywords, location string, start int) string {
	params := url.Values{}
	params.Set("keywords", keywords)
	params.Set("location", location)
	params.Set("start", strconv.Itoa(start))
	return d.cfg.BaseURL + "?" + params.Encode()
}

// searchHeaders is the browser-shaped header set the search endpoint
// expects. The User-Agent rides on the fetch client itself.
func searchHeaders() http.Header {
	return http.Header{
		"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"},
		"Accept-Language": []string{"en-US,en;q=0.5"},
		"Connection":      []string{"keep-alive"},
		"DNT":             []string{"1"},
		"Cache-Control":   []string{"no-cache"},
	}
}
