// Package extract parses the two externally defined page shapes: the
// search-results page with its listing cards and the single-posting
// detail page. Field lookups are best-effort; only a missing link can
// discard a card, because without it no identity is derivable.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/clock"
	"github.com/smorales/jobharvester/internal/jobs"
	"github.com/smorales/jobharvester/internal/metrics"
	"github.com/smorales/jobharvester/internal/normalize"
)

// Search-results page selectors. Externally defined, subject to change
// without notice.
const (
	cardSelector        = "div.base-card"
	cardTitleSelector   = "h3.base-search-card__title"
	cardCompanySelector = "h4.base-search-card__subtitle"
	cardPlaceSelector   = "span.job-search-card__location"
	cardLinkSelector    = "a.base-card__full-link"
	cardDateSelector    = "time.job-search-card__listdate"
)

// ListingExtractor turns one search-results page into listing records.
type ListingExtractor struct {
	shortURLPrefix string
	clock          clock.Clock
	logger         *zap.Logger
}

// NewListingExtractor builds an extractor that derives short URLs with
// the given fixed prefix.
func NewListingExtractor(shortURLPrefix string, clk clock.Clock, logger *zap.Logger) *ListingExtractor {
	return &ListingExtractor{
		shortURLPrefix: shortURLPrefix,
		clock:          clk,
		logger:         logger,
	}
}

// Listings extracts every listing card from the page markup. Cards are
// processed independently: a card without a link is dropped and logged,
// any other missing field degrades to an empty value. An error is
// returned only when the markup itself cannot be parsed.
func (e *ListingExtractor) Listings(markup []byte) ([]jobs.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	now := e.clock.Now()
	var out []jobs.Listing
	doc.Find(cardSelector).Each(func(i int, card *goquery.Selection) {
		listing, ok := e.listingFromCard(card, now)
		if !ok {
			metrics.ObserveDroppedCard()
			e.logger.Warn("dropping listing card without link", zap.Int("card", i))
			return
		}
		out = append(out, listing)
	})
	metrics.ObserveListings(len(out))
	return out, nil
}

func (e *ListingExtractor) listingFromCard(card *goquery.Selection, now time.Time) (jobs.Listing, bool) {
	href, ok := card.Find(cardLinkSelector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return jobs.Listing{}, false
	}

	link := normalize.CleanLink(href)
	id, numeric := normalize.JobID(link)
	if !numeric {
		e.logger.Warn("listing link has no trailing numeric id, using path fallback",
			zap.String("link", link),
			zap.String("id", id),
		)
	}

	return jobs.Listing{
		Title:      textOf(card, cardTitleSelector),
		Company:    textOf(card, cardCompanySelector),
		Location:   textOf(card, cardPlaceSelector),
		Link:       link,
		PostedDate: normalize.ISODate(textOf(card, cardDateSelector), now),
		ID:         id,
		ShortURL:   normalize.ShortURL(e.shortURLPrefix, id),
	}, true
}

// textOf returns the trimmed text of the first selector match, or the
// empty string when the node is absent.
func textOf(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}
