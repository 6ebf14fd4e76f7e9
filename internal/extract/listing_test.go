package extract

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/clock"
)

const shortPrefix = "https://www.example.com/jobs/view/"

func card(title, company, location, href, date string) string {
	out := `<div class="base-card">`
	if title != "" {
		out += fmt.Sprintf(`<h3 class="base-search-card__title"> %s </h3>`, title)
	}
	if company != "" {
		out += fmt.Sprintf(`<h4 class="base-search-card__subtitle">%s</h4>`, company)
	}
	if location != "" {
		out += fmt.Sprintf(`<span class="job-search-card__location">%s</span>`, location)
	}
	if href != "" {
		out += fmt.Sprintf(`<a class="base-card__full-link" href="%s">link</a>`, href)
	}
	if date != "" {
		out += fmt.Sprintf(`<time class="job-search-card__listdate">%s</time>`, date)
	}
	return out + `</div>`
}

func newTestExtractor() *ListingExtractor {
	clk := clock.Fixed{T: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)}
	return NewListingExtractor(shortPrefix, clk, zap.NewNop())
}

func TestListingsExtractsAllCards(t *testing.T) {
	t.Parallel()

	page := "<html><body>" +
		card("Data Scientist", "Acme", "Remote", "https://x/jobs/view/data-scientist-111?trk=a", "2026-03-01") +
		card("", "Globex", "Mexico City", "https://x/jobs/view/analyst-222", "") +
		card("Engineer", "Initech", "Monterrey", "https://x/jobs/view/engineer-333?refId=z", "2 weeks ago") +
		"</body></html>"

	listings, err := newTestExtractor().Listings([]byte(page))
	require.NoError(t, err)
	require.Len(t, listings, 3)

	// One card is missing its title; all three still carry an id.
	require.Empty(t, listings[1].Title)
	for _, l := range listings {
		require.NotEmpty(t, l.ID)
	}

	first := listings[0]
	require.Equal(t, "Data Scientist", first.Title)
	require.Equal(t, "Acme", first.Company)
	require.Equal(t, "Remote", first.Location)
	require.Equal(t, "https://x/jobs/view/data-scientist-111", first.Link, "query string must be stripped")
	require.Equal(t, "111", first.ID)
	require.Equal(t, shortPrefix+"111", first.ShortURL)
	require.Equal(t, "2026-03-01", first.PostedDate)

	require.Empty(t, listings[1].PostedDate, "absent date text yields empty date")
	require.Equal(t, "2026-03-01", listings[2].PostedDate, "relative date resolves against the clock")
}

func TestListingsDropsLinklessCard(t *testing.T) {
	t.Parallel()

	page := "<html><body>" +
		card("Orphan", "NoLink Inc", "Nowhere", "", "") +
		card("Kept", "Acme", "Remote", "https://x/jobs/view/kept-444", "") +
		"</body></html>"

	listings, err := newTestExtractor().Listings([]byte(page))
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, "444", listings[0].ID)
}

func TestListingsEmptyPage(t *testing.T) {
	t.Parallel()

	listings, err := newTestExtractor().Listings([]byte("<html><body><p>no results</p></body></html>"))
	require.NoError(t, err)
	require.Empty(t, listings)
}
