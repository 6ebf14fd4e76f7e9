package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smorales/jobharvester/internal/jobs"
)

// pageFn lets tests script what each offset returns.
type pageFn func(start int) ([]jobs.Listing, error)

type scriptedSource struct {
	pages    pageFn
	fetches  []int
	fetchErr map[int]error
}

func (s *scriptedSource) Get(_ context.Context, rawURL string, _ http.Header) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	start, err := strconv.Atoi(u.Query().Get("start"))
	if err != nil {
		return nil, err
	}
	s.fetches = append(s.fetches, start)
	if ferr, ok := s.fetchErr[start]; ok {
		return nil, ferr
	}
	// The body just smuggles the offset to the extractor.
	return []byte(strconv.Itoa(start)), nil
}

func (s *scriptedSource) Listings(markup []byte) ([]jobs.Listing, error) {
	start, err := strconv.Atoi(string(markup))
	if err != nil {
		return nil, err
	}
	return s.pages(start)
}

func fullPage(start, n int) []jobs.Listing {
	out := make([]jobs.Listing, n)
	for i := range out {
		out[i] = jobs.Listing{ID: fmt.Sprintf("%d", start+i)}
	}
	return out
}

func newTestDriver(src *scriptedSource) *Driver {
	return NewDriver(src, src, Config{
		BaseURL:  "https://example.com/search",
		PageSize: 25,
	}, zap.NewNop())
}

func TestCrawlIssuesExactlyTwoFetchesForThirtyJobs(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{pages: func(start int) ([]jobs.Listing, error) {
		return fullPage(start, 25), nil
	}}
	got, err := newTestDriver(src).Crawl(context.Background(), "go", "Remote", 30)
	require.NoError(t, err)
	require.Len(t, got, 30, "result truncated to max_count")
	require.Equal(t, []int{0, 25}, src.fetches)
}

func TestCrawlStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{pages: func(start int) ([]jobs.Listing, error) {
		if start == 0 {
			return fullPage(0, 10), nil
		}
		return nil, nil
	}}
	got, err := newTestDriver(src).Crawl(context.Background(), "go", "Remote", 100)
	require.NoError(t, err, "exhaustion is not an error")
	require.Len(t, got, 10)
	require.Equal(t, []int{0, 25}, src.fetches)
}

func TestCrawlFirstFetchFailureIsFatal(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{
		pages:    func(int) ([]jobs.Listing, error) { return nil, nil },
		fetchErr: map[int]error{0: errors.New("status 451")},
	}
	got, err := newTestDriver(src).Crawl(context.Background(), "go", "Remote", 50)
	require.Error(t, err, "no data at all is the one fatal crawl outcome")
	require.Empty(t, got)
}

func TestCrawlLaterFetchFailureReturnsPartialResults(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{
		pages: func(start int) ([]jobs.Listing, error) {
			return fullPage(start, 25), nil
		},
		fetchErr: map[int]error{25: errors.New("status 503")},
	}
	got, err := newTestDriver(src).Crawl(context.Background(), "go", "Remote", 100)
	require.NoError(t, err, "page faults after the first page are non-fatal")
	require.Len(t, got, 25)
	require.Equal(t, []int{0, 25}, src.fetches)
}

func TestCrawlBuildsEscapedSearchURL(t *testing.T) {
	t.Parallel()

	d := newTestDriver(&scriptedSource{})
	got := d.searchURL("Data Scientist Remote", "México", 50)
	u, err := url.Parse(got)
	require.NoError(t, err)
	require.Equal(t, "Data Scientist Remote", u.Query().Get("keywords"))
	require.Equal(t, "México", u.Query().Get("location"))
	require.Equal(t, "50", u.Query().Get("start"))
}

func TestPauseSkippedWhenDisabled(t *testing.T) {
	t.Parallel()

	d := NewDriver(nil, nil, Config{BaseURL: "x"}, zap.NewNop())
	require.NoError(t, d.pause(context.Background()), "zero MaxDelay must not sleep")
}
