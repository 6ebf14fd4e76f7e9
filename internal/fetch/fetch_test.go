package fetch

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedFetcher replays a fixed sequence of exchanges.
type scriptedFetcher struct {
	results []fetchResult
	calls   int
	headers []http.Header
}

func (s *scriptedFetcher) fetch(_ context.Context, _ string, headers http.Header) (page, error) {
	s.headers = append(s.headers, headers)
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i].page, s.results[i].err
}

func testClient(raw rawFetcher, attempts int) *HTTPClient {
	return newWithRaw(raw, Config{
		MaxAttempts: attempts,
		BackoffBase: time.Millisecond,
	}, zap.NewNop())
}

func TestGetRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	raw := &scriptedFetcher{results: []fetchResult{
		{page: page{status: 503}},
		{page: page{status: 503}},
		{page: page{status: 200, body: []byte("<html>ok</html>")}},
	}}
	client := testClient(raw, 5)

	body, err := client.Get(context.Background(), "https://example.com/search", nil)
	require.NoError(t, err)
	require.Equal(t, []byte("<html>ok</html>"), body)
	require.Equal(t, 3, raw.calls)
}

func TestGetNonRetryableStatusFailsImmediately(t *testing.T) {
	t.Parallel()

	raw := &scriptedFetcher{results: []fetchResult{
		{page: page{status: 404}},
	}}
	client := testClient(raw, 5)

	_, err := client.Get(context.Background(), "https://example.com/missing", nil)
	require.Error(t, err)
	require.Equal(t, 1, raw.calls, "404 must not be retried")

	var fe *Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, 404, fe.StatusCode)
}

func TestGetExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	raw := &scriptedFetcher{results: []fetchResult{
		{page: page{status: 500}},
	}}
	client := testClient(raw, 5)

	_, err := client.Get(context.Background(), "https://example.com/flaky", nil)
	require.Error(t, err)
	require.Equal(t, 5, raw.calls)

	var fe *Error
	require.ErrorAs(t, err, &fe)
	require.Equal(t, 500, fe.StatusCode)
}

func TestGetWrapsTransportErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	raw := &scriptedFetcher{results: []fetchResult{
		{err: boom},
	}}
	client := testClient(raw, 2)

	_, err := client.Get(context.Background(), "https://example.com/down", nil)
	require.Error(t, err)
	require.Equal(t, 2, raw.calls, "transport faults are retried")

	var fe *Error
	require.ErrorAs(t, err, &fe)
	require.Zero(t, fe.StatusCode)
	require.ErrorIs(t, err, boom)
}

func TestGetHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	raw := &scriptedFetcher{results: []fetchResult{
		{page: page{status: 503}},
	}}
	client := testClient(raw, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	_, err := client.Get(ctx, "https://example.com/slow", nil)
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestGetPassesHeadersThrough(t *testing.T) {
	t.Parallel()

	raw := &scriptedFetcher{results: []fetchResult{
		{page: page{status: 200, body: []byte("ok")}},
	}}
	client := testClient(raw, 1)

	headers := http.Header{"Accept-Language": []string{"en-US,en;q=0.5"}}
	_, err := client.Get(context.Background(), "https://example.com", headers)
	require.NoError(t, err)
	require.Len(t, raw.headers, 1)
	require.Equal(t, "en-US,en;q=0.5", raw.headers[0].Get("Accept-Language"))
}

func TestBackoffDoubles(t *testing.T) {
	t.Parallel()

	client := newWithRaw(nil, Config{BackoffBase: 500 * time.Millisecond}, zap.NewNop())
	require.Equal(t, 500*time.Millisecond, client.backoff(1))
	require.Equal(t, time.Second, client.backoff(2))
	require.Equal(t, 2*time.Second, client.backoff(3))
	require.Equal(t, 4*time.Second, client.backoff(4))
}
