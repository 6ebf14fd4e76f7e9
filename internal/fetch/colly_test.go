package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollyFetcherRoundTrip(t *testing.T) {
	var gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLang = r.Header.Get("Accept-Language")
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("<html>body</html>"))
		case "/teapot":
			w.WriteHeader(http.StatusTeapot)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	raw, err := newCollyFetcher(Config{UserAgent: "harvester-test/1.0", Timeout: 5 * time.Second})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		headers := http.Header{"Accept-Language": []string{"en-US"}}
		pg, err := raw.fetch(context.Background(), srv.URL+"/ok", headers)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, pg.status)
		require.Equal(t, []byte("<html>body</html>"), pg.body)
		require.Equal(t, "en-US", gotLang)
	})

	t.Run("non-2xx surfaces as page not error", func(t *testing.T) {
		pg, err := raw.fetch(context.Background(), srv.URL+"/teapot", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusTeapot, pg.status)
	})
}

func TestClientAgainstHTTPServer(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	client, err := New(Config{
		UserAgent:   "harvester-test/1.0",
		Timeout:     5 * time.Second,
		MaxAttempts: 5,
		BackoffBase: time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)

	body, err := client.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	require.Equal(t, []byte("recovered"), body)
	require.Equal(t, 3, hits)
}
