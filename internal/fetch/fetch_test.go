package fetch

import (
	"context"
	"keiba-etl/internal/telemetry"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	return Config{
		CacheDir:       t.TempDir(),
		Retries:        2,
		RetryWaitMs:    1,
		TimeoutSeconds: 5,
	}
}

func TestGetRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ja,en-US;q=0.7,en;q=0.3", r.Header.Get("Accept-Language"))
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	client := NewClient(testConfig(t), telemetry.NewRecorder())
	body, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, "<html>ok</html>", string(body))
	require.EqualValues(t, 2, hits.Load())
}

func TestGetNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	rec := telemetry.NewRecorder()
	client := NewClient(testConfig(t), rec)
	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	require.True(t, rec.Has("warning", "fetch.get"))
}

func TestFetchAll(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		// raw bytes are cached untouched, shift_jis included
		w.Write([]byte{0x93, 0x8c, 0x8b, 0x9e})
	}))
	defer server.Close()

	list := "# race list\n202405021211 " + server.URL + "/a\n\n202405021212 " + server.URL + "/missing\n"
	targets, err := ParseTargets(strings.NewReader(list))
	require.NoError(t, err)
	require.Len(t, targets, 2)

	client := NewClient(testConfig(t), telemetry.NewRecorder())
	res, err := client.FetchAll(context.Background(), targets)
	require.NoError(t, err)
	require.Equal(t, 1, res.Fetched)
	require.Equal(t, []string{"202405021212"}, res.Failed)

	contents, err := os.ReadFile(client.CachePath("202405021211"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x93, 0x8c, 0x8b, 0x9e}, contents)

	before := hits.Load()
	res, err = client.FetchAll(context.Background(), targets[:1])
	require.NoError(t, err)
	require.Equal(t, 1, res.Cached)
	require.Equal(t, before, hits.Load())
}

func TestParseTargetsInvalid(t *testing.T) {
	_, err := ParseTargets(strings.NewReader("202405021211\n"))
	require.ErrorContains(t, err, "line 1")
}

func TestPauseCancelled(t *testing.T) {
	config := testConfig(t)
	config.MinSleepMs = 60_000
	client := NewClient(config, telemetry.NewRecorder())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, client.Pause(ctx), context.Canceled)
}
