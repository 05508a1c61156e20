package infobot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func testDocSetConfig(t testing.TB) *DocSetConfig {
	t.Helper()
	cfg, err := ParseDocSetConfig(
		[]byte(`
namespace_strip:
  project: discord.py
  prefixes: ["discord.ext.commands.", "discord."]
query_prefix_groups:
  - ["discord.ext.", "discord."]
  - ["commands."]
alias_tables:
  messageable:
    prefix: abc.Messageable.
    names: [fetch_message, history, pins, send, trigger_typing, typing]
sets:
  - id: master
    title: discord.py master
    base_url: https://docs.example.com/master
    alias_table: messageable
  - id: python
    title: python
    base_url: https://docs.example.com/python
`),
	)
	require.NoError(t, err)
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func masterInventory(t testing.TB) []byte {
	return newInventoryBlob(
		t,
		"discord.py",
		"2.0",
		"discord.Client py:class 1 api.html#$ -",
		"discord.Client.run py:method 1 api.html#$ -",
		"discord.ext.commands.Bot py:class 1 ext/commands/api.html#$ -",
		"discord.abc.Messageable.send py:method 1 api.html#$ -",
		"discord.abc.Messageable.history py:method 1 api.html#$ -",
	)
}

func TestIndexCache_Resolve(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On(
		"Fetch",
		mock.Anything,
		"https://docs.example.com/master/objects.inv",
	).Return(masterInventory(t), nil).Once()

	cache := NewIndexCache(testDocSetConfig(t), fetcher, time.Second, testLogger())
	ctx := context.Background()

	q := "Client"
	result, err := cache.Resolve(ctx, "master", &q, 5)
	require.NoError(t, err)
	require.True(t, result.Searched)
	assert.Equal(t, "Client", result.Query)
	assert.Equal(t, []string{"Client", "Client.run"}, matchKeys(result.Matches))
	assert.Equal(
		t,
		"https://docs.example.com/master/api.html#discord.Client",
		result.Matches[0].URL,
	)

	second, err := cache.Resolve(ctx, "master", &q, 5)
	require.NoError(t, err)
	assert.Equal(t, result.Matches, second.Matches)

	fetcher.AssertExpectations(t)
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
	assert.Equal(t, int64(1), cache.Builds())
}

func TestIndexCache_ResolveNormalizesQuery(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(masterInventory(t), nil).Once()
	cache := NewIndexCache(testDocSetConfig(t), fetcher, time.Second, testLogger())

	q := "discord.ext.commands.Bot"
	result, err := cache.Resolve(context.Background(), "master", &q, 0)
	require.NoError(t, err)
	assert.Equal(t, "Bot", result.Query)
	require.NotEmpty(t, result.Matches)
	assert.Equal(t, "Bot", result.Matches[0].Key)

	q = "SEND"
	result, err = cache.Resolve(context.Background(), "master", &q, 0)
	require.NoError(t, err)
	assert.Equal(t, "abc.Messageable.send", result.Query)
	require.NotEmpty(t, result.Matches)
	assert.Equal(t, "abc.Messageable.send", result.Matches[0].Key)
}

func TestIndexCache_ResolveNilQuery(t *testing.T) {
	fetcher := &mockFetcher{}
	cache := NewIndexCache(testDocSetConfig(t), fetcher, time.Second, testLogger())

	result, err := cache.Resolve(context.Background(), "master", nil, 0)
	require.NoError(t, err)
	assert.False(t, result.Searched)
	assert.Equal(t, "https://docs.example.com/master", result.Set.BaseURL)
	assert.Empty(t, result.Matches)

	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	assert.Equal(t, int64(0), cache.Builds())
}

func TestIndexCache_UnknownSet(t *testing.T) {
	cache := NewIndexCache(testDocSetConfig(t), &mockFetcher{}, time.Second, testLogger())
	q := "x"
	_, err := cache.Resolve(context.Background(), "nope", &q, 0)
	require.ErrorIs(t, err, ErrUnknownDocSet)
}

func TestIndexCache_FetchFailureIsolation(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On(
		"Fetch",
		mock.Anything,
		"https://docs.example.com/master/objects.inv",
	).Return(masterInventory(t), nil).Once()
	fetcher.On(
		"Fetch",
		mock.Anything,
		"https://docs.example.com/python/objects.inv",
	).Return(
		nil,
		&FetchError{
			URL:        "https://docs.example.com/python/objects.inv",
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
		},
	).Once()

	cache := NewIndexCache(testDocSetConfig(t), fetcher, time.Second, testLogger())
	ctx := context.Background()
	q := "Client"

	result, err := cache.Resolve(ctx, "master", &q, 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.Matches)

	result, err = cache.Resolve(ctx, "python", &q, 0)
	require.NoError(t, err)
	assert.True(t, result.Searched)
	assert.Empty(t, result.Matches)

	// no retry
	result, err = cache.Resolve(ctx, "python", &q, 0)
	require.NoError(t, err)
	assert.Empty(t, result.Matches)

	result, err = cache.Resolve(ctx, "master", &q, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Matches)

	fetcher.AssertExpectations(t)

	statuses := cache.Status()
	require.Len(t, statuses, 2)
	assert.Equal(t, "built", statuses[0].State)
	assert.Empty(t, statuses[0].Error)
	assert.Equal(t, "built", statuses[1].State)
	assert.Equal(t, 0, statuses[1].Entries)
	assert.NotEmpty(t, statuses[1].Error)
}

func TestIndexCache_ParseFailureIsEmpty(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		Return([]byte("# Sphinx inventory version 1\n"), nil).Once()

	cache := NewIndexCache(testDocSetConfig(t), fetcher, time.Second, testLogger())
	inv, err := cache.Index(context.Background(), "master")
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Len())
}

func TestIndexCache_SingleFlight(t *testing.T) {
	release := make(chan time.Time)
	fetcher := &mockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		WaitUntil(release).
		Return(masterInventory(t), nil).
		Once()

	cache := NewIndexCache(testDocSetConfig(t), fetcher, 5*time.Second, testLogger())

	const workers = 10
	results := make([][]DocMatch, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			q := "Client"
			result, err := cache.Resolve(context.Background(), "master", &q, 5)
			if !assert.NoError(t, err) {
				return
			}
			results[n] = result.Matches
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
	assert.Equal(t, int64(1), cache.Builds())
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestIndexCache_WaiterCancel(t *testing.T) {
	release := make(chan time.Time)
	fetcher := &mockFetcher{}
	fetcher.On("Fetch", mock.Anything, mock.Anything).
		WaitUntil(release).
		Return(masterInventory(t), nil).
		Once()

	cache := NewIndexCache(testDocSetConfig(t), fetcher, 5*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cache.Index(ctx, "master")
	require.ErrorIs(t, err, context.Canceled)

	// the build keeps going for the next caller
	close(release)
	inv, err := cache.Index(context.Background(), "master")
	require.NoError(t, err)
	assert.Equal(t, 5, inv.Len())
	assert.Equal(t, int64(1), cache.Builds())
}

func TestIndexCache_Warm(t *testing.T) {
	fetcher := &mockFetcher{}
	fetcher.On("Fetch", mock.Anything, "https://docs.example.com/master/objects.inv").
		Return(masterInventory(t), nil).Once()
	fetcher.On("Fetch", mock.Anything, "https://docs.example.com/python/objects.inv").
		Return(nil, errors.New("connection refused")).Once()

	cache := NewIndexCache(testDocSetConfig(t), fetcher, time.Second, testLogger())
	require.NoError(t, cache.Warm(context.Background()))
	fetcher.AssertExpectations(t)

	for _, st := range cache.Status() {
		assert.Equal(t, "built", st.State)
	}
}

func TestHTTPFetcher(t *testing.T) {
	blob := masterInventory(t)
	srv := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/docs/objects.inv" {
					http.NotFound(w, r)
					return
				}
				assert.Equal(t, "infobot-test", r.Header.Get("User-Agent"))
				_, _ = w.Write(blob)
			},
		),
	)
	t.Cleanup(srv.Close)

	fetcher := &HTTPFetcher{Client: srv.Client(), UserAgent: "infobot-test"}

	data, err := fetcher.Fetch(context.Background(), srv.URL+"/docs/objects.inv")
	require.NoError(t, err)
	assert.Equal(t, blob, data)

	_, err = fetcher.Fetch(context.Background(), srv.URL+"/missing/objects.inv")
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}
