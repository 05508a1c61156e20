package infobot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRTFMLimit             = 8
	DefaultRTFMFetchTimeout      = 30 * time.Second
	DefaultRTFMAutocompleteLimit = 25
	maxInventorySize             = 32 << 20
)

// FetchError is returned by a Fetcher when the remote responds with
// anything other than 200 OK.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %s", e.URL, e.Status)
}

// Fetcher retrieves raw inventory bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches inventories over HTTP.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxInventorySize))
}

type indexState int

const (
	indexNotBuilt indexState = iota
	indexBuilding
	indexBuilt
)

func (s indexState) String() string {
	switch s {
	case indexNotBuilt:
		return "not_built"
	case indexBuilding:
		return "building"
	case indexBuilt:
		return "built"
	default:
		return fmt.Sprintf("indexState(%d)", int(s))
	}
}

// indexSlot holds the build state for a single set. done is closed
// when state transitions to indexBuilt, after which inventory and err
// are never modified.
type indexSlot struct {
	state     indexState
	done      chan struct{}
	inventory *Inventory
	err       error
	builtAt   time.Time
}

// IndexStatus describes the cached state of a documentation set
type IndexStatus struct {
	SetID   string    `json:"set_id"`
	State   string    `json:"state"`
	Entries int       `json:"entries"`
	BuiltAt time.Time `json:"built_at,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// RTFMResult is the outcome of a documentation lookup. When no query
// was given, Searched is false and only Set is meaningful.
type RTFMResult struct {
	Set      DocSet
	Query    string
	Searched bool
	Matches  []DocMatch
}

// IndexCache lazily builds and holds the inventory of each configured
// DocSet. Each set is built at most once per process, and concurrent
// lookups for a set that's still building wait on the same build.
// A set which fails to fetch or parse is cached as empty.
type IndexCache struct {
	config       *DocSetConfig
	fetcher      Fetcher
	fetchTimeout time.Duration
	logger       *slog.Logger

	mu    sync.Mutex
	slots map[string]*indexSlot

	builds atomic.Int64
}

func NewIndexCache(
	config *DocSetConfig,
	fetcher Fetcher,
	fetchTimeout time.Duration,
	logger *slog.Logger,
) *IndexCache {
	if logger == nil {
		logger = slog.Default()
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultRTFMFetchTimeout
	}
	return &IndexCache{
		config:       config,
		fetcher:      fetcher,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		slots:        make(map[string]*indexSlot, len(config.Sets)),
	}
}

// Config returns the cache's DocSetConfig
func (c *IndexCache) Config() *DocSetConfig {
	return c.config
}

// Builds returns the number of fetch+parse attempts made
func (c *IndexCache) Builds() int64 {
	return c.builds.Load()
}

// Resolve searches the given set for query. If query is nil, no
// search is done (and the set isn't built), and the result only
// carries the set. A limit of zero or less uses DefaultRTFMLimit.
func (c *IndexCache) Resolve(
	ctx context.Context,
	setID string,
	query *string,
	limit int,
) (*RTFMResult, error) {
	set, ok := c.config.Set(setID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocSet, setID)
	}
	result := &RTFMResult{Set: set}
	if query == nil {
		return result, nil
	}
	if limit <= 0 {
		limit = DefaultRTFMLimit
	}

	inv, err := c.Index(ctx, setID)
	if err != nil {
		return nil, err
	}

	result.Searched = true
	result.Query = c.config.NormalizeQuery(set, *query)
	result.Matches = FuzzySearch(result.Query, inv.Entries(), limit)
	return result, nil
}

// Index returns the inventory for the given set, building it if it
// hasn't been built yet. The only errors returned are ErrUnknownDocSet
// and ctx's error, if ctx is done before the build finishes. A failed
// build yields an empty inventory.
func (c *IndexCache) Index(ctx context.Context, setID string) (*Inventory, error) {
	set, ok := c.config.Set(setID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocSet, setID)
	}

	c.mu.Lock()
	slot, exists := c.slots[setID]
	if !exists {
		slot = &indexSlot{state: indexNotBuilt}
		c.slots[setID] = slot
	}

	switch slot.state {
	case indexBuilt:
		c.mu.Unlock()
		return slot.inventory, nil
	case indexNotBuilt:
		slot.state = indexBuilding
		slot.done = make(chan struct{})
		c.mu.Unlock()
		// the build outlives the caller so that other waiters still
		// get a result if this caller gives up
		go c.build(context.WithoutCancel(ctx), set, slot)
	case indexBuilding:
		c.mu.Unlock()
	}

	select {
	case <-slot.done:
		return slot.inventory, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *IndexCache) build(ctx context.Context, set DocSet, slot *indexSlot) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	c.builds.Add(1)
	logger := c.logger.With("set_id", set.ID)
	start := time.Now()

	inv, err := c.fetchAndParse(ctx, set)
	if err != nil {
		var fetchErr *FetchError
		switch {
		case errors.As(err, &fetchErr):
			logger.WarnContext(
				ctx,
				"inventory fetch failed",
				"url", fetchErr.URL,
				"status_code", fetchErr.StatusCode,
			)
		default:
			logger.WarnContext(ctx, "inventory build failed", tint.Err(err))
		}
		inv = newInventory("", "")
	} else {
		logger.InfoContext(
			ctx,
			"inventory built",
			"project", inv.Project,
			"version", inv.Version,
			"entries", inv.Len(),
			"duration", time.Since(start),
		)
	}

	c.mu.Lock()
	slot.inventory = inv
	slot.err = err
	slot.builtAt = time.Now()
	slot.state = indexBuilt
	close(slot.done)
	c.mu.Unlock()
}

func (c *IndexCache) fetchAndParse(ctx context.Context, set DocSet) (*Inventory, error) {
	data, err := c.fetcher.Fetch(ctx, set.InventoryURL())
	if err != nil {
		return nil, err
	}
	return ParseInventory(bytes.NewReader(data), set.BaseURL, c.config.NamespaceStrip)
}

// Warm builds the given sets concurrently (or all configured sets, if
// none are given), returning once every build has finished.
func (c *IndexCache) Warm(ctx context.Context, setIDs ...string) error {
	if len(setIDs) == 0 {
		setIDs = c.config.IDs()
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range setIDs {
		g.Go(
			func() error {
				_, err := c.Index(gctx, id)
				return err
			},
		)
	}
	return g.Wait()
}

// Status reports the cached state of every configured set
func (c *IndexCache) Status() []IndexStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	statuses := make([]IndexStatus, 0, len(c.config.Sets))
	for _, set := range c.config.Sets {
		st := IndexStatus{SetID: set.ID, State: indexNotBuilt.String()}
		if slot, ok := c.slots[set.ID]; ok {
			st.State = slot.state.String()
			if slot.state == indexBuilt {
				st.Entries = slot.inventory.Len()
				st.BuiltAt = slot.builtAt
				if slot.err != nil {
					st.Error = slot.err.Error()
				}
			}
		}
		statuses = append(statuses, st)
	}
	return statuses
}
