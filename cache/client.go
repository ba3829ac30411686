// Package cache is the process-wide layered query cache in front of the
// paginated list stores. Entries are keyed by (kind, page size), accumulate
// pages for infinite scroll, go stale after a freshness window while staying
// displayable, and are evicted only after sitting unused. One Client is
// created at startup and injected everywhere; ClearAll is reserved for
// sign-out.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campuslink/pagination"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleAfter       = 5 * time.Minute
	DefaultMaxIdle          = 10 * time.Minute
	DefaultDetailStaleAfter = 10 * time.Minute
	DefaultDetailMaxAge     = 15 * time.Minute
	DefaultRetries          = 2
	DefaultDetailRetries    = 1
	defaultJanitorInterval  = time.Minute
)

var cacheListLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_list_lookups_total",
		Help: "List cache lookups by kind and outcome",
	},
	[]string{"kind", "outcome"}, // outcome: fresh, stale, miss
)

// PageFetcher fetches one page of a list from the backing store.
type PageFetcher func(ctx context.Context, kind pagination.Kind, cursor *pagination.CursorPos, pageSize int) (pagination.Page, error)

// DetailFetcher fetches the full-detail record for one item.
type DetailFetcher func(ctx context.Context, kind pagination.Kind, id string) (*pagination.Detail, error)

// Options configures a Client. Zero durations and counts take the defaults
// above. Now and Sleep exist so tests can control time.
type Options struct {
	FetchPage   PageFetcher
	FetchDetail DetailFetcher

	StaleAfter       time.Duration
	MaxIdle          time.Duration
	DetailStaleAfter time.Duration
	DetailMaxAge     time.Duration
	Retries          int
	DetailRetries    int
	JanitorInterval  time.Duration

	Logger *zap.Logger
	Now    func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
}

type listKey struct {
	kind     pagination.Kind
	pageSize int
}

func (k listKey) String() string {
	return fmt.Sprintf("list:%s:%d", k.kind, k.pageSize)
}

type listEntry struct {
	pages     []pagination.Page
	fetchedAt time.Time
	lastUsed  time.Time

	invalid      bool // forced stale by targeted invalidation
	refreshing   bool
	fetchingNext bool
}

// ListResult is a read-only view of one cache entry.
type ListResult struct {
	Pages       []pagination.Page
	HasNextPage bool
	Stale       bool
}

// Items flattens the accumulated pages in order.
func (r ListResult) Items() []pagination.ListItem {
	var out []pagination.ListItem
	for _, p := range r.Pages {
		out = append(out, p.Items...)
	}
	return out
}

// Client is the layered query cache. All entry state is guarded by mu;
// fetches run outside the lock and results are applied atomically, so a
// reader never observes a partially appended page.
type Client struct {
	opts  Options
	log   *zap.Logger
	group singleflight.Group

	mu      sync.Mutex
	lists   map[listKey]*listEntry
	details map[detailKey]*detailEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a Client and starts its eviction janitor.
func New(opts Options) *Client {
	if opts.StaleAfter == 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.MaxIdle == 0 {
		opts.MaxIdle = DefaultMaxIdle
	}
	if opts.DetailStaleAfter == 0 {
		opts.DetailStaleAfter = DefaultDetailStaleAfter
	}
	if opts.DetailMaxAge == 0 {
		opts.DetailMaxAge = DefaultDetailMaxAge
	}
	if opts.Retries == 0 {
		opts.Retries = DefaultRetries
	}
	if opts.DetailRetries == 0 {
		opts.DetailRetries = DefaultDetailRetries
	}
	if opts.JanitorInterval == 0 {
		opts.JanitorInterval = defaultJanitorInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Client{
		opts:    opts,
		log:     opts.Logger,
		lists:   make(map[listKey]*listEntry),
		details: make(map[detailKey]*detailEntry),
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Close stops the janitor. Cached data stays readable.
func (c *Client) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// List returns the accumulated pages for (kind, pageSize), fetching page 1 on
// a miss. A stale entry is returned immediately while a background refresh
// runs (stale-while-revalidate); a fresh entry is returned as-is, so a view
// remounting against fresh data costs no request.
func (c *Client) List(ctx context.Context, kind pagination.Kind, pageSize int) (ListResult, error) {
	key := listKey{kind: kind, pageSize: pageSize}

	c.mu.Lock()
	if e, ok := c.lists[key]; ok {
		e.lastUsed = c.opts.Now()
		res := c.resultLocked(e)
		stale := res.Stale
		kick := stale && !e.refreshing
		if kick {
			e.refreshing = true
		}
		c.mu.Unlock()

		outcome := "fresh"
		if stale {
			outcome = "stale"
		}
		cacheListLookups.WithLabelValues(string(kind), outcome).Inc()

		if kick {
			go c.refresh(key)
		}
		return res, nil
	}
	c.mu.Unlock()

	cacheListLookups.WithLabelValues(string(kind), "miss").Inc()

	// Dedupe on the cache key: concurrent first-page requests for the same
	// key join a single fetch instead of issuing their own.
	_, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		c.mu.Lock()
		if _, ok := c.lists[key]; ok {
			c.mu.Unlock()
			return nil, nil
		}
		c.mu.Unlock()

		var page pagination.Page
		ferr := c.withRetry(ctx, c.opts.Retries, func() error {
			var fe error
			page, fe = c.opts.FetchPage(ctx, kind, nil, pageSize)
			return fe
		})
		if ferr != nil {
			return nil, ferr
		}

		now := c.opts.Now()
		c.mu.Lock()
		c.lists[key] = &listEntry{
			pages:     []pagination.Page{page},
			fetchedAt: now,
			lastUsed:  now,
		}
		c.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return ListResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lists[key]
	if !ok {
		return ListResult{}, fmt.Errorf("cache: entry for %s vanished after fetch", key)
	}
	e.lastUsed = c.opts.Now()
	return c.resultLocked(e), nil
}

// FetchNextPage fetches and appends the page after the current tail. It is a
// no-op while a next-page fetch for the same key is already in flight, and
// when the list is exhausted. A missing entry loads page 1 instead.
func (c *Client) FetchNextPage(ctx context.Context, kind pagination.Kind, pageSize int) error {
	key := listKey{kind: kind, pageSize: pageSize}

	c.mu.Lock()
	e, ok := c.lists[key]
	if !ok {
		c.mu.Unlock()
		_, err := c.List(ctx, kind, pageSize)
		return err
	}
	if e.fetchingNext {
		c.mu.Unlock()
		return nil
	}
	tail := e.pages[len(e.pages)-1]
	if !tail.HasMore || tail.NextCursor == nil {
		c.mu.Unlock()
		return nil
	}
	e.fetchingNext = true
	cursor := pagination.DecodeCursor(tail.NextCursor)
	wantPages := len(e.pages)
	c.mu.Unlock()

	var page pagination.Page
	err := c.withRetry(ctx, c.opts.Retries, func() error {
		var fe error
		page, fe = c.opts.FetchPage(ctx, kind, cursor, pageSize)
		return fe
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	e.fetchingNext = false
	if err != nil {
		return err
	}
	// Append only if the entry is still the one we started from and nothing
	// rewrote the page list underneath the fetch.
	if c.lists[key] == e && len(e.pages) == wantPages {
		e.pages = append(e.pages, page)
		e.lastUsed = c.opts.Now()
	}
	return nil
}

// Prefetch eagerly fetches the page at cursor and stores it if it still
// extends the entry's tail, without touching any view's state. A cursor that
// no longer matches the tail means the list moved on; the result is dropped.
func (c *Client) Prefetch(ctx context.Context, kind pagination.Kind, pageSize int, cursor *string) error {
	key := listKey{kind: kind, pageSize: pageSize}

	c.mu.Lock()
	e, ok := c.lists[key]
	if !ok || e.fetchingNext {
		c.mu.Unlock()
		return nil
	}
	tail := e.pages[len(e.pages)-1]
	if tail.NextCursor == nil || cursor == nil || *tail.NextCursor != *cursor {
		c.mu.Unlock()
		return nil
	}
	e.fetchingNext = true
	pos := pagination.DecodeCursor(cursor)
	wantPages := len(e.pages)
	c.mu.Unlock()

	var page pagination.Page
	err := c.withRetry(ctx, c.opts.Retries, func() error {
		var fe error
		page, fe = c.opts.FetchPage(ctx, kind, pos, pageSize)
		return fe
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	e.fetchingNext = false
	if err != nil {
		return err
	}
	if c.lists[key] == e && len(e.pages) == wantPages {
		e.pages = append(e.pages, page)
	}
	return nil
}

// Refetch re-fetches every accumulated page for the key, front to back, and
// swaps the result in atomically.
func (c *Client) Refetch(ctx context.Context, kind pagination.Kind, pageSize int) error {
	return c.refreshKey(ctx, listKey{kind: kind, pageSize: pageSize})
}

// Invalidate marks every cached list of the kind stale and kicks background
// refreshes for them. Other kinds are untouched - invalidation is targeted,
// never a blanket clear.
func (c *Client) Invalidate(kind pagination.Kind) {
	c.mu.Lock()
	var keys []listKey
	for key, e := range c.lists {
		if key.kind != kind {
			continue
		}
		e.invalid = true
		if !e.refreshing {
			e.refreshing = true
			keys = append(keys, key)
		}
	}
	c.mu.Unlock()

	for _, key := range keys {
		go c.refresh(key)
	}
}

// ClearAll drops every cached list and detail. Sign-out only.
func (c *Client) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists = make(map[listKey]*listEntry)
	c.details = make(map[detailKey]*detailEntry)
}

// OnFocus refetches stale keys when the application regains foreground.
// Fresh keys are left alone, so focus changes while data is current cost
// nothing.
func (c *Client) OnFocus() {
	now := c.opts.Now()

	c.mu.Lock()
	var keys []listKey
	for key, e := range c.lists {
		if !e.invalid && now.Sub(e.fetchedAt) <= c.opts.StaleAfter {
			continue
		}
		if !e.refreshing {
			e.refreshing = true
			keys = append(keys, key)
		}
	}
	c.mu.Unlock()

	for _, key := range keys {
		go c.refresh(key)
	}
}

// Stats reports entry counts for the admin endpoint.
func (c *Client) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]interface{}{
		"list_entries":   len(c.lists),
		"detail_entries": len(c.details),
	}
}

// refresh is the background edge of stale-while-revalidate. The caller has
// already set e.refreshing.
func (c *Client) refresh(key listKey) {
	if err := c.refreshKey(context.Background(), key); err != nil {
		c.log.Warn("background list refresh failed; serving stale data",
			zap.String("key", key.String()), zap.Error(err))
	}
}

// refreshKey re-fetches all currently held pages in order, chaining cursors,
// then swaps the page list under the lock.
func (c *Client) refreshKey(ctx context.Context, key listKey) error {
	c.mu.Lock()
	e, ok := c.lists[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	want := len(e.pages)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if cur, ok := c.lists[key]; ok {
			cur.refreshing = false
		}
		c.mu.Unlock()
	}()

	fresh := make([]pagination.Page, 0, want)
	var cursor *pagination.CursorPos
	for i := 0; i < want; i++ {
		var page pagination.Page
		err := c.withRetry(ctx, c.opts.Retries, func() error {
			var fe error
			page, fe = c.opts.FetchPage(ctx, key.kind, cursor, key.pageSize)
			return fe
		})
		if err != nil {
			return err
		}
		fresh = append(fresh, page)
		if !page.HasMore || page.NextCursor == nil {
			break
		}
		cursor = pagination.DecodeCursor(page.NextCursor)
	}

	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.lists[key]; ok {
		cur.pages = fresh
		cur.fetchedAt = now
		cur.invalid = false
	}
	return nil
}

func (c *Client) resultLocked(e *listEntry) ListResult {
	pages := append([]pagination.Page(nil), e.pages...)
	tail := pages[len(pages)-1]
	return ListResult{
		Pages:       pages,
		HasNextPage: tail.HasMore,
		Stale:       e.invalid || c.opts.Now().Sub(e.fetchedAt) > c.opts.StaleAfter,
	}
}

func (c *Client) janitor() {
	ticker := time.NewTicker(c.opts.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evict()
		}
	}
}

// evict drops lists unused past MaxIdle and details older than DetailMaxAge.
func (c *Client) evict() {
	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.lists {
		if now.Sub(e.lastUsed) > c.opts.MaxIdle && !e.refreshing && !e.fetchingNext {
			delete(c.lists, key)
		}
	}
	for key, d := range c.details {
		if now.Sub(d.fetchedAt) > c.opts.DetailMaxAge {
			delete(c.details, key)
		}
	}
}
