package pagination

import (
	"context"
	"sync"
)

// FetchResult is what a page fetch hands back to the controller.
type FetchResult struct {
	Data    []ListItem
	HasMore bool
	Total   int
}

// FetchFunc fetches one page of items. page is 1-based.
type FetchFunc func(ctx context.Context, page, perPage int) (FetchResult, error)

// FetchOptions tweaks how a fetch applies its result.
type FetchOptions struct {
	// PreserveItems keeps the already-loaded items visible while page 1 is
	// re-fetched (soft refresh instead of a full reload spinner).
	PreserveItems bool
}

// State is a point-in-time snapshot of a controller's list.
type State struct {
	Items         []ListItem
	CurrentPage   int
	HasMore       bool
	Total         int
	IsLoading     bool
	IsRefreshing  bool
	IsLoadingMore bool
	Err           error
}

// Controller drives one paginated list view: it owns the accumulated items,
// the loading and error flags, and issues page fetches strictly in sequence.
// One controller belongs to one view; the shared cross-view cache lives in
// the cache package.
//
// Fetch errors never escape as panics or crash the controller - they land in
// the Err field with the previously loaded items intact, and the controller
// stays usable for a retry.
type Controller struct {
	mu      sync.Mutex
	fetch   FetchFunc
	perPage int

	// gen invalidates in-flight fetches: a result whose generation no longer
	// matches is dropped without touching state. Bumped by Reset and Close.
	gen    uint64
	closed bool

	items         []ListItem
	currentPage   int
	hasMore       bool
	total         int
	isLoading     bool
	isRefreshing  bool
	isLoadingMore bool
	err           error
}

// NewController builds a controller around a fetch function. perPage values
// below 1 fall back to 10.
func NewController(fetch FetchFunc, perPage int) *Controller {
	if perPage < 1 {
		perPage = 10
	}
	return &Controller{
		fetch:       fetch,
		perPage:     perPage,
		currentPage: 1,
	}
}

// FetchPage fetches the given page. Page 1 replaces the item list; later
// pages append to it. A fetch already in flight makes this a no-op - fetches
// on one controller never overlap.
func (c *Controller) FetchPage(ctx context.Context, page int, opts FetchOptions) error {
	c.mu.Lock()
	return c.fetchPageLocked(ctx, page, opts)
}

// LoadMore fetches the next page. No-op while a next-page fetch is in flight
// or when the list is exhausted.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.isLoadingMore || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	return c.fetchPageLocked(ctx, c.currentPage+1, FetchOptions{})
}

// Reset returns to page 1 and fetches it. Any in-flight fetch is abandoned;
// its result will be dropped when it lands.
func (c *Controller) Reset(ctx context.Context, opts FetchOptions) error {
	c.mu.Lock()
	c.gen++
	c.isLoading = false
	c.isRefreshing = false
	c.isLoadingMore = false
	if !opts.PreserveItems {
		c.items = nil
	}
	c.currentPage = 1
	return c.fetchPageLocked(ctx, 1, opts)
}

// Refetch re-fetches the current page, keeping loaded items visible while it
// runs. Pages loaded before the current one are left as they are: this is a
// current-page refresh, not a full-list one.
func (c *Controller) Refetch(ctx context.Context) error {
	c.mu.Lock()
	return c.fetchPageLocked(ctx, c.currentPage, FetchOptions{PreserveItems: true})
}

// SetItems replaces the item list directly, for callers that patch an item
// in place (likes, votes) without a round trip.
func (c *Controller) SetItems(items []ListItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

// Close abandons the controller. Fetches that resolve afterwards are
// silently dropped, so a discarded view can never be mutated.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
}

// State returns a snapshot of the current list state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Items:         append([]ListItem(nil), c.items...),
		CurrentPage:   c.currentPage,
		HasMore:       c.hasMore,
		Total:         c.total,
		IsLoading:     c.isLoading,
		IsRefreshing:  c.isRefreshing,
		IsLoadingMore: c.isLoadingMore,
		Err:           c.err,
	}
}

// fetchPageLocked runs one fetch. The caller holds c.mu; the lock is
// released for the duration of the fetch itself and every exit path clears
// the loading flag it set.
func (c *Controller) fetchPageLocked(ctx context.Context, page int, opts FetchOptions) error {
	if c.closed || c.isLoading || c.isRefreshing || c.isLoadingMore {
		c.mu.Unlock()
		return nil
	}

	switch {
	case page == 1 && opts.PreserveItems && len(c.items) > 0:
		c.isRefreshing = true
	case page == 1:
		c.isLoading = true
	default:
		c.isLoadingMore = true
	}
	c.err = nil
	gen := c.gen
	c.mu.Unlock()

	res, err := c.fetch(ctx, page, c.perPage)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen {
		// The view moved on while we were fetching. Leave state alone.
		return nil
	}

	c.isLoading = false
	c.isRefreshing = false
	c.isLoadingMore = false

	if err != nil {
		c.err = err
		return err
	}

	switch {
	case page == 1:
		c.items = res.Data
	case page == c.currentPage:
		// Re-fetch of the page we are already on: swap the tail in place
		// instead of appending the same items a second time.
		keep := (page - 1) * c.perPage
		if keep > len(c.items) {
			keep = len(c.items)
		}
		c.items = append(c.items[:keep:keep], res.Data...)
	default:
		c.items = append(c.items, res.Data...)
	}
	c.currentPage = page
	c.hasMore = res.HasMore
	c.total = res.Total
	return nil
}
