package cache

import (
	"context"
	"fmt"
	"time"

	"campuslink/pagination"

	"go.uber.org/zap"
)

type detailKey struct {
	kind pagination.Kind
	id   string
}

func (k detailKey) String() string {
	return fmt.Sprintf("%s:details:%s", k.kind, k.id)
}

type detailEntry struct {
	detail    *pagination.Detail
	fetchedAt time.Time
}

// ItemDetails returns the full-detail record for one list item, cached
// independently of the list. On a successful fetch the detail is merged into
// every cached page of the matching lists in place: fields are augmented,
// order, hasMore and cursors stay untouched. A detail failure is isolated to
// the item and never disturbs list state.
func (c *Client) ItemDetails(ctx context.Context, kind pagination.Kind, id string) (*pagination.Detail, error) {
	key := detailKey{kind: kind, id: id}
	now := c.opts.Now()

	c.mu.Lock()
	if e, ok := c.details[key]; ok {
		age := now.Sub(e.fetchedAt)
		cached := e.detail
		c.mu.Unlock()

		if age <= c.opts.DetailStaleAfter {
			return cached, nil
		}
		if age <= c.opts.DetailMaxAge {
			// Stale but displayable; refresh behind the caller's back.
			go func() {
				if _, err := c.fetchDetail(context.Background(), key); err != nil {
					c.log.Warn("background detail refresh failed",
						zap.String("key", key.String()), zap.Error(err))
				}
			}()
			return cached, nil
		}
		// Past max age: treat as a miss.
	} else {
		c.mu.Unlock()
	}

	return c.fetchDetail(ctx, key)
}

// InvalidateItem drops the cached detail for one item so the next request
// re-fetches it. The surrounding lists are untouched.
func (c *Client) InvalidateItem(kind pagination.Kind, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.details, detailKey{kind: kind, id: id})
}

func (c *Client) fetchDetail(ctx context.Context, key detailKey) (*pagination.Detail, error) {
	v, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		var detail *pagination.Detail
		ferr := c.withRetry(ctx, c.opts.DetailRetries, func() error {
			var fe error
			detail, fe = c.opts.FetchDetail(ctx, key.kind, key.id)
			return fe
		})
		if ferr != nil {
			return nil, ferr
		}

		c.mu.Lock()
		c.details[key] = &detailEntry{detail: detail, fetchedAt: c.opts.Now()}
		c.mergeDetailLocked(key.kind, detail)
		c.mu.Unlock()
		return detail, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pagination.Detail), nil
}

// mergeDetailLocked splices detail fields into every cached page holding the
// item. Caller holds c.mu.
func (c *Client) mergeDetailLocked(kind pagination.Kind, detail *pagination.Detail) {
	if detail == nil {
		return
	}
	for key, e := range c.lists {
		if key.kind != kind {
			continue
		}
		for pi := range e.pages {
			for ii := range e.pages[pi].Items {
				if e.pages[pi].Items[ii].ID == detail.ID {
					detail.Apply(&e.pages[pi].Items[ii])
				}
			}
		}
	}
}
