package handlers

import (
	"context"

	"campuslink/pagination"
)

// pageFromCache tries to serve a list page out of the layered cache. The
// cache accumulates pages in order, so a request maps onto it when its
// cursor is either nil (page 1) or the next-cursor of a cached page. Any
// other cursor means the client is somewhere we have not cached; the caller
// falls through to the store.
func pageFromCache(ctx context.Context, kind pagination.Kind, cursor *string, pageSize int) (pagination.Page, bool) {
	if listCache == nil {
		return pagination.Page{}, false
	}

	res, err := listCache.List(ctx, kind, pageSize)
	if err != nil || len(res.Pages) == 0 {
		return pagination.Page{}, false
	}

	if cursor == nil {
		page := res.Pages[0]
		// Warm the next page so the upcoming scroll is instant.
		if page.NextCursor != nil {
			go func(next string) {
				_ = listCache.Prefetch(context.Background(), kind, pageSize, &next)
			}(*page.NextCursor)
		}
		return page, true
	}

	for i, p := range res.Pages {
		if p.NextCursor == nil || *p.NextCursor != *cursor {
			continue
		}
		if i+1 < len(res.Pages) {
			return res.Pages[i+1], true
		}
		// The cursor points past our tail: extend the entry by one page.
		if err := listCache.FetchNextPage(ctx, kind, pageSize); err != nil {
			return pagination.Page{}, false
		}
		res, err = listCache.List(ctx, kind, pageSize)
		if err != nil || len(res.Pages) <= i+1 {
			return pagination.Page{}, false
		}
		return res.Pages[i+1], true
	}

	return pagination.Page{}, false
}
