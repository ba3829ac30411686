// feedtail tails a campuslink list over HTTP: it pulls pages through a
// pagination.Controller and prints each item, demonstrating cursor-chained
// paging against a running server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"campuslink/pagination"
)

func main() {
	var (
		addr     string
		kind     string
		pageSize int
		maxPages int
	)
	flag.StringVar(&addr, "addr", "http://localhost:8080", "Server base URL")
	flag.StringVar(&kind, "kind", "post", "List kind: post or thread")
	flag.IntVar(&pageSize, "limit", 10, "Page size")
	flag.IntVar(&maxPages, "pages", 3, "Number of pages to pull")
	flag.Parse()

	path := "/api/v1/feed"
	if pagination.Kind(kind) == pagination.KindThread {
		path = "/api/v1/threads"
	}

	client := &http.Client{Timeout: 10 * time.Second}

	// The HTTP API is cursor-based while the controller counts pages, so we
	// remember the cursor each page ended on.
	cursors := map[int]*string{}

	fetch := func(ctx context.Context, page, perPage int) (pagination.FetchResult, error) {
		q := url.Values{}
		q.Set("limit", fmt.Sprint(perPage))
		if c := cursors[page]; c != nil {
			q.Set("cursor", *c)
		} else if page > 1 {
			return pagination.FetchResult{}, fmt.Errorf("no cursor recorded for page %d", page)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+path+"?"+q.Encode(), nil)
		if err != nil {
			return pagination.FetchResult{}, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return pagination.FetchResult{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return pagination.FetchResult{}, fmt.Errorf("server returned %s", resp.Status)
		}

		var pg pagination.Page
		if err := json.NewDecoder(resp.Body).Decode(&pg); err != nil {
			return pagination.FetchResult{}, err
		}

		cursors[page+1] = pg.NextCursor
		return pagination.FetchResult{Data: pg.Items, HasMore: pg.HasMore}, nil
	}

	ctrl := pagination.NewController(fetch, pageSize)
	defer ctrl.Close()

	ctx := context.Background()
	if err := ctrl.FetchPage(ctx, 1, pagination.FetchOptions{}); err != nil {
		fmt.Fprintln(os.Stderr, "fetch failed:", err)
		os.Exit(1)
	}

	for page := 2; page <= maxPages; page++ {
		st := ctrl.State()
		if st.Err != nil {
			fmt.Fprintln(os.Stderr, "fetch failed:", st.Err)
			os.Exit(1)
		}
		if !st.HasMore {
			break
		}
		if err := ctrl.LoadMore(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "load more failed:", err)
			os.Exit(1)
		}
	}

	for i, item := range ctrl.State().Items {
		switch item.Kind {
		case pagination.KindThread:
			fmt.Printf("%3d  %s  [%s] %s (%d votes)\n", i+1,
				item.CreatedAt.Format(time.RFC3339), item.Category, item.Title, item.Votes)
		default:
			fmt.Printf("%3d  %s  %s: %s\n", i+1,
				item.CreatedAt.Format(time.RFC3339), item.Author.Name, item.Caption)
		}
	}
}
