package pagination

// Page is one bounded batch of list items plus pagination metadata, the
// standard shape every list query returns.
type Page struct {
	Items      []ListItem `json:"items"`
	NextCursor *string    `json:"next_cursor"`
	HasMore    bool       `json:"has_more"`
	Count      int        `json:"count"`
}

// AssemblePage turns a raw fetched batch into a Page. The store is asked for
// exactly pageSize records, so a full batch means more may exist; the true
// end of data costs one extra empty-page request, which we accept to keep
// the store query simple.
//
// The next cursor is derived from the last item actually returned, never
// from anything beyond it. The next fetch therefore starts strictly after
// the last item the user has seen, and items inserted above the cursor
// window cannot shift page boundaries below it.
func AssemblePage(fetched []ListItem, pageSize int) Page {
	hasMore := len(fetched) >= pageSize

	items := fetched
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	var nextCursor *string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = EncodeCursor(&last)
	}

	return Page{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
		Count:      len(items),
	}
}
