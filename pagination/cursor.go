package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// CursorPos is the decoded position of a cursor inside the record stream:
// the id and creation time (unix seconds) of the last item the caller has
// already seen. Records strictly older than this position belong to the
// next page.
type CursorPos struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// EncodeCursor builds an opaque cursor from a list item. Returns nil for a
// nil item. Items without a creation time fall back to the current time so
// the cursor still points somewhere sane.
func EncodeCursor(item *ListItem) *string {
	if item == nil {
		return nil
	}

	ts := item.CreatedAt.Unix()
	if item.CreatedAt.IsZero() {
		ts = time.Now().Unix()
	}

	data, err := json.Marshal(CursorPos{ID: item.ID, Timestamp: ts})
	if err != nil {
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return &encoded
}

// DecodeCursor parses an opaque cursor back into a position. A missing or
// malformed cursor decodes to nil, which callers treat as "start of list" -
// bad input never produces an error here.
func DecodeCursor(cursor *string) *CursorPos {
	if cursor == nil || *cursor == "" {
		return nil
	}

	raw, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil {
		return nil
	}

	var pos CursorPos
	if err := json.Unmarshal(raw, &pos); err != nil {
		return nil
	}
	if pos.ID == "" {
		return nil
	}

	return &pos
}
