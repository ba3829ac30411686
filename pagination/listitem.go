package pagination

import "time"

// Kind tags which list a record belongs to. Posts and threads share the
// pagination machinery but project different display fields.
type Kind string

const (
	KindPost   Kind = "post"
	KindThread Kind = "thread"
)

// Author is the lightweight author info shown next to a list item.
type Author struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ListItem is the minimal, display-ready projection of a post or thread for
// list rendering. It is produced once at fetch time and only changes through
// an explicit detail merge or interaction patch.
type ListItem struct {
	Kind      Kind      `json:"kind"`
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	CreatedAt time.Time `json:"created_at"`
	Author    Author    `json:"author"`

	Campus string `json:"campus,omitempty"`
	Branch string `json:"branch,omitempty"`
	Batch  string `json:"batch,omitempty"`

	// Post fields.
	Caption  string   `json:"caption,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Likes    int      `json:"likes"`
	Comments int      `json:"comments"`
	LikedBy  []string `json:"liked_by,omitempty"`

	// Thread fields.
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Votes       int      `json:"votes"`
	Upvotes     []string `json:"upvotes,omitempty"`
	Downvotes   []string `json:"downvotes,omitempty"`
	Discussions int      `json:"discussions"`
}

// Detail carries the full-record fields fetched on demand for one item.
// Pointer fields distinguish "not fetched" from a genuine zero value, so a
// merge only ever augments the list projection.
type Detail struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`

	Author      *Author   `json:"author,omitempty"`
	Caption     *string   `json:"caption,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Likes       *int      `json:"likes,omitempty"`
	Comments    *int      `json:"comments,omitempty"`
	LikedBy     *[]string `json:"liked_by,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Votes       *int      `json:"votes,omitempty"`
	Upvotes     *[]string `json:"upvotes,omitempty"`
	Downvotes   *[]string `json:"downvotes,omitempty"`
	Discussions *int      `json:"discussions,omitempty"`
}

// Apply merges the detail into a list item in place. Set fields replace the
// projection's values; unset fields leave them alone.
func (d *Detail) Apply(item *ListItem) {
	if d == nil || item == nil || item.ID != d.ID {
		return
	}
	if d.Author != nil {
		item.Author = *d.Author
	}
	if d.Caption != nil {
		item.Caption = *d.Caption
	}
	if d.ImageURL != nil {
		item.ImageURL = *d.ImageURL
	}
	if d.Likes != nil {
		item.Likes = *d.Likes
	}
	if d.Comments != nil {
		item.Comments = *d.Comments
	}
	if d.LikedBy != nil {
		item.LikedBy = *d.LikedBy
	}
	if d.Title != nil {
		item.Title = *d.Title
	}
	if d.Description != nil {
		item.Description = *d.Description
	}
	if d.Category != nil {
		item.Category = *d.Category
	}
	if d.Votes != nil {
		item.Votes = *d.Votes
	}
	if d.Upvotes != nil {
		item.Upvotes = *d.Upvotes
	}
	if d.Downvotes != nil {
		item.Downvotes = *d.Downvotes
	}
	if d.Discussions != nil {
		item.Discussions = *d.Discussions
	}
}
