package pagination

import "campuslink/models"

// ProjectPost reduces a full post row to the fields the feed renders.
// Missing author info degrades to defaults instead of failing.
func ProjectPost(p *models.Post) ListItem {
	item := ListItem{
		Kind:      KindPost,
		ID:        p.ID,
		UID:       p.UID,
		CreatedAt: p.CreatedAt,
		Author:    projectAuthor(p.AuthorName, p.AuthorAvatar),
		Campus:    p.Campus,
		Branch:    p.Branch,
		Batch:     p.Batch,
		Caption:   p.Caption,
		ImageURL:  p.ImageURL,
		Likes:     p.Likes,
		LikedBy:   append([]string(nil), p.LikedBy...),
	}
	if item.LikedBy == nil {
		item.LikedBy = []string{}
	}
	return item
}

// ProjectThread reduces a full thread row to the fields the board renders.
func ProjectThread(t *models.Thread) ListItem {
	item := ListItem{
		Kind:        KindThread,
		ID:          t.ID,
		UID:         t.UID,
		CreatedAt:   t.CreatedAt,
		Author:      projectAuthor(t.AuthorName, t.AuthorAvatar),
		Campus:      t.Campus,
		Branch:      t.Branch,
		Batch:       t.Batch,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		Votes:       t.Score(),
		Upvotes:     append([]string(nil), t.Upvotes...),
		Downvotes:   append([]string(nil), t.Downvotes...),
		Discussions: t.Discussions,
	}
	if item.Upvotes == nil {
		item.Upvotes = []string{}
	}
	if item.Downvotes == nil {
		item.Downvotes = []string{}
	}
	return item
}

func projectAuthor(name, avatar string) Author {
	if name == "" {
		name = "User"
	}
	return Author{Name: name, AvatarURL: avatar}
}
