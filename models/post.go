package models

import "time"

// Post is a feed post. Author name and avatar are denormalized onto the row
// so list queries do not need a join per item.
type Post struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UID          string     `gorm:"type:varchar(36);index" json:"uid"`
	Caption      string     `gorm:"type:text" json:"caption"`
	ImageURL     string     `gorm:"size:512" json:"image_url"`
	AuthorName   string     `gorm:"size:255" json:"author_name"`
	AuthorAvatar string     `gorm:"size:512" json:"author_avatar"`
	Campus       string     `gorm:"size:120;index" json:"campus"`
	Branch       string     `gorm:"size:120" json:"branch"`
	Batch        string     `gorm:"size:20" json:"batch"`
	Likes        int        `json:"likes"`
	LikedBy      StringList `gorm:"type:text" json:"liked_by"`
	CreatedAt    time.Time  `gorm:"index:idx_posts_created_id" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}

// Comment is a comment on a post.
type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID    string    `gorm:"type:varchar(36);index" json:"post_id"`
	UID       string    `gorm:"type:varchar(36)" json:"uid"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}
