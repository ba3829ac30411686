package models

import "time"

// Thread is a Q&A / discussion thread shown on the threads board.
type Thread struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UID          string     `gorm:"type:varchar(36);index" json:"uid"`
	Title        string     `gorm:"size:255" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Category     string     `gorm:"size:60;index" json:"category"`
	AuthorName   string     `gorm:"size:255" json:"author_name"`
	AuthorAvatar string     `gorm:"size:512" json:"author_avatar"`
	Campus       string     `gorm:"size:120;index" json:"campus"`
	Branch       string     `gorm:"size:120" json:"branch"`
	Batch        string     `gorm:"size:20" json:"batch"`
	Upvotes      StringList `gorm:"type:text" json:"upvotes"`
	Downvotes    StringList `gorm:"type:text" json:"downvotes"`
	Discussions  int        `json:"discussions"`
	CreatedAt    time.Time  `gorm:"index:idx_threads_created_id" json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Thread) TableName() string {
	return "threads"
}

// Score is the thread's net vote count.
func (t *Thread) Score() int {
	return len(t.Upvotes) - len(t.Downvotes)
}
