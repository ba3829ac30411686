package models

import (
	"time"
)

type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Nickname  string    `gorm:"size:60;uniqueIndex" json:"nickname"`
	Name      string    `gorm:"size:255" json:"name"`
	Password  string    `gorm:"size:255" json:"-"`
	AvatarURL string    `gorm:"size:512" json:"avatar_url"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Campus    string    `gorm:"size:120;index" json:"campus"`
	Branch    string    `gorm:"size:120" json:"branch"`
	Batch     string    `gorm:"size:20" json:"batch"`

	SavedPosts   StringList `gorm:"type:text" json:"saved_posts"`
	SavedThreads StringList `gorm:"type:text" json:"saved_threads"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type UserToken struct {
	ID     int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"type:varchar(36);index:user_token_idx,unique" json:"user_id"`
	Token  string `gorm:"size:255;index:user_token_idx,unique" json:"token"`
}

func (UserToken) TableName() string {
	return "user_tokens"
}

type Migration struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:60;uniqueIndex" json:"name"`
	AppliedAt time.Time `gorm:"autoCreateTime" json:"applied_at"`
}
