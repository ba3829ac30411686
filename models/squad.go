package models

import "time"

// Squad is a small self-organized student group.
type Squad struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"size:120" json:"name"`
	About     string    `gorm:"type:text" json:"about"`
	OwnerID   string    `gorm:"type:varchar(36);index" json:"owner_id"`
	Campus    string    `gorm:"size:120;index" json:"campus"`
	CreatedAt time.Time `json:"created_at"`
}

func (Squad) TableName() string {
	return "squads"
}

// SquadMember links a user to a squad.
// Role: "owner" or "member".
type SquadMember struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SquadID  string    `gorm:"type:varchar(36);index:idx_squad_user,unique" json:"squad_id"`
	UserID   string    `gorm:"type:varchar(36);index:idx_squad_user,unique" json:"user_id"`
	Role     string    `gorm:"size:20" json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func (SquadMember) TableName() string {
	return "squad_members"
}
