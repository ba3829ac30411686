package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campuslink/db"
	"campuslink/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SquadService struct{}

func NewSquadService() *SquadService {
	return &SquadService{}
}

// CreateSquad creates a squad with the creator as owner.
func (ss *SquadService) CreateSquad(ctx context.Context, ownerID, name, about string) (*models.Squad, error) {
	if name == "" {
		return nil, errors.New("squad name is required")
	}

	var owner models.User
	if err := db.GetReadOnlyDB(ctx).First(&owner, "id = ?", ownerID).Error; err != nil {
		return nil, fmt.Errorf("owner not found: %w", err)
	}

	squad := &models.Squad{
		ID:        uuid.NewString(),
		Name:      name,
		About:     about,
		OwnerID:   ownerID,
		Campus:    owner.Campus,
		CreatedAt: time.Now().UTC(),
	}

	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(squad).Error; err != nil {
			return err
		}
		return tx.Create(&models.SquadMember{
			SquadID:  squad.ID,
			UserID:   ownerID,
			Role:     "owner",
			JoinedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create squad: %w", err)
	}
	return squad, nil
}

// JoinSquad adds the user as a member.
func (ss *SquadService) JoinSquad(ctx context.Context, squadID, userID string) error {
	var exists int64
	err := db.GetReadOnlyDB(ctx).Model(&models.SquadMember{}).
		Where("squad_id = ? AND user_id = ?", squadID, userID).Count(&exists).Error
	if err != nil {
		return err
	}
	if exists > 0 {
		return errors.New("already a member")
	}

	return db.GetWriteDB(ctx).Create(&models.SquadMember{
		SquadID:  squadID,
		UserID:   userID,
		Role:     "member",
		JoinedAt: time.Now().UTC(),
	}).Error
}

// LeaveSquad removes the user. The owner cannot leave their own squad.
func (ss *SquadService) LeaveSquad(ctx context.Context, squadID, userID string) error {
	var squad models.Squad
	if err := db.GetReadOnlyDB(ctx).First(&squad, "id = ?", squadID).Error; err != nil {
		return fmt.Errorf("squad not found: %w", err)
	}
	if squad.OwnerID == userID {
		return errors.New("owner cannot leave the squad")
	}

	return db.GetWriteDB(ctx).
		Where("squad_id = ? AND user_id = ?", squadID, userID).
		Delete(&models.SquadMember{}).Error
}

// SquadState is the squad plus its member list, the shape the client renders.
type SquadState struct {
	Squad   models.Squad         `json:"squad"`
	Members []models.SquadMember `json:"members"`
}

// GetSquadState loads one squad and its members.
func (ss *SquadService) GetSquadState(ctx context.Context, squadID string) (*SquadState, error) {
	var squad models.Squad
	if err := db.GetReadOnlyDB(ctx).First(&squad, "id = ?", squadID).Error; err != nil {
		return nil, fmt.Errorf("squad not found: %w", err)
	}

	var members []models.SquadMember
	err := db.GetReadOnlyDB(ctx).
		Where("squad_id = ?", squadID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	return &SquadState{Squad: squad, Members: members}, nil
}

// ListSquads lists squads for a campus, newest first.
func (ss *SquadService) ListSquads(ctx context.Context, campus string, limit int) ([]models.Squad, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var squads []models.Squad
	query := db.GetReadOnlyDB(ctx).Order("created_at DESC").Limit(limit)
	if campus != "" {
		query = query.Where("campus = ?", campus)
	}
	if err := query.Find(&squads).Error; err != nil {
		return nil, err
	}
	return squads, nil
}
