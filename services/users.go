package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"campuslink/db"
	"campuslink/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

var ErrInvalidCredentials = errors.New("invalid nickname or password")

type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

// RegisterInput carries the profile fields collected at sign-up.
type RegisterInput struct {
	Nickname string
	Password string
	Name     string
	Campus   string
	Branch   string
	Batch    string
}

// Register creates a user with an argon2id-hashed password.
func (us *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Nickname == "" || in.Password == "" {
		return nil, errors.New("nickname and password are required")
	}

	var exists int64
	err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("nickname = ?", in.Nickname).Count(&exists).Error
	if err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, errors.New("user already exists")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:        uuid.NewString(),
		Nickname:  in.Nickname,
		Name:      in.Name,
		Password:  hash,
		Campus:    in.Campus,
		Branch:    in.Branch,
		Batch:     in.Batch,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := db.GetWriteDB(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the password and issues a fresh opaque token, dropping any
// previous ones.
func (us *UserService) Login(ctx context.Context, nickname, password string) (string, *models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).Where("nickname = ?", nickname).First(&user).Error
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !verifyPassword(user.Password, password) {
		return "", nil, ErrInvalidCredentials
	}

	if err := us.Logout(ctx, user.ID); err != nil {
		return "", nil, err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, err
	}
	token := hex.EncodeToString(tokenBytes)

	err = db.GetWriteDB(ctx).Create(&models.UserToken{UserID: user.ID, Token: token}).Error
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// Logout drops all tokens for the user.
func (us *UserService) Logout(ctx context.Context, userID string) error {
	return db.GetWriteDB(ctx).Where("user_id = ?", userID).Delete(&models.UserToken{}).Error
}

// ResolveToken maps an opaque token back to its user id.
func (us *UserService) ResolveToken(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", errors.New("token is empty")
	}
	var t models.UserToken
	err := db.GetReadOnlyDB(ctx).Where("token = ?", token).First(&t).Error
	if err != nil {
		return "", errors.New("invalid token")
	}
	return t.UserID, nil
}

// GetUser loads a profile by id.
func (us *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := db.GetReadOnlyDB(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	return &user, nil
}

// ProfileUpdate carries the editable profile fields; nil means unchanged.
type ProfileUpdate struct {
	Name      *string
	Bio       *string
	AvatarURL *string
	Branch    *string
	Batch     *string
}

// UpdateProfile applies the set fields.
func (us *UserService) UpdateProfile(ctx context.Context, userID string, up ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}
	if up.Name != nil {
		updates["name"] = *up.Name
	}
	if up.Bio != nil {
		updates["bio"] = *up.Bio
	}
	if up.AvatarURL != nil {
		updates["avatar_url"] = *up.AvatarURL
	}
	if up.Branch != nil {
		updates["branch"] = *up.Branch
	}
	if up.Batch != nil {
		updates["batch"] = *up.Batch
	}
	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		err := db.GetWriteDB(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
		if err != nil {
			return nil, err
		}
	}
	return us.GetUser(ctx, userID)
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func verifyPassword(stored, password string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(hash) == parts[1]
}
