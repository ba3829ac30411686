package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerTestUser(t *testing.T, us *UserService, nickname string) string {
	t.Helper()
	user, err := us.Register(context.Background(), RegisterInput{
		Nickname: nickname,
		Password: "hunter22",
		Name:     "Test User",
		Campus:   "north",
	})
	require.NoError(t, err)
	return user.ID
}

func TestRegisterAndLogin(t *testing.T) {
	setupTestDB(t)
	us := NewUserService()
	ctx := context.Background()

	id := registerTestUser(t, us, "asha")
	assert.NotEmpty(t, id)

	token, user, err := us.Login(ctx, "asha", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, id, user.ID)

	resolved, err := us.ResolveToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
}

func TestRegisterDuplicateNickname(t *testing.T) {
	setupTestDB(t)
	us := NewUserService()

	registerTestUser(t, us, "asha")
	_, err := us.Register(context.Background(), RegisterInput{Nickname: "asha", Password: "other"})
	assert.Error(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	setupTestDB(t)
	us := NewUserService()

	registerTestUser(t, us, "asha")
	_, _, err := us.Login(context.Background(), "asha", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = us.Login(context.Background(), "nobody", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRotatesToken(t *testing.T) {
	setupTestDB(t)
	us := NewUserService()
	ctx := context.Background()

	registerTestUser(t, us, "asha")

	first, _, err := us.Login(ctx, "asha", "hunter22")
	require.NoError(t, err)
	second, _, err := us.Login(ctx, "asha", "hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = us.ResolveToken(ctx, first)
	assert.Error(t, err, "an old token dies on re-login")
	_, err = us.ResolveToken(ctx, second)
	assert.NoError(t, err)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	setupTestDB(t)
	us := NewUserService()
	ctx := context.Background()

	id := registerTestUser(t, us, "asha")
	token, _, err := us.Login(ctx, "asha", "hunter22")
	require.NoError(t, err)

	require.NoError(t, us.Logout(ctx, id))
	_, err = us.ResolveToken(ctx, token)
	assert.Error(t, err)
}

func TestUpdateProfilePartial(t *testing.T) {
	setupTestDB(t)
	us := NewUserService()
	ctx := context.Background()

	id := registerTestUser(t, us, "asha")

	bio := "final year, loves chai"
	user, err := us.UpdateProfile(ctx, id, ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, bio, user.Bio)
	assert.Equal(t, "Test User", user.Name, "unset fields stay as they were")
}
