package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleSavePost(t *testing.T) {
	setupTestDB(t)
	RedisClient = nil

	seedUser(t, "u1", "Asha", "north")
	seedUser(t, "u2", "Ravi", "north")
	us := NewUserService()
	ps := NewPostService(nil)
	ctx := context.Background()

	post, err := ps.CreatePost(ctx, "u2", "mess review", "")
	require.NoError(t, err)

	saved, err := us.ToggleSavePost(ctx, "u1", post.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	user, err := us.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.SavedPosts.Contains(post.ID))

	// Second toggle removes the bookmark.
	saved, err = us.ToggleSavePost(ctx, "u1", post.ID)
	require.NoError(t, err)
	assert.False(t, saved)

	user, err = us.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, user.SavedPosts.Contains(post.ID))
}

func TestToggleSavePostMissingPost(t *testing.T) {
	setupTestDB(t)
	RedisClient = nil

	seedUser(t, "u1", "Asha", "north")
	us := NewUserService()

	_, err := us.ToggleSavePost(context.Background(), "u1", "no-such-post")
	assert.Error(t, err)
}

func TestToggleSaveThread(t *testing.T) {
	setupTestDB(t)
	RedisClient = nil

	seedUser(t, "u1", "Asha", "north")
	us := NewUserService()
	ts := NewThreadService(nil)
	ctx := context.Background()

	thread, err := ts.CreateThread(ctx, "u1", "hostel wifi", "", "general")
	require.NoError(t, err)

	saved, err := us.ToggleSaveThread(ctx, "u1", thread.ID)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = us.ToggleSaveThread(ctx, "u1", thread.ID)
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestSavedItems(t *testing.T) {
	setupTestDB(t)
	RedisClient = nil

	seedUser(t, "u1", "Asha", "north")
	seedUser(t, "u2", "Ravi", "north")
	us := NewUserService()
	ps := NewPostService(nil)
	threadSvc := NewThreadService(nil)
	ctx := context.Background()

	post, err := ps.CreatePost(ctx, "u2", "saved post", "")
	require.NoError(t, err)
	thread, err := threadSvc.CreateThread(ctx, "u2", "saved thread", "", "general")
	require.NoError(t, err)

	_, err = us.ToggleSavePost(ctx, "u1", post.ID)
	require.NoError(t, err)
	_, err = us.ToggleSaveThread(ctx, "u1", thread.ID)
	require.NoError(t, err)

	posts, threads, err := us.SavedItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Len(t, threads, 1)
	assert.Equal(t, post.ID, posts[0].ID)
	assert.Equal(t, thread.ID, threads[0].ID)

	// A bookmark whose post was deleted since is skipped, not an error.
	require.NoError(t, ps.DeletePost(ctx, "u2", post.ID))
	posts, threads, err = us.SavedItems(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Len(t, threads, 1)
}

func TestKarma(t *testing.T) {
	setupTestDB(t)
	RedisClient = nil

	seedUser(t, "u1", "Asha", "north")
	us := NewUserService()
	ps := NewPostService(nil)
	ts := NewThreadService(nil)
	ctx := context.Background()

	karma, err := us.Karma(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, karma)

	post, err := ps.CreatePost(ctx, "u1", "double digits soon", "")
	require.NoError(t, err)
	_, err = ps.LikePost(ctx, "u2", post.ID)
	require.NoError(t, err)
	_, err = ps.LikePost(ctx, "u3", post.ID)
	require.NoError(t, err)

	thread, err := ts.CreateThread(ctx, "u1", "karma farming", "", "general")
	require.NoError(t, err)
	_, err = ts.Vote(ctx, "u2", thread.ID, VoteUp)
	require.NoError(t, err)
	_, err = ts.Vote(ctx, "u3", thread.ID, VoteUp)
	require.NoError(t, err)
	_, err = ts.Vote(ctx, "u4", thread.ID, VoteDown)
	require.NoError(t, err)

	// 2 post likes plus a net thread score of +1.
	karma, err = us.Karma(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, karma)
}
