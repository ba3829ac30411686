package services

import (
	"context"
	"fmt"
	"time"

	"campuslink/db"
	"campuslink/models"
	"campuslink/pagination"
)

// ToggleSavePost flips postID in the user's bookmark list and reports whether
// the post is saved afterwards.
func (us *UserService) ToggleSavePost(ctx context.Context, userID, postID string) (bool, error) {
	var exists int64
	if err := db.GetReadOnlyDB(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
		return false, err
	}
	if exists == 0 {
		return false, fmt.Errorf("post not found")
	}

	user, err := us.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	saved := !user.SavedPosts.Contains(postID)
	if saved {
		user.SavedPosts = append(user.SavedPosts, postID)
	} else {
		user.SavedPosts = user.SavedPosts.Without(postID)
	}

	err = db.GetWriteDB(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"saved_posts": user.SavedPosts, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return false, fmt.Errorf("failed to update bookmarks: %w", err)
	}
	return saved, nil
}

// ToggleSaveThread flips threadID in the user's thread bookmark list.
func (us *UserService) ToggleSaveThread(ctx context.Context, userID, threadID string) (bool, error) {
	var exists int64
	if err := db.GetReadOnlyDB(ctx).Model(&models.Thread{}).Where("id = ?", threadID).Count(&exists).Error; err != nil {
		return false, err
	}
	if exists == 0 {
		return false, fmt.Errorf("thread not found")
	}

	user, err := us.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}

	saved := !user.SavedThreads.Contains(threadID)
	if saved {
		user.SavedThreads = append(user.SavedThreads, threadID)
	} else {
		user.SavedThreads = user.SavedThreads.Without(threadID)
	}

	err = db.GetWriteDB(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{"saved_threads": user.SavedThreads, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return false, fmt.Errorf("failed to update bookmarks: %w", err)
	}
	return saved, nil
}

// SavedItems loads the user's bookmarked posts and threads as list
// projections. Bookmarks pointing at deleted records are skipped silently.
func (us *UserService) SavedItems(ctx context.Context, userID string) ([]pagination.ListItem, []pagination.ListItem, error) {
	user, err := us.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	posts := make([]pagination.ListItem, 0, len(user.SavedPosts))
	if len(user.SavedPosts) > 0 {
		var records []models.Post
		err := db.GetReadOnlyDB(ctx).
			Where("id IN ?", []string(user.SavedPosts)).
			Order("created_at DESC, id DESC").
			Find(&records).Error
		if err != nil {
			return nil, nil, err
		}
		for i := range records {
			posts = append(posts, pagination.ProjectPost(&records[i]))
		}
	}

	threads := make([]pagination.ListItem, 0, len(user.SavedThreads))
	if len(user.SavedThreads) > 0 {
		var records []models.Thread
		err := db.GetReadOnlyDB(ctx).
			Where("id IN ?", []string(user.SavedThreads)).
			Order("created_at DESC, id DESC").
			Find(&records).Error
		if err != nil {
			return nil, nil, err
		}
		for i := range records {
			threads = append(threads, pagination.ProjectThread(&records[i]))
		}
	}

	return posts, threads, nil
}

// Karma sums the reactions a user earned: one point per like on their posts
// plus the net vote count on each of their threads.
func (us *UserService) Karma(ctx context.Context, userID string) (int, error) {
	var postLikes int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Post{}).
		Where("uid = ?", userID).
		Select("COALESCE(SUM(likes), 0)").
		Scan(&postLikes).Error
	if err != nil {
		return 0, err
	}

	// Vote lists are JSON text columns, so net thread votes are summed here
	// instead of in SQL.
	var threads []models.Thread
	if err := db.GetReadOnlyDB(ctx).Where("uid = ?", userID).Find(&threads).Error; err != nil {
		return 0, err
	}

	karma := int(postLikes)
	for i := range threads {
		karma += threads[i].Score()
	}
	return karma, nil
}
