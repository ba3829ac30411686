package services

import (
	"context"
	"fmt"
	"time"

	"campuslink/cache"
	"campuslink/db"
	"campuslink/logger"
	"campuslink/models"
	"campuslink/pagination"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostService owns the feed: creating and deleting posts, likes, paginated
// feed pages and post details. Mutations invalidate exactly the caches they
// touch and fan the change out through the maintenance queue.
type PostService struct {
	store *ListStore
	cache *cache.Client
}

func NewPostService(c *cache.Client) *PostService {
	return &PostService{store: NewListStore(), cache: c}
}

// CreatePost stores a new post and pushes it into the caches and live feeds.
func (ps *PostService) CreatePost(ctx context.Context, uid, caption, imageURL string) (*models.Post, error) {
	var author models.User
	if err := db.GetReadOnlyDB(ctx).First(&author, "id = ?", uid).Error; err != nil {
		return nil, fmt.Errorf("author not found: %w", err)
	}

	// Whole seconds: cursors and the sorted-set score carry unix seconds,
	// and the keyset predicate compares created_at against that granularity.
	// A sub-second timestamp would fall between "older than the cursor" and
	// "equal to it" and vanish from the page walk.
	now := time.Now().UTC().Truncate(time.Second)
	post := &models.Post{
		ID:           uuid.NewString(),
		UID:          uid,
		Caption:      caption,
		ImageURL:     imageURL,
		AuthorName:   author.Name,
		AuthorAvatar: author.AvatarURL,
		Campus:       author.Campus,
		Branch:       author.Branch,
		Batch:        author.Batch,
		LikedBy:      models.StringList{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := db.GetWriteDB(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	item := pagination.ProjectPost(post)
	if QueueServiceInstance != nil && RedisClient != nil {
		go QueueServiceInstance.EnqueueListUpdate(context.Background(), pagination.KindPost, "add", item)
	} else {
		// No queue available: apply the cache maintenance inline.
		ps.store.AddItem(ctx, pagination.KindPost, item)
		if ps.cache != nil {
			ps.cache.Invalidate(pagination.KindPost)
		}
	}

	if err := PublishFeedEvent(ctx, FeedEvent{
		Event:     "post_created",
		Kind:      string(pagination.KindPost),
		ItemID:    post.ID,
		AuthorID:  post.UID,
		Campus:    post.Campus,
		CreatedAt: post.CreatedAt,
	}); err != nil {
		logger.Debug("feed event publish failed, using direct push", zap.Error(err))
		BroadcastCampus(post.Campus, "post_created", post.ID)
	}

	return post, nil
}

// DeletePost removes a post the user owns and scrubs it from the caches.
func (ps *PostService) DeletePost(ctx context.Context, uid, postID string) error {
	var post models.Post
	err := db.GetWriteDB(ctx).Where("id = ? AND uid = ?", postID, uid).First(&post).Error
	if err != nil {
		return fmt.Errorf("post not found or access denied: %w", err)
	}

	if err := db.GetWriteDB(ctx).Delete(&post).Error; err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if QueueServiceInstance != nil && RedisClient != nil {
		go QueueServiceInstance.EnqueueListUpdate(context.Background(), pagination.KindPost, "remove", pagination.ListItem{Kind: pagination.KindPost, ID: postID})
	} else {
		ps.store.RemoveItem(ctx, pagination.KindPost, postID)
		if ps.cache != nil {
			ps.cache.Invalidate(pagination.KindPost)
		}
	}
	if ps.cache != nil {
		ps.cache.InvalidateItem(pagination.KindPost, postID)
	}

	return nil
}

// LikePost toggles uid's like. The cached projection is patched first so
// readers see the change immediately; if the authoritative write then fails
// the inverse patch is applied, so the cache never drifts from the database.
func (ps *PostService) LikePost(ctx context.Context, uid, postID string) (*models.Post, error) {
	var post models.Post
	if err := db.GetWriteDB(ctx).First(&post, "id = ?", postID).Error; err != nil {
		return nil, fmt.Errorf("post not found: %w", err)
	}

	liked := post.LikedBy.Contains(uid)
	before := pagination.ProjectPost(&post)

	if liked {
		post.LikedBy = post.LikedBy.Without(uid)
	} else {
		post.LikedBy = append(post.LikedBy, uid)
	}
	post.Likes = len(post.LikedBy)

	// Optimistic patch.
	after := pagination.ProjectPost(&post)
	ps.store.PatchItem(ctx, pagination.KindPost, after)

	err := db.GetWriteDB(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Updates(map[string]interface{}{"liked_by": post.LikedBy, "likes": post.Likes}).Error
	if err != nil {
		// Inverse patch: the write failed, put the old projection back.
		ps.store.PatchItem(ctx, pagination.KindPost, before)
		return nil, fmt.Errorf("failed to update likes: %w", err)
	}

	if ps.cache != nil {
		ps.cache.InvalidateItem(pagination.KindPost, postID)
	}

	return &post, nil
}

// FeedPage serves one page of the feed using the cursor contract.
func (ps *PostService) FeedPage(ctx context.Context, cursor *string, pageSize int) (pagination.Page, error) {
	pos := pagination.DecodeCursor(cursor)
	items, err := ps.store.QueryPage(ctx, pagination.KindPost, pos, pageSize)
	if err != nil {
		return pagination.Page{}, err
	}
	return pagination.AssemblePage(items, pageSize), nil
}

// GetPostDetails fetches the full post record for detail enrichment.
func (ps *PostService) GetPostDetails(ctx context.Context, postID string) (*pagination.Detail, error) {
	var post models.Post
	if err := db.GetReadOnlyDB(ctx).First(&post, "id = ?", postID).Error; err != nil {
		return nil, fmt.Errorf("post not found: %w", err)
	}

	var comments int64
	if err := db.GetReadOnlyDB(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	nComments := int(comments)
	likedBy := []string(post.LikedBy)
	likes := post.Likes
	return &pagination.Detail{
		Kind:     pagination.KindPost,
		ID:       post.ID,
		Caption:  &post.Caption,
		ImageURL: &post.ImageURL,
		Author:   &pagination.Author{Name: post.AuthorName, AvatarURL: post.AuthorAvatar},
		Likes:    &likes,
		LikedBy:  &likedBy,
		Comments: &nComments,
	}, nil
}

// AddComment stores a comment and bumps the cached comment count through
// targeted invalidation of the post's detail entry.
func (ps *PostService) AddComment(ctx context.Context, uid, postID, body string) (*models.Comment, error) {
	var exists int64
	if err := db.GetReadOnlyDB(ctx).Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("post not found")
	}

	comment := &models.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		UID:       uid,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.GetWriteDB(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if ps.cache != nil {
		ps.cache.InvalidateItem(pagination.KindPost, postID)
	}
	return comment, nil
}
