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

// VoteDirection is "up" or "down".
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ThreadService owns the Q&A board: thread creation, voting and the
// paginated thread list.
type ThreadService struct {
	store *ListStore
	cache *cache.Client
}

func NewThreadService(c *cache.Client) *ThreadService {
	return &ThreadService{store: NewListStore(), cache: c}
}

// CreateThread stores a new thread and pushes it into the caches.
func (ts *ThreadService) CreateThread(ctx context.Context, uid, title, description, category string) (*models.Thread, error) {
	var author models.User
	if err := db.GetReadOnlyDB(ctx).First(&author, "id = ?", uid).Error; err != nil {
		return nil, fmt.Errorf("author not found: %w", err)
	}

	// Same whole-second rule as posts: list timestamps match the seconds
	// granularity of cursors and the sorted-set score.
	now := time.Now().UTC().Truncate(time.Second)
	thread := &models.Thread{
		ID:           uuid.NewString(),
		UID:          uid,
		Title:        title,
		Description:  description,
		Category:     category,
		AuthorName:   author.Name,
		AuthorAvatar: author.AvatarURL,
		Campus:       author.Campus,
		Branch:       author.Branch,
		Batch:        author.Batch,
		Upvotes:      models.StringList{},
		Downvotes:    models.StringList{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := db.GetWriteDB(ctx).Create(thread).Error; err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	item := pagination.ProjectThread(thread)
	if QueueServiceInstance != nil && RedisClient != nil {
		go QueueServiceInstance.EnqueueListUpdate(context.Background(), pagination.KindThread, "add", item)
	} else {
		ts.store.AddItem(ctx, pagination.KindThread, item)
		if ts.cache != nil {
			ts.cache.Invalidate(pagination.KindThread)
		}
	}

	if err := PublishFeedEvent(ctx, FeedEvent{
		Event:     "thread_created",
		Kind:      string(pagination.KindThread),
		ItemID:    thread.ID,
		AuthorID:  thread.UID,
		Campus:    thread.Campus,
		CreatedAt: thread.CreatedAt,
	}); err != nil {
		logger.Debug("feed event publish failed, using direct push", zap.Error(err))
		BroadcastCampus(thread.Campus, "thread_created", thread.ID)
	}

	return thread, nil
}

// Vote applies uid's vote. Voting the same direction again removes the vote;
// voting the opposite direction switches it. Same optimistic-patch contract
// as likes: patch the cache, write, and undo the patch if the write fails.
func (ts *ThreadService) Vote(ctx context.Context, uid, threadID string, dir VoteDirection) (*models.Thread, error) {
	if dir != VoteUp && dir != VoteDown {
		return nil, fmt.Errorf("invalid vote direction: %s", dir)
	}

	var thread models.Thread
	if err := db.GetWriteDB(ctx).First(&thread, "id = ?", threadID).Error; err != nil {
		return nil, fmt.Errorf("thread not found: %w", err)
	}

	before := pagination.ProjectThread(&thread)

	switch dir {
	case VoteUp:
		if thread.Upvotes.Contains(uid) {
			thread.Upvotes = thread.Upvotes.Without(uid)
		} else {
			thread.Upvotes = append(thread.Upvotes, uid)
			thread.Downvotes = thread.Downvotes.Without(uid)
		}
	case VoteDown:
		if thread.Downvotes.Contains(uid) {
			thread.Downvotes = thread.Downvotes.Without(uid)
		} else {
			thread.Downvotes = append(thread.Downvotes, uid)
			thread.Upvotes = thread.Upvotes.Without(uid)
		}
	}

	after := pagination.ProjectThread(&thread)
	ts.store.PatchItem(ctx, pagination.KindThread, after)

	err := db.GetWriteDB(ctx).Model(&models.Thread{}).
		Where("id = ?", threadID).
		Updates(map[string]interface{}{"upvotes": thread.Upvotes, "downvotes": thread.Downvotes}).Error
	if err != nil {
		ts.store.PatchItem(ctx, pagination.KindThread, before)
		return nil, fmt.Errorf("failed to update votes: %w", err)
	}

	if ts.cache != nil {
		ts.cache.InvalidateItem(pagination.KindThread, threadID)
	}

	return &thread, nil
}

// ThreadsPage serves one page of the thread board.
func (ts *ThreadService) ThreadsPage(ctx context.Context, cursor *string, pageSize int) (pagination.Page, error) {
	pos := pagination.DecodeCursor(cursor)
	items, err := ts.store.QueryPage(ctx, pagination.KindThread, pos, pageSize)
	if err != nil {
		return pagination.Page{}, err
	}
	return pagination.AssemblePage(items, pageSize), nil
}

// GetThreadDetails fetches the full thread record for detail enrichment.
func (ts *ThreadService) GetThreadDetails(ctx context.Context, threadID string) (*pagination.Detail, error) {
	var thread models.Thread
	if err := db.GetReadOnlyDB(ctx).First(&thread, "id = ?", threadID).Error; err != nil {
		return nil, fmt.Errorf("thread not found: %w", err)
	}

	upvotes := []string(thread.Upvotes)
	downvotes := []string(thread.Downvotes)
	votes := thread.Score()
	return &pagination.Detail{
		Kind:        pagination.KindThread,
		ID:          thread.ID,
		Title:       &thread.Title,
		Description: &thread.Description,
		Category:    &thread.Category,
		Author:      &pagination.Author{Name: thread.AuthorName, AvatarURL: thread.AuthorAvatar},
		Votes:       &votes,
		Upvotes:     &upvotes,
		Downvotes:   &downvotes,
		Discussions: &thread.Discussions,
	}, nil
}
