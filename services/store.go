package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campuslink/db"
	"campuslink/logger"
	"campuslink/models"
	"campuslink/pagination"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	LIST_CACHE_TTL  = 24 * time.Hour // TTL for the hot list cache
	MAX_LIST_SIZE   = 1000           // cap on cached items per list
	LIST_KEY_PREFIX = "list:"        // sorted set per kind, score = created_at unix
	ITEM_KEY_PREFIX = "item:"        // JSON blob per cached item
)

// ListStore serves ordered list pages for posts and threads. Reads go to a
// Redis sorted-set hot layer first and fall back to the database; the hot
// layer is repopulated in the background after a miss.
//
// Contract: items come back newest first, and a non-nil cursor returns items
// strictly older than the cursor position, ties broken by id, so no item is
// skipped or duplicated across page boundaries.
type ListStore struct{}

func NewListStore() *ListStore {
	return &ListStore{}
}

func listKey(kind pagination.Kind) string {
	return LIST_KEY_PREFIX + string(kind)
}

func itemKey(kind pagination.Kind, id string) string {
	return fmt.Sprintf("%s%s:%s", ITEM_KEY_PREFIX, kind, id)
}

// QueryPage fetches up to limit items of the kind after the cursor.
func (s *ListStore) QueryPage(ctx context.Context, kind pagination.Kind, cursor *pagination.CursorPos, limit int) ([]pagination.ListItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	items, err := s.getListFromCache(ctx, kind, cursor, limit)
	if err == nil && len(items) >= limit {
		return items, nil
	}

	items, err = s.queryPageFromDB(ctx, kind, cursor, limit)
	if err != nil {
		return nil, err
	}

	go s.cacheItems(context.Background(), kind, items)

	return items, nil
}

// queryPageFromDB runs the keyset query against the read replicas. The
// composite comparison keeps the ordering stable under concurrent inserts:
// rows created before the cursor position stay reachable no matter what gets
// inserted above it.
func (s *ListStore) queryPageFromDB(ctx context.Context, kind pagination.Kind, cursor *pagination.CursorPos, limit int) ([]pagination.ListItem, error) {
	orm := db.GetReadOnlyDB(ctx)

	switch kind {
	case pagination.KindPost:
		query := orm.Model(&models.Post{}).
			Order("created_at DESC, id DESC").
			Limit(limit)
		if cursor != nil {
			t := time.Unix(cursor.Timestamp, 0).UTC()
			query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", t, t, cursor.ID)
		}
		var posts []models.Post
		if err := query.Find(&posts).Error; err != nil {
			return nil, fmt.Errorf("failed to query posts: %w", err)
		}
		items := make([]pagination.ListItem, 0, len(posts))
		for i := range posts {
			items = append(items, pagination.ProjectPost(&posts[i]))
		}
		return items, nil

	case pagination.KindThread:
		query := orm.Model(&models.Thread{}).
			Order("created_at DESC, id DESC").
			Limit(limit)
		if cursor != nil {
			t := time.Unix(cursor.Timestamp, 0).UTC()
			query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", t, t, cursor.ID)
		}
		var threads []models.Thread
		if err := query.Find(&threads).Error; err != nil {
			return nil, fmt.Errorf("failed to query threads: %w", err)
		}
		items := make([]pagination.ListItem, 0, len(threads))
		for i := range threads {
			items = append(items, pagination.ProjectThread(&threads[i]))
		}
		return items, nil

	default:
		return nil, fmt.Errorf("unknown list kind: %s", kind)
	}
}

// getListFromCache reads a page window out of the Redis sorted set. A cursor
// whose id is not in the set, or a window shorter than requested, reports a
// miss so the caller falls through to the database instead of mistaking a
// truncated cache for the end of the list.
func (s *ListStore) getListFromCache(ctx context.Context, kind pagination.Kind, cursor *pagination.CursorPos, limit int) ([]pagination.ListItem, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("redis not available")
	}

	key := listKey(kind)
	var start, stop int64 = 0, int64(limit - 1)

	if cursor != nil {
		rank, err := RedisClient.ZRevRank(ctx, key, cursor.ID).Result()
		if err != nil {
			return nil, err
		}
		start = rank + 1
		stop = start + int64(limit) - 1
	}

	ids, err := RedisClient.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) < limit {
		return nil, fmt.Errorf("cache window short: %d < %d", len(ids), limit)
	}

	pipe := RedisClient.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, itemKey(kind, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	items := make([]pagination.ListItem, 0, len(ids))
	for _, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			// A missing blob means the cache is partially evicted; bail out
			// rather than serve a page with holes.
			return nil, err
		}
		var item pagination.ListItem
		if err := json.Unmarshal([]byte(val), &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

// cacheItems adds items to the hot layer: sorted-set membership plus one
// JSON blob per item, trimmed to the size cap.
func (s *ListStore) cacheItems(ctx context.Context, kind pagination.Kind, items []pagination.ListItem) {
	if len(items) == 0 || RedisClient == nil {
		return
	}

	key := listKey(kind)
	pipe := RedisClient.Pipeline()

	for _, item := range items {
		pipe.ZAdd(ctx, key, &redis.Z{
			Score:  float64(item.CreatedAt.Unix()),
			Member: item.ID,
		})
		data, err := json.Marshal(item)
		if err != nil {
			logger.Warn("failed to marshal list item for caching", zap.Error(err))
			continue
		}
		pipe.Set(ctx, itemKey(kind, item.ID), data, LIST_CACHE_TTL)
	}

	pipe.ZRemRangeByRank(ctx, key, 0, -MAX_LIST_SIZE-1)
	pipe.Expire(ctx, key, LIST_CACHE_TTL)

	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("failed to populate list cache", zap.String("kind", string(kind)), zap.Error(err))
	}
}

// AddItem inserts one freshly created item into the hot layer.
func (s *ListStore) AddItem(ctx context.Context, kind pagination.Kind, item pagination.ListItem) {
	s.cacheItems(ctx, kind, []pagination.ListItem{item})
}

// RemoveItem drops one item from the hot layer.
func (s *ListStore) RemoveItem(ctx context.Context, kind pagination.Kind, id string) {
	if RedisClient == nil {
		return
	}
	pipe := RedisClient.Pipeline()
	pipe.ZRem(ctx, listKey(kind), id)
	pipe.Del(ctx, itemKey(kind, id))
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("failed to remove item from list cache", zap.String("id", id), zap.Error(err))
	}
}

// PatchItem overwrites one item's cached blob after an interaction (like,
// vote) so the hot layer reflects the patch immediately.
func (s *ListStore) PatchItem(ctx context.Context, kind pagination.Kind, item pagination.ListItem) {
	if RedisClient == nil {
		return
	}
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := RedisClient.Set(ctx, itemKey(kind, item.ID), data, LIST_CACHE_TTL).Err(); err != nil {
		logger.Warn("failed to patch cached item", zap.String("id", item.ID), zap.Error(err))
	}
}

// InvalidateList drops the whole hot layer for a kind. The blobs keep their
// TTL; only the ordering set goes, which is what forces a DB rebuild.
func (s *ListStore) InvalidateList(ctx context.Context, kind pagination.Kind) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not available")
	}
	return RedisClient.Del(ctx, listKey(kind)).Err()
}

// RebuildList repopulates the hot layer for a kind from the database.
func (s *ListStore) RebuildList(ctx context.Context, kind pagination.Kind) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not available")
	}

	RedisClient.Del(ctx, listKey(kind))

	items, err := s.queryPageFromDB(ctx, kind, nil, 100)
	if err != nil {
		return err
	}
	s.cacheItems(ctx, kind, items)
	return nil
}
