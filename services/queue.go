package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campuslink/cache"
	"campuslink/logger"
	"campuslink/pagination"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	LIST_UPDATE_QUEUE  = "list_update_queue"
	QUEUE_WORKER_COUNT = 5
)

// ListUpdateTask is one piece of deferred cache maintenance: push a new item
// into the hot layer, scrub a deleted one, or rebuild a list from the
// database.
type ListUpdateTask struct {
	Kind   pagination.Kind     `json:"kind"`
	Action string              `json:"action"` // "add", "remove", "rebuild"
	Item   pagination.ListItem `json:"item"`
}

// QueueService moves cache maintenance off the request path: mutations push
// a task onto a Redis list and a worker pool applies it, including the
// targeted invalidation of the in-process layered cache.
type QueueService struct {
	store *ListStore
	cache *cache.Client
}

var QueueServiceInstance *QueueService

func InitQueueService(c *cache.Client) {
	QueueServiceInstance = &QueueService{store: NewListStore(), cache: c}
}

// StartWorkers launches the worker pool.
func (qs *QueueService) StartWorkers(ctx context.Context) {
	for i := 0; i < QUEUE_WORKER_COUNT; i++ {
		go qs.worker(ctx, i)
	}
}

func (qs *QueueService) worker(ctx context.Context, workerID int) {
	logger.Info("list update worker started", zap.Int("worker", workerID))

	for {
		select {
		case <-ctx.Done():
			logger.Info("list update worker stopping", zap.Int("worker", workerID))
			return
		default:
			result, err := RedisClient.BLPop(ctx, 5*time.Second, LIST_UPDATE_QUEUE).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				logger.Warn("worker failed to read task", zap.Int("worker", workerID), zap.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if len(result) < 2 {
				continue
			}

			var task ListUpdateTask
			if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
				logger.Warn("worker failed to unmarshal task", zap.Int("worker", workerID), zap.Error(err))
				continue
			}

			qs.processTask(ctx, &task)
		}
	}
}

func (qs *QueueService) processTask(ctx context.Context, task *ListUpdateTask) {
	switch task.Action {
	case "add":
		qs.store.AddItem(ctx, task.Kind, task.Item)
	case "remove":
		qs.store.RemoveItem(ctx, task.Kind, task.Item.ID)
	case "rebuild":
		if err := qs.store.RebuildList(ctx, task.Kind); err != nil {
			logger.Warn("list rebuild failed", zap.String("kind", string(task.Kind)), zap.Error(err))
			return
		}
	default:
		logger.Warn("unknown list update action", zap.String("action", task.Action))
		return
	}

	// The layered cache holds assembled pages of this kind; mark them stale.
	if qs.cache != nil {
		qs.cache.Invalidate(task.Kind)
	}
}

// EnqueueListUpdate pushes a task onto the queue.
func (qs *QueueService) EnqueueListUpdate(ctx context.Context, kind pagination.Kind, action string, item pagination.ListItem) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not available")
	}

	task := ListUpdateTask{Kind: kind, Action: action, Item: item}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := RedisClient.RPush(ctx, LIST_UPDATE_QUEUE, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

// GetStats reports queue depth for the admin endpoint.
func (qs *QueueService) GetStats(ctx context.Context) (int64, error) {
	if RedisClient == nil {
		return 0, fmt.Errorf("redis not available")
	}
	return RedisClient.LLen(ctx, LIST_UPDATE_QUEUE).Result()
}
