package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"daytasks/domain"
)

type backend interface {
	FetchTasks(ctx context.Context, ownerID, day string) ([]domain.Task, error)
	CreateTask(ctx context.Context, task domain.Task) (string, error)
	SetCompleted(ctx context.Context, ownerID, day, id string, completed bool) error
	DeleteTask(ctx context.Context, ownerID, day, id string) error
}

// Cache wraps a Storage instance with Redis-backed caching of day
// snapshots. Every write evicts the owner's day so the next read, and the
// live feed's refetch, observe the store's current state.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis
// client and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func (c *Cache) FetchTasks(ctx context.Context, ownerID, day string) ([]domain.Task, error) {
	if tasks, ok := c.loadFromCache(ctx, ownerID, day); ok {
		return tasks, nil
	}

	tasks, err := c.base.FetchTasks(ctx, ownerID, day)
	if err != nil {
		return nil, err
	}

	c.store(ctx, ownerID, day, tasks)
	return tasks, nil
}

func (c *Cache) CreateTask(ctx context.Context, task domain.Task) (string, error) {
	id, err := c.base.CreateTask(ctx, task)
	if err != nil {
		return "", err
	}
	c.evict(ctx, task.OwnerID, task.Day)
	return id, nil
}

func (c *Cache) SetCompleted(ctx context.Context, ownerID, day, id string, completed bool) error {
	if err := c.base.SetCompleted(ctx, ownerID, day, id, completed); err != nil {
		return err
	}
	c.evict(ctx, ownerID, day)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, ownerID, day, id string) error {
	if err := c.base.DeleteTask(ctx, ownerID, day, id); err != nil {
		return err
	}
	c.evict(ctx, ownerID, day)
	return nil
}

func (c *Cache) loadFromCache(ctx context.Context, ownerID, day string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	key := tasksCacheKey(ownerID, day)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, ownerID, day string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(ownerID, day), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, ownerID, day string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey(ownerID, day)).Result()
}

func tasksCacheKey(ownerID, day string) string {
	return "tasks:" + ownerID + ":" + day
}
