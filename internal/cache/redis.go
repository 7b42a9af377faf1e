package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arpitshukla/eventmaster/config"
	"github.com/arpitshukla/eventmaster/internal/domain"
	"github.com/redis/go-redis/v9"
)

// releaseLockScript deletes the lock key only when the caller still owns it,
// so a holder whose lock already expired cannot release someone else's lock.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisCache struct {
	client    *redis.Client
	eventsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, eventsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		eventsTTL: eventsTTL,
	}
}

func (c *RedisCache) GetEvents(ctx context.Context) ([]domain.Event, error) {
	data, err := c.client.Get(ctx, eventsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *RedisCache) SetEvents(ctx context.Context, events []domain.Event) error {
	payload, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, eventsKey(), payload, c.eventsTTL).Err()
}

func (c *RedisCache) InvalidateEvents(ctx context.Context) error {
	return c.client.Del(ctx, eventsKey()).Err()
}

func (c *RedisCache) AcquireEventLock(ctx context.Context, eventID, token string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, eventLockKey(eventID), token, ttl).Result()
}

func (c *RedisCache) ReleaseEventLock(ctx context.Context, eventID, token string) error {
	return releaseLockScript.Run(ctx, c.client, []string{eventLockKey(eventID)}, token).Err()
}

func eventsKey() string {
	return "cache:events"
}

func eventLockKey(eventID string) string {
	return fmt.Sprintf("lock:event:%s", eventID)
}
