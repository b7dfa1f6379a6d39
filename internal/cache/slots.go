// Package cache keeps generated display slots in Redis. Entries are advisory;
// admission never reads them.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/redis/go-redis/v9"

	"agenda/backend/internal/scheduling"
)

const keyPrefix = "agenda:slots:"

// SlotCache stores one hash per date with a field per session duration, so a
// single DEL drops every duration of a day.
type SlotCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewSlotCache(rdb redis.Cmdable, ttl time.Duration) *SlotCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &SlotCache{rdb: rdb, ttl: ttl}
}

func dateKey(date civil.Date) string {
	return keyPrefix + date.String()
}

func durationField(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Minute), 10)
}

func (c *SlotCache) Get(ctx context.Context, date civil.Date, d time.Duration) ([]scheduling.Slot, bool, error) {
	raw, err := c.rdb.HGet(ctx, dateKey(date), durationField(d)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var slots []scheduling.Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false, err
	}
	return slots, true, nil
}

func (c *SlotCache) Set(ctx context.Context, date civil.Date, d time.Duration, slots []scheduling.Slot) error {
	if slots == nil {
		slots = []scheduling.Slot{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	key := dateKey(date)
	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, durationField(d), raw)
	pipe.Expire(ctx, key, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *SlotCache) InvalidateDate(ctx context.Context, date civil.Date) error {
	return c.rdb.Del(ctx, dateKey(date)).Err()
}

// InvalidateAll removes every cached date. Used when weekly availability
// changes.
func (c *SlotCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
