package reminder

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers which bookings were already reminded. Claim returns true
// only for the first caller; Release gives a failed send another chance.
type Deduper interface {
	Claim(ctx context.Context, bookingID string) (bool, error)
	Release(ctx context.Context, bookingID string) error
}

const defaultDedupeTTL = 24 * time.Hour

// RedisDeduper shares claims across booking-service replicas.
type RedisDeduper struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisDeduper(rdb redis.Cmdable, ttl time.Duration, prefix string) *RedisDeduper {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "reminder"
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl, prefix: prefix}
}

func (d *RedisDeduper) Claim(ctx context.Context, bookingID string) (bool, error) {
	return d.rdb.SetNX(ctx, d.key(bookingID), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, bookingID string) error {
	return d.rdb.Del(ctx, d.key(bookingID)).Err()
}

func (d *RedisDeduper) key(bookingID string) string {
	return d.prefix + ":" + bookingID
}

// MemoryDeduper is the single-replica fallback when Redis is not configured.
type MemoryDeduper struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	claimed map[string]time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &MemoryDeduper{ttl: ttl, now: time.Now, claimed: map[string]time.Time{}}
}

func (d *MemoryDeduper) Claim(_ context.Context, bookingID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for id, until := range d.claimed {
		if !now.Before(until) {
			delete(d.claimed, id)
		}
	}
	if _, ok := d.claimed[bookingID]; ok {
		return false, nil
	}
	d.claimed[bookingID] = now.Add(d.ttl)
	return true, nil
}

func (d *MemoryDeduper) Release(_ context.Context, bookingID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claimed, bookingID)
	return nil
}
