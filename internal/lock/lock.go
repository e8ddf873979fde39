// Package lock serializes work on a single key, such as draft generation for
// one recipient or a send for one email.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another holder owns the key.
var ErrHeld = errors.New("lock already held")

// Locker hands out non-blocking, exclusive locks.
type Locker interface {
	// TryLock returns ErrHeld instead of waiting. The returned release func
	// is safe to call more than once.
	TryLock(ctx context.Context, key string) (release func(), err error)
}

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) TryLock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, key)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the key only if it still carries our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares locks between instances. Keys expire after ttl so a
// crashed holder cannot block a recipient forever.
type RedisLocker struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.New().String()

	ok, err := l.rdb.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.rdb, []string{fullKey}, token).Err()
		})
	}, nil
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Key joins parts into a lock key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
