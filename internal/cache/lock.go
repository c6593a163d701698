package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Снимает блокировку, только если она всё ещё принадлежит вызывающему.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock — захваченная advisory-блокировка.
type Lock struct {
	key   string
	token string
}

// TryLock пытается захватить ключ на ttl (SET NX PX).
// nil, nil означает, что блокировку держит кто-то другой.
func (c *Cache) TryLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	const op = "cache.TryLock"
	token := uuid.NewString()
	ok, err := c.Db.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lock{key: key, token: token}, nil
}

// Unlock освобождает блокировку. Истёкшая или чужая блокировка не трогается.
func (c *Cache) Unlock(ctx context.Context, l *Lock) error {
	const op = "cache.Unlock"
	if l == nil {
		return nil
	}
	if err := unlockScript.Run(ctx, c.Db, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
