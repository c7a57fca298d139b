package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by Acquire when another holder owns the lock.
var ErrLockHeld = errors.New("lock is held by another process")

// releaseScript deletes the key only if it still carries our token, so a
// holder whose lock expired cannot release someone else's.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out single-holder locks backed by SET NX PX.
type Locker struct {
	client redis.Cmdable
	prefix string
}

// Lock is a held lock. Release it when the guarded work is done.
type Lock struct {
	client redis.Cmdable
	key    string
	token  string
}

func NewLocker(client redis.Cmdable, prefix string) *Locker {
	if prefix == "" {
		prefix = "fleet:lock:"
	}
	return &Locker{client: client, prefix: prefix}
}

// Acquire takes the named lock for ttl. It does not wait.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return &Lock{client: l.client, key: key, token: token}, nil
}

// Release frees the lock. Releasing an expired or foreign lock is a no-op.
func (k *Lock) Release(ctx context.Context) error {
	if k == nil {
		return nil
	}
	if err := releaseScript.Run(ctx, k.client, []string{k.key}, k.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
