package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRunInProgress indicates another export run holds the period lock.
var ErrRunInProgress = errors.New("export: another run in progress for this period")

// RunLock serializes export runs per accounting period using a redis lease,
// so two concurrent runs cannot interleave their MarkExported batches.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunLock constructs a redis-backed run lock.
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RunLock{client: client, ttl: ttl}
}

func runLockKey(periodID int64) string {
	return fmt.Sprintf("export:period:%d:run", periodID)
}

// Acquire takes the period lease. The returned release func only clears the
// lease if this holder still owns it.
func (l *RunLock) Acquire(ctx context.Context, periodID int64) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	key := runLockKey(periodID)
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("export: acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	release := func() {
		// Compare-and-delete so an expired lease never clobbers a new holder.
		script := redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`)
		_ = script.Run(context.Background(), l.client, []string{key}, token).Err()
	}
	return release, nil
}
