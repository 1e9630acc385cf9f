package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/pkg/logger"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease-based lock shared by every instance pointing at the same Redis
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedis creates a locker; ttl bounds how long a crashed holder blocks others
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: "thinkflow:lock:",
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		logger: logger.Get().Named("lock"),
	}
}

// Lock polls SET NX until it wins or ctx is done
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.prefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { r.release(k, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}
}

func (r *Redis) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
		// the lease still expires after ttl
		r.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
	}
}
