package repo

import (
	"context"

	"github.com/go-redis/redis/v8"
)

type Redis struct{ C *redis.Client }

func NewRedis(addr string) *Redis {
	return &Redis{C: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *Redis) Ping(ctx context.Context) error { return r.C.Ping(ctx).Err() }
func (r *Redis) Close() error                   { return r.C.Close() }

// Allow implements a fixed-window rate limit: true while the counter for key
// stays at or under limit within windowSeconds.
func (r *Redis) Allow(ctx context.Context, key string, limit, windowSeconds int) (bool, error) {
	n, err := r.C.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		r.C.Expire(ctx, key, secondsDuration(windowSeconds))
	}
	return n <= int64(limit), nil
}
