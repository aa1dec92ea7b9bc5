package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "cattongue:session:"

type redisPersister struct {
	client *redis.Client
}

// NewRedisStore connects to the redis server at addr; sessions expire through key TTLs.
func NewRedisStore(ctx context.Context, addr string, options *sessions.Options, keyPairs ...[]byte) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return newStore(&redisPersister{client: client}, options, keyPairs...), nil
}

func (p *redisPersister) load(ctx context.Context, id string) (string, bool, error) {
	data, err := p.client.Get(ctx, redisKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return data, true, nil
}

func (p *redisPersister) save(ctx context.Context, id string, data string, ttl time.Duration) error {
	return p.client.Set(ctx, redisKeyPrefix+id, data, ttl).Err()
}

func (p *redisPersister) delete(ctx context.Context, id string) error {
	return p.client.Del(ctx, redisKeyPrefix+id).Err()
}

func (p *redisPersister) close() error {
	return p.client.Close()
}
