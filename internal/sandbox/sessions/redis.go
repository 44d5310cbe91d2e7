package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:v1:"

// RedisStore keeps sessions in Redis so restarts keep users logged in.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis builds a Redis-backed session store.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Create(ctx context.Context, accountID string) (string, error) {
	token := uuid.NewString()
	if err := r.client.Set(ctx, redisKeyPrefix+token, accountID, r.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (r *RedisStore) Get(ctx context.Context, token string) (string, error) {
	accountID, err := r.client.Get(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return accountID, nil
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, redisKeyPrefix+token).Err()
}

// TokenLooksValid guards against junk cookies before hitting the store.
func TokenLooksValid(token string) bool {
	_, err := uuid.Parse(token)
	return err == nil
}
