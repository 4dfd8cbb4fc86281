package cartstore

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/kimthedrew/legit-collections/models"
)

// RedisStore keeps carts in Redis, one JSON blob per user.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedis(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisStore{rdb: redis.NewClient(opts)}, nil
}

func (s *RedisStore) Get(ctx context.Context, userID uint) ([]models.CartItem, error) {
	data, err := s.rdb.Get(ctx, key(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []models.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		// Tolerate carts written in the legacy mixed format.
		var raw []json.RawMessage
		if rawErr := json.Unmarshal(data, &raw); rawErr != nil {
			return nil, err
		}
		return MigrateLegacy(raw), nil
	}
	return items, nil
}

func (s *RedisStore) Replace(ctx context.Context, userID uint, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key(userID), data, TTL).Err()
}

func (s *RedisStore) Clear(ctx context.Context, userID uint) error {
	return s.rdb.Del(ctx, key(userID)).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
