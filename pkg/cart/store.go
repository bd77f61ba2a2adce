package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"cymbal-assist-be/pkg/catalog"
)

// Store persists a cart per user so a reload of the tab keeps its items.
type Store interface {
	Load(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, userID string, c *Cart) error
	Delete(ctx context.Context, userID string) error
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func cartKey(userID string) string {
	return "cart:" + userID
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*Cart, error) {
	raw, err := s.rdb.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var items []catalog.Product
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return New(items...), nil
}

func (s *RedisStore) Save(ctx context.Context, userID string, c *Cart) error {
	raw, err := json.Marshal(c.Items())
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.rdb.Set(ctx, cartKey(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, cartKey(userID)).Err()
}

// MemoryStore keeps carts in process; used when Redis is not configured.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(ttl, 10*time.Minute)}
}

func (s *MemoryStore) Load(_ context.Context, userID string) (*Cart, error) {
	if x, found := s.cache.Get(cartKey(userID)); found {
		return New(x.([]catalog.Product)...), nil
	}
	return New(), nil
}

func (s *MemoryStore) Save(_ context.Context, userID string, c *Cart) error {
	s.cache.Set(cartKey(userID), c.Items(), cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.cache.Delete(cartKey(userID))
	return nil
}
