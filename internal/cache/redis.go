package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "greenwood:cache:"

// RedisStore shares the cache between replicas. Values live at
// {prefix}v:{key}; each tag is a set of keys at {prefix}t:{tag}.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return NewRedisStoreFromClient(client, defaultRedisPrefix), nil
}

func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) valueKey(key string) string { return s.prefix + "v:" + key }
func (s *RedisStore) tagKey(tag string) string   { return s.prefix + "t:" + tag }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, s.valueKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error {
	vk := s.valueKey(key)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, vk, value, ttl)
		for _, tag := range tags {
			pipe.SAdd(ctx, s.tagKey(tag), vk)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

func (s *RedisStore) InvalidateTag(ctx context.Context, tag string) (int, error) {
	tk := s.tagKey(tag)

	members, err := s.client.SMembers(ctx, tk).Result()
	if err != nil {
		return 0, fmt.Errorf("redis members %s: %w", tag, err)
	}

	keys := append(members, tk)
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("redis invalidate %s: %w", tag, err)
	}

	return len(members), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
