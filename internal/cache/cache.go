// Package cache holds rendered pages and CMS responses under invalidation
// tags. Revalidating a tag drops every entry stored with it; revalidating a
// path drops the entries stored with PathTag(path).
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, tags []string, ttl time.Duration) error
	// InvalidateTag removes every entry stored with tag and reports how many were dropped.
	InvalidateTag(ctx context.Context, tag string) (int, error)
	Close() error
}

const pathTagPrefix = "path:"

// PathTag is the tag every page rendered for path is stored under.
func PathTag(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return pathTagPrefix + path
}

// InvalidatePath is tag invalidation of PathTag(path).
func InvalidatePath(ctx context.Context, s Store, path string) (int, error) {
	return s.InvalidateTag(ctx, PathTag(path))
}

type Options struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New builds the store named by opts.Backend ("memory" or "redis").
func New(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "memory":
		return NewMemoryStore(time.Minute), nil
	case "redis":
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
