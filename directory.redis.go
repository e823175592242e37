package maestro

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const defaultRedisNodeKey = "maestro:nodes"

type (
	// RedisDirectory reads the currently known node ids from a Redis set.
	// Nodes register themselves into that set elsewhere; this side only
	// reads it, which is all NodeList needs.
	RedisDirectory struct {
		client *redis.Client
		key    string
	}

	// RedisConfig configures the directory connection.
	RedisConfig struct {
		Addr     string `json:"addr" toml:"addr"`
		Username string `json:"username" toml:"username"`
		Password string `json:"password" toml:"password"`
		DB       int    `json:"db" toml:"db"`
		Key      string `json:"key" toml:"key"`
	}
)

// OpenRedisDirectory connects a directory from config.
func OpenRedisDirectory(cfg RedisConfig) *RedisDirectory {
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisDirectory(client, cfg.Key)
}

// NewRedisDirectory wraps an existing client. An empty key selects the
// default node set.
func NewRedisDirectory(client *redis.Client, key string) *RedisDirectory {
	if key == "" {
		key = defaultRedisNodeKey
	}
	return &RedisDirectory{client: client, key: key}
}

func (d *RedisDirectory) ActiveNodeIDs(ctx context.Context) ([]string, error) {
	return d.client.SMembers(ctx, d.key).Result()
}

func (d *RedisDirectory) Close() error {
	return d.client.Close()
}
