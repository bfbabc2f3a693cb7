// Package redis builds the go-redis client the job queue runs on.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config selects the Redis instance. Password and DB override whatever
// the URL carries, for deployments that inject them separately.
type Config struct {
	URL      string
	Password string
	DB       int
}

// NewClient connects per cfg and verifies the connection with a bounded
// ping so startup fails fast on an unreachable instance.
func NewClient(ctx context.Context, cfg *Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse URL: %w", err)
	}
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opt.DB = cfg.DB
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return client, nil
}
