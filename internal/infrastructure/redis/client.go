package redis

import (
	goredis "github.com/redis/go-redis/v9"

	"github.com/hydrazin60/waterManagment-server/internal/config"
)

// NewClient creates a go-redis client from the app config.
func NewClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
