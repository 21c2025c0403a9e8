package config

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for the replay cache backend.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" env-default:"localhost"`
	Port     uint16 `env:"REDIS_PORT" env-default:"6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// Addr returns the host:port address for dialing redis.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Options returns redis client options for this config.
func (r RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:     r.Addr(),
		Password: r.Password,
		DB:       r.DB,
	}
}
