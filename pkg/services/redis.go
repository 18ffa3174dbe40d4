package services

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisConfig is the address and credentials used when probing a Redis
// service and when telling jobs where to find it.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     uint16 `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Addr returns the "host:port" address for this config.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

func (c RedisConfig) env() map[string]string {
	return map[string]string{
		"REDIS_HOST": c.Host,
		"REDIS_PORT": strconv.Itoa(int(c.Port)),
		"REDIS_URL":  "redis://" + c.Addr(),
	}
}

// NewRedisProber returns a prober that pings a Redis server.
func NewRedisProber(cfg RedisConfig) Prober {
	return redisProber{cfg}
}

type redisProber struct {
	cfg RedisConfig
}

func (p redisProber) Probe(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     p.cfg.Addr(),
		Password: p.cfg.Password,
		DB:       p.cfg.DB,
	})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
