package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DBHost       string
	DBPort       string
	DBUser       string
	DBPass       string
	DBName       string
	RedisURL     string
	Env          string
	CacheBackend string
	RedisTTL     time.Duration
}

func LoadConfig() Config {
	ttlStr := getEnv("REDIS_TTL", "0")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		ttl = 0
	}

	return Config{
		DBHost:       getEnv("DB_HOST", "postgres"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPass:       getEnv("DB_PASSWORD", "password"),
		DBName:       getEnv("DB_NAME", "forumcore"),
		RedisURL:     getEnv("REDIS_URL", "redis:6379"),
		Env:          getEnv("ENV", "dev"),
		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		RedisTTL:     ttl,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}
