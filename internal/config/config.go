package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env       string
	Port      string
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Retention for messages and activity entities.
	EntityLifetime time.Duration
	SweepInterval  time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:      getEnv("REDIS_PASSWORD", ""),
		EntityLifetime: 30 * time.Minute,
		SweepInterval:  60 * time.Second,
	}

	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, err
	}
	cfg.RedisDB = db

	if v := os.Getenv("ENTITY_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, err
		}
		cfg.EntityLifetime = d
	}
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, err
		}
		cfg.SweepInterval = d
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
