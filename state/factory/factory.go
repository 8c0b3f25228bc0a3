package factory

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dbxmcp/dbxmcp/state"
	"github.com/dbxmcp/dbxmcp/state/hybrid"
	memorystore "github.com/dbxmcp/dbxmcp/state/memory"
	redisstore "github.com/dbxmcp/dbxmcp/state/redis"
	sqlitestore "github.com/dbxmcp/dbxmcp/state/sqlite"
)

func FromEnv(ctx context.Context) (state.Store, error) {
	_ = ctx

	backend := strings.ToLower(strings.TrimSpace(getenv("DBXMCP_STATE_BACKEND", "memory")))
	switch backend {
	case "memory":
		return memorystore.New(), nil

	case "sqlite":
		path := getenv("DBXMCP_SQLITE_PATH", "./.dbxmcp/state.db")
		return sqlitestore.New(path)

	case "redis":
		return newRedisStoreFromEnv()

	case "hybrid":
		path := getenv("DBXMCP_SQLITE_PATH", "./.dbxmcp/state.db")
		durable, err := sqlitestore.New(path)
		if err != nil {
			return nil, err
		}
		cache, err := newRedisStoreFromEnv()
		if err != nil {
			return hybrid.New(durable, nil)
		}
		return hybrid.New(durable, cache)

	default:
		return nil, fmt.Errorf("unsupported DBXMCP_STATE_BACKEND %q (use memory, sqlite, redis, or hybrid)", backend)
	}
}

func newRedisStoreFromEnv() (state.Store, error) {
	addr := getenv("DBXMCP_REDIS_ADDR", "127.0.0.1:6379")
	password := strings.TrimSpace(os.Getenv("DBXMCP_REDIS_PASSWORD"))
	db := getenvInt("DBXMCP_REDIS_DB", 0)
	ttl := getenvDuration("DBXMCP_REDIS_TTL", 24*time.Hour)

	opts := []redisstore.Option{
		redisstore.WithPassword(password),
		redisstore.WithDB(db),
		redisstore.WithTTL(ttl),
	}
	return redisstore.New(addr, opts...)
}

func getenv(key, fallback string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	return val
}

func getenvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
