package config

import "time"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

type StoreConfig interface {
	GetStoreBackend() string
	GetDatabaseURL() string
	GetSQLitePath() string
	GetRedisURL() string
	GetStoreTimeout() time.Duration
}

type Store struct {
	Backend      string        `env:"STORE_BACKEND" env-default:"memory"`
	DatabaseURL  string        `env:"DATABASE_URL"`
	SQLitePath   string        `env:"SQLITE_PATH" env-default:"./data/payslips.db"`
	RedisURL     string        `env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" env-default:"5s"`
}

var _ StoreConfig = Store{}

func (s Store) GetStoreBackend() string {
	return s.Backend
}

func (s Store) GetDatabaseURL() string {
	return s.DatabaseURL
}

func (s Store) GetSQLitePath() string {
	return s.SQLitePath
}

func (s Store) GetRedisURL() string {
	return s.RedisURL
}

func (s Store) GetStoreTimeout() time.Duration {
	return s.StoreTimeout
}
