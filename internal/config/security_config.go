package config

import "time"

type SecurityConfig interface {
	GetSessionMaxAge() time.Duration
	GetSessionCleanupInterval() time.Duration
}

type Security struct {
	SessionMaxAge          time.Duration `env:"SESSION_COOKIE_MAX_AGE" env-default:"24h"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" env-default:"24h"`
}

var _ SecurityConfig = Security{}

func (s Security) GetSessionMaxAge() time.Duration {
	return s.SessionMaxAge
}

func (s Security) GetSessionCleanupInterval() time.Duration {
	return s.SessionCleanupInterval
}
