package config

import (
	"sort"
	"strings"
)

type Cors struct {
	ExtraOrigins []string `env:"CORS_EXTRA_ORIGINS" env-separator:","`
}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, PUT, DELETE, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
