package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	StoreConfig
	MailConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsProduction() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Store
	Mail
}

var _ Config = mainConfig{}

// New reads the configuration from the process environment. Any .env file
// should already have been loaded by the caller.
func New() (Config, error) {
	var c mainConfig
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, errors.Wrap(err, "[config.New] reading environment")
	}
	c.OAuth.production = c.EnvVars.IsProduction()
	return c, nil
}

// GetAllowedOrigins allows both front-end origins so a locally served client
// can talk to a deployed server and vice versa.
func (c mainConfig) GetAllowedOrigins() AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range []string{c.OAuth.FrontendOriginProd, c.OAuth.FrontendOriginLocal} {
		if o != "" {
			origins[o] = nullValue{}
		}
	}
	for _, o := range c.Cors.ExtraOrigins {
		if o != "" {
			origins[o] = nullValue{}
		}
	}
	return origins
}
