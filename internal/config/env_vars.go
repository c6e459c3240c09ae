package config

import (
	"fmt"
	"strings"
)

const productionEnv = "production"

type EnvVars struct {
	Port     string `env:"PORT" env-default:"3000"`
	AppName  string `env:"APP_NAME" env-default:"Payslip Server"`
	Env      string `env:"ENV" env-default:"DEV"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "3000"
	}
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// IsProduction accepts both "production" and the short "PROD".
func (e EnvVars) IsProduction() bool {
	env := strings.ToLower(e.GetEnv())
	return env == productionEnv || env == "prod"
}
