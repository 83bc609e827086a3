package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when present; a missing default file is not an error.
const DefaultEnvFile = ".env"

// EnvOverrides are the settings taken from the process environment.
type EnvOverrides struct {
	APIKey       string `env:"MAPQUEST_API_KEY"`
	CacheFile    string `env:"NPS_CACHE_FILE"`
	CacheBackend string `env:"NPS_CACHE_BACKEND"`
	RedisURL     string `env:"NPS_REDIS_URL"`
	LogLevel     string `env:"NPS_LOG_LEVEL"`
}

// LoadEnv loads path into the process environment without overriding variables
// that are already set, then parses the overrides. An empty path means
// DefaultEnvFile, which may be absent; an explicit path must exist.
func LoadEnv(path string) (EnvOverrides, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return EnvOverrides{}, fmt.Errorf("%w: %s", ErrEnvLoadFail, err.Error())
		}
	}

	overrides := EnvOverrides{}
	if err := env.Parse(&overrides); err != nil {
		return EnvOverrides{}, fmt.Errorf("%w: %s", ErrEnvLoadFail, err.Error())
	}
	return overrides, nil
}
