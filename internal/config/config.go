package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is read from a JSON file. Any field with an env tag can be
// overridden from the environment, which wins over the file.
type Config struct {
	Server struct {
		Host           string `json:"host"           env:"USERADMIN_HOST, overwrite"`
		Port           int    `json:"port"           env:"USERADMIN_PORT, overwrite"`
		Subpath        string `json:"subpath"        env:"USERADMIN_SUBPATH, overwrite"`
		JWTSecret      string `json:"jwtSecret"      env:"USERADMIN_JWT_SECRET, overwrite"`
		SessionMinutes int    `json:"sessionMinutes" env:"USERADMIN_SESSION_MINUTES, overwrite"`
		SecureCookie   bool   `json:"secureCookie"   env:"USERADMIN_SECURE_COOKIE, overwrite"`
	} `json:"server"`
	Database struct {
		Driver string `json:"driver" env:"USERADMIN_DB_DRIVER, overwrite"`
		DSN    string `json:"dsn"    env:"USERADMIN_DB_DSN, overwrite"`
	} `json:"database"`
	Redis struct {
		Addr     string `json:"addr"     env:"USERADMIN_REDIS_ADDR, overwrite"`
		Password string `json:"password" env:"USERADMIN_REDIS_PASSWORD, overwrite"`
		DB       int    `json:"db"       env:"USERADMIN_REDIS_DB, overwrite"`
	} `json:"redis"`
	Log struct {
		Level  string `json:"level"  env:"USERADMIN_LOG_LEVEL, overwrite"`
		Pretty bool   `json:"pretty" env:"USERADMIN_LOG_PRETTY, overwrite"`
	} `json:"log"`
}

// SessionTTL is the inactivity window after which a login expires.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Server.SessionMinutes) * time.Minute
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton)
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		cfg, cfgErr = load(path, envconfig.OsLookuper())
	})
	return cfg, cfgErr
}

func load(path string, env envconfig.Lookuper) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &c,
		Lookuper: env,
	}); err != nil {
		return nil, fmt.Errorf("invalid config environment: %w", err)
	}
	applyDefaults(&c)
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.SessionMinutes <= 0 {
		c.Server.SessionMinutes = 30
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
}

func (c *Config) validate() error {
	if c.Server.JWTSecret == "" {
		return errors.New("jwtSecret must be set in config")
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn must be set in config")
	}
	return nil
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
