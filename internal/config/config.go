package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"opsmap/internal/logging"
)

// Remote kinds.
const (
	RemoteNone  = "none"
	RemoteHTTP  = "http"
	RemoteRedis = "redis"
	RemoteLocal = "sqlite"
)

// Config models opsmap.yml.
type Config struct {
	Local struct {
		Dir string `yaml:"dir"`
	} `yaml:"local"`
	User struct {
		ID string `yaml:"id"`
	} `yaml:"user"`
	Remote struct {
		Kind string `yaml:"kind"`
		// URL is the backend address for http and an optional database path for sqlite.
		URL      string `yaml:"url"`
		RedisURL string `yaml:"redis_url"`
		// Token is a static bearer token; ignored when auth.jwt_secret is set.
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"remote"`
	Auth struct {
		JWTSecret string        `yaml:"jwt_secret"`
		TokenTTL  time.Duration `yaml:"token_ttl"`
	} `yaml:"auth"`
	Assist struct {
		Endpoint     string        `yaml:"endpoint"`
		APIKey       string        `yaml:"api_key"`
		DefaultModel string        `yaml:"default_model"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"assist"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
		// Store is where the hosted backend keeps workspaces: sqlite or redis.
		Store string `yaml:"store"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	cfg.Local.Dir = "."
	cfg.Remote.Kind = RemoteNone
	cfg.Remote.Timeout = 15 * time.Second
	cfg.Auth.TokenTTL = time.Hour
	cfg.Assist.DefaultModel = "default"
	cfg.Assist.Timeout = 60 * time.Second
	cfg.Server.Addr = "127.0.0.1:8080"
	cfg.Server.Store = RemoteLocal
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return &cfg
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Remote.Kind {
	case RemoteNone, RemoteLocal:
	case RemoteHTTP:
		if c.Remote.URL == "" {
			return fmt.Errorf("config.remote.url is required for remote kind http")
		}
		if u, err := url.Parse(c.Remote.URL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config.remote.url %q is not an absolute url", c.Remote.URL)
		}
	case RemoteRedis:
		if c.Remote.RedisURL == "" {
			return fmt.Errorf("config.remote.redis_url is required for remote kind redis")
		}
	default:
		return fmt.Errorf("config.remote.kind must be one of none, http, redis, sqlite (got %q)", c.Remote.Kind)
	}
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("config.remote.timeout must not be negative")
	}
	switch c.Server.Store {
	case RemoteLocal:
	case RemoteRedis:
		if c.Remote.RedisURL == "" {
			return fmt.Errorf("config.remote.redis_url is required for server store redis")
		}
	default:
		return fmt.Errorf("config.server.store must be sqlite or redis (got %q)", c.Server.Store)
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if !logging.ValidLevel(c.Log.Level) {
		return fmt.Errorf("config.log.level %q is not a known level", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("config.log.format must be json or console")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("config.auth.token_ttl must be positive")
	}
	return nil
}

// Path returns the config file path for a directory.
func Path(dir string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "opsmap.yml")
}

// LoadOptional returns the defaults when the config file does not exist.
func LoadOptional(dir string) (*Config, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if dir != "" {
				cfg.Local.Dir = dir
			}
			return cfg, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses config over the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns a commented starter opsmap.yml.
func GenerateDefault(userID string) string {
	return fmt.Sprintf(defaultTemplate, userID)
}

const defaultTemplate = `local:
  dir: .

user:
  id: %s

remote:
  # none, http, redis or sqlite
  kind: none
  url: ""
  redis_url: ""
  token: ""
  timeout: 15s

auth:
  jwt_secret: ""
  token_ttl: 1h

assist:
  endpoint: ""
  api_key: ""
  default_model: default
  timeout: 60s

server:
  addr: 127.0.0.1:8080
  base_path: ""
  store: sqlite

log:
  level: info
  format: console
`
