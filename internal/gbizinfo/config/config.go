// Package config builds the immutable runtime configuration from defaults,
// an optional YAML file, an optional .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AuthHeaderName carries the upstream API token.
	AuthHeaderName = "X-hojinInfo-api-token"
	// Redacted replaces secrets wherever they would be logged.
	Redacted = "<redacted>"

	DefaultBaseURL   = "https://info.gbiz.go.jp/hojin/v1/hojin"
	DefaultUserAgent = "gbizinfo-mcp/0.1 (+https://info.gbiz.go.jp/)"
	DefaultTopic     = "gbizinfo.lookups"

	// DotEnvFile is read from the working directory when it exists.
	DotEnvFile = ".env"
)

// Config is built once at startup and shared by pointer; nothing mutates it
// after Load returns.
type Config struct {
	APIToken              string   `yaml:"GBIZINFO_API_TOKEN"`
	BaseURL               string   `yaml:"GBIZINFO_BASE_URL"`
	ConnectTimeoutSeconds float64  `yaml:"CONNECT_TIMEOUT_SECONDS"`
	RequestTimeoutSeconds float64  `yaml:"REQUEST_TIMEOUT_SECONDS"`
	Retries               int      `yaml:"HTTP_RETRIES"`
	UserAgent             string   `yaml:"USER_AGENT"`
	DebugHTTP             bool     `yaml:"DEBUG_HTTP"`
	RateLimitPerSec       float64  `yaml:"RATE_LIMIT_PER_SEC"`
	GRPCPort              int      `yaml:"GRPC_PORT"`
	HTTPPort              int      `yaml:"HTTP_PORT"`
	JWTSecret             string   `yaml:"JWT_SECRET"`
	KafkaBrokers          []string `yaml:"KAFKA_BROKERS"`
	Topic                 string   `yaml:"TOPIC"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		BaseURL:               DefaultBaseURL,
		ConnectTimeoutSeconds: 3,
		RequestTimeoutSeconds: 10,
		Retries:               1,
		UserAgent:             DefaultUserAgent,
		GRPCPort:              50051,
		HTTPPort:              8080,
		Topic:                 DefaultTopic,
	}
}

// Load reads path (if non-empty) over the defaults, applies overrides from
// .env and then the process environment, and validates the result.
func Load(path string) (*Config, error) {
	dotenv, err := readDotEnv(DotEnvFile)
	if err != nil {
		return nil, err
	}
	return load(path, overlay(os.LookupEnv, dotenv))
}

// readDotEnv returns the variables in path, or nil if the file is missing.
func readDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", e.ErrInvalidConfig, path, err)
	}
	return vars, nil
}

// overlay prefers non-blank values from primary and falls back to vars.
func overlay(primary func(string) (string, bool), vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
		v, ok := vars[key]
		return v, ok
	}
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *float64) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", e.ErrInvalidConfig, key, err)
		}
		*dst = f
		return nil
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", e.ErrInvalidConfig, key, err)
		}
		*dst = n
		return nil
	}

	str("GBIZINFO_API_TOKEN", &cfg.APIToken)
	str("GBIZINFO_BASE_URL", &cfg.BaseURL)
	str("USER_AGENT", &cfg.UserAgent)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("TOPIC", &cfg.Topic)

	for _, f := range []func() error{
		func() error { return num("CONNECT_TIMEOUT_SECONDS", &cfg.ConnectTimeoutSeconds) },
		func() error { return num("REQUEST_TIMEOUT_SECONDS", &cfg.RequestTimeoutSeconds) },
		func() error { return num("RATE_LIMIT_PER_SEC", &cfg.RateLimitPerSec) },
		func() error { return integer("HTTP_RETRIES", &cfg.Retries) },
		func() error { return integer("GRPC_PORT", &cfg.GRPCPort) },
		func() error { return integer("HTTP_PORT", &cfg.HTTPPort) },
	} {
		if err := f(); err != nil {
			return err
		}
	}

	if v, ok := lookup("DEBUG_HTTP"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: DEBUG_HTTP: %v", e.ErrInvalidConfig, err)
		}
		cfg.DebugHTTP = b
	}

	if v, ok := lookup("KAFKA_BROKERS"); ok && strings.TrimSpace(v) != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.KafkaBrokers = brokers
	}
	return nil
}

func (c *Config) validate() error {
	switch {
	case c.APIToken == "":
		return fmt.Errorf("%w: GBIZINFO_API_TOKEN is required", e.ErrInvalidConfig)
	case c.BaseURL == "":
		return fmt.Errorf("%w: GBIZINFO_BASE_URL is empty", e.ErrInvalidConfig)
	case c.ConnectTimeoutSeconds <= 0:
		return fmt.Errorf("%w: CONNECT_TIMEOUT_SECONDS must be > 0", e.ErrInvalidConfig)
	case c.RequestTimeoutSeconds <= 0:
		return fmt.Errorf("%w: REQUEST_TIMEOUT_SECONDS must be > 0", e.ErrInvalidConfig)
	case c.Retries < 0:
		return fmt.Errorf("%w: HTTP_RETRIES must be >= 0", e.ErrInvalidConfig)
	case c.RateLimitPerSec < 0:
		return fmt.Errorf("%w: RATE_LIMIT_PER_SEC must be >= 0", e.ErrInvalidConfig)
	}
	return nil
}

// ConnectTimeout is the dial timeout for upstream connections.
func (c *Config) ConnectTimeout() time.Duration {
	return seconds(c.ConnectTimeoutSeconds)
}

// ReadTimeout bounds the wait for an upstream response.
func (c *Config) ReadTimeout() time.Duration {
	return seconds(c.RequestTimeoutSeconds)
}

// MinRequestInterval is the spacing enforced between upstream requests, or 0
// when no rate limit is configured.
func (c *Config) MinRequestInterval() time.Duration {
	if c.RateLimitPerSec <= 0 {
		return 0
	}
	return seconds(1 / c.RateLimitPerSec)
}

// String renders the configuration with secrets redacted.
func (c *Config) String() string {
	token, secret := Redacted, ""
	if c.JWTSecret != "" {
		secret = Redacted
	}
	return fmt.Sprintf(
		"base_url=%s token=%s connect_timeout=%s read_timeout=%s retries=%d user_agent=%q debug_http=%t rate_limit=%g grpc_port=%d http_port=%d jwt_secret=%s kafka_brokers=%v topic=%s",
		c.BaseURL, token, c.ConnectTimeout(), c.ReadTimeout(), c.Retries, c.UserAgent, c.DebugHTTP,
		c.RateLimitPerSec, c.GRPCPort, c.HTTPPort, secret, c.KafkaBrokers, c.Topic,
	)
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
