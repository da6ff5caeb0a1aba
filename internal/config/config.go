// config — загрузка конфигурации веб-шлюза и CLI.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/pribylovaa/eventhub-web/internal/profile"
)

// Бэкенды хранения пары токенов сессии браузера.
const (
	BackendCookie = "cookie"
	BackendRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`
	Routes   RoutesConfig   `yaml:"routes"`
	Profile  ProfileConfig  `yaml:"profile"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// TimeoutConfig — таймаут обработки запроса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE" env-default:"15s"`
}

// HTTPConfig — публичный HTTP-сервер шлюза.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"50090"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// UpstreamConfig — API платформы.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url" env:"UPSTREAM_BASE_URL" env-default:"http://127.0.0.1:8000/api"`
	Timeout time.Duration `yaml:"timeout"  env:"UPSTREAM_TIMEOUT"  env-default:"10s"`
	// GRPCNotificationsAddr — необязательный gRPC-апстрим уведомлений; пусто — не используется.
	GRPCNotificationsAddr string `yaml:"grpc_notifications_addr" env:"GRPC_NOTIFICATIONS_ADDR"`
}

// SessionConfig — cookie сессии браузера и бэкенд пары токенов.
type SessionConfig struct {
	Backend    string `yaml:"backend"     env:"SESSION_BACKEND"     env-default:"cookie"`
	CookieName string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"eventhub_session"`
	// HashKey/BlockKey — ключи securecookie (подпись и шифрование). Пусто — случайные на старте.
	HashKey  string `yaml:"hash_key"  env:"SESSION_HASH_KEY"`
	BlockKey string `yaml:"block_key" env:"SESSION_BLOCK_KEY"`
	// Insecure снимает флаг Secure с cookie (локальная разработка по http).
	Insecure bool          `yaml:"insecure"  env:"SESSION_INSECURE"`
	MaxAge   time.Duration `yaml:"max_age"   env:"SESSION_MAX_AGE" env-default:"720h"`
	RedisURL string        `yaml:"redis_url" env:"SESSION_REDIS_URL"`
	Prefix   string        `yaml:"prefix"    env:"SESSION_PREFIX" env-default:"eventhub:sess:"`
}

// AuthConfig — обновление access-токена.
type AuthConfig struct {
	RenewalTimeout time.Duration `yaml:"renewal_timeout" env:"AUTH_RENEWAL_TIMEOUT" env-default:"10s"`
	ExpiryLeeway   time.Duration `yaml:"expiry_leeway"   env:"AUTH_EXPIRY_LEEWAY"   env-default:"0s"`
}

// RoutesConfig — фиксированные пути для редиректов guard'ов.
type RoutesConfig struct {
	Login      string `yaml:"login"      env:"ROUTE_LOGIN"      env-default:"/login"`
	Home       string `yaml:"home"       env:"ROUTE_HOME"       env-default:"/"`
	Completion string `yaml:"completion" env:"ROUTE_COMPLETION" env-default:"/profile"`
}

// ProfileConfig — кэш профиля.
type ProfileConfig struct {
	FailurePolicy string        `yaml:"failure_policy" env:"PROFILE_FAILURE_POLICY" env-default:"fail_open"`
	CacheTTL      time.Duration `yaml:"cache_ttl"      env:"PROFILE_CACHE_TTL"      env-default:"30m"`
	LoadingWait   time.Duration `yaml:"loading_wait"   env:"PROFILE_LOADING_WAIT"   env-default:"2s"`
}

// Policy — разобранная политика отказа.
func (p ProfileConfig) Policy() (profile.FailurePolicy, error) {
	return profile.ParsePolicy(p.FailurePolicy)
}

// Validate проверяет согласованность секций.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case BackendCookie:
	case BackendRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("%w: session.redis_url is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown session.backend %q", ErrInvalidConfig, c.Session.Backend)
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("%w: upstream.base_url is empty", ErrInvalidConfig)
	}

	if _, err := c.Profile.Policy(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if k := c.Session.HashKey; k != "" && len(k) < 32 {
		return fmt.Errorf("%w: session.hash_key must be at least 32 bytes", ErrInvalidConfig)
	}

	switch len(c.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("%w: session.block_key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}

	return nil
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

// Load читает конфиг шлюза и проверяет его.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := load(path, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// load — общий порядок источников для шлюза и CLI.
func load(path string, cfg any) error {
	readFile := func(p string) error {
		if err := cleanenv.ReadConfig(p, cfg); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("failed to overlay env: %w", err)
		}

		return nil
	}

	tryRead := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		return readFile(p)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return readFile("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return nil
}
