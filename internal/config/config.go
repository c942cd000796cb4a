// Package config loads client and server settings from a YAML file,
// CARESYNC_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/connectivity"
	clientsync "github.com/PNdlovu/writecarenotes-sub002/internal/client/sync"
	"github.com/PNdlovu/writecarenotes-sub002/internal/resolver"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "CARESYNC"

// ClientConfig настройки клиентского устройства.
type ClientConfig struct {
	Policies map[string]resolver.PolicyConfig `mapstructure:"policies"`
	Server   RemoteConfig                     `mapstructure:"server"`
	Storage  StorageConfig                    `mapstructure:"storage"`
	Logging  LoggingConfig                    `mapstructure:"logging"`
	Metrics  MetricsConfig                    `mapstructure:"metrics"`
	Sync     SyncConfig                       `mapstructure:"sync"`
}

// RemoteConfig адрес сервера и учетные данные устройства.
type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig настройки локального хранилища.
type StorageConfig struct {
	Path        string        `mapstructure:"path"`
	Passphrase  string        `mapstructure:"passphrase"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// SyncConfig настройки цикла синхронизации.
type SyncConfig struct {
	DefaultPolicy string            `mapstructure:"default_policy"`
	Cycle         clientsync.Config `mapstructure:",squash"`
	Interval      time.Duration     `mapstructure:"periodic_interval"`
	ProbeTimeout  time.Duration     `mapstructure:"probe_timeout"`
	MaxAttempts   int               `mapstructure:"max_attempts"`
}

// MetricsConfig адрес для /metrics в режиме демона.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig уровень и формат логов.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig настройки эталонного сервера.
type ServerConfig struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// HTTPConfig настройки HTTP сервера.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
	RateLimit       int           `mapstructure:"rate_limit"` // запросов устройства за окно, 0 - без ограничения
}

// DatabaseConfig путь к базе sqlite.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig секрет подписи токенов устройств.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// ErrMissingSecret возвращается, если секрет JWT не задан
var ErrMissingSecret = errors.New("auth.jwt_secret is required")

func setClientDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8080")
	v.SetDefault("server.token", "")
	v.SetDefault("server.timeout", 30*time.Second)

	v.SetDefault("storage.path", "caresync-client.db")
	v.SetDefault("storage.passphrase", "")
	v.SetDefault("storage.open_timeout", time.Second)

	v.SetDefault("sync.default_policy", resolver.RemoteWins().String())
	v.SetDefault("sync.max_attempts", 5)
	v.SetDefault("sync.backoff_base", clientsync.DefaultBackoffBase)
	v.SetDefault("sync.backoff_cap", clientsync.DefaultBackoffCap)
	v.SetDefault("sync.liveness_timeout", clientsync.DefaultLivenessTimeout)
	v.SetDefault("sync.skew_tolerance", time.Duration(0))
	v.SetDefault("sync.periodic_interval", connectivity.DefaultInterval)
	v.SetDefault("sync.probe_timeout", connectivity.DefaultProbeTimeout)

	v.SetDefault("metrics.addr", ":9464")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.rate_limit", 600)
	v.SetDefault("http.rate_window", time.Minute)

	v.SetDefault("database.path", "caresync-server.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// newViper создает viper с префиксом окружения и опциональным файлом
func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	return v, nil
}

// LoadClient reads the client configuration. An empty path uses defaults and
// environment only.
func LoadClient(path string) (*ClientConfig, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	setClientDefaults(v)

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode client config: %w", err)
	}

	if cfg.Sync.MaxAttempts <= 0 {
		return nil, fmt.Errorf("sync.max_attempts must be positive, got %d", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.Cycle.BackoffCap < cfg.Sync.Cycle.BackoffBase {
		return nil, fmt.Errorf("sync.backoff_cap %s is below sync.backoff_base %s",
			cfg.Sync.Cycle.BackoffCap, cfg.Sync.Cycle.BackoffBase)
	}

	return &cfg, nil
}

// Registry builds the conflict policy registry from the configuration.
func (c *ClientConfig) Registry() (*resolver.Registry, error) {
	return resolver.NewRegistryFromConfig(c.Sync.DefaultPolicy, c.Policies)
}

// LoadServer reads the server configuration.
func LoadServer(path string) (*ServerConfig, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	setServerDefaults(v)

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode server config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.HTTP.RateLimit < 0 || (cfg.HTTP.RateLimit > 0 && cfg.HTTP.RateWindow <= 0) {
		return nil, fmt.Errorf("invalid rate limit %d per %s", cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
	}

	return &cfg, nil
}
