package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. RECON_BACKEND_BASE_URL.
const EnvPrefix = "RECON"

type Config struct {
	AppEnv    string
	HTTP      HTTPConfig
	Backend   BackendConfig
	Polling   PollingConfig
	Advisory  AdvisoryConfig
	Preview   PreviewConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
}

type HTTPConfig struct {
	Addr           string
	AllowedOrigins []string
}

type BackendConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	SigningKey string
	TokenTTL   time.Duration
}

type PollingConfig struct {
	Interval    time.Duration
	AutoRefresh bool
}

type AdvisoryConfig struct {
	SuccessTTL time.Duration
}

type PreviewConfig struct {
	MaxRows      int
	BlobCacheTTL time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Stream   string
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type DatabaseConfig struct {
	Enabled bool
	Driver  string
	DSN     string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("backend.base_url", "http://localhost:8081/api")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.timeout", 15*time.Second)
	v.SetDefault("backend.signing_key", "")
	v.SetDefault("backend.token_ttl", 5*time.Minute)

	v.SetDefault("polling.interval", 30*time.Second)
	v.SetDefault("polling.auto_refresh", true)

	v.SetDefault("advisory.success_ttl", 3*time.Second)

	v.SetDefault("preview.max_rows", 5000)
	v.SetDefault("preview.blob_cache_ttl", 10*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "reconciliation_runs")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")

	v.SetDefault("rate_limit.rps", 20.0)
	v.SetDefault("rate_limit.burst", 40)
}

// New returns a viper instance with defaults and RECON_ environment overrides bound.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads defaults, the optional config file and environment overrides.
// An empty path also checks RECON_CONFIG.
func Load(path string) (*Config, error) {
	v := New()

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppEnv: v.GetString("app_env"),
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			AllowedOrigins: v.GetStringSlice("http.allowed_origins"),
		},
		Backend: BackendConfig{
			BaseURL:    strings.TrimRight(v.GetString("backend.base_url"), "/"),
			Token:      v.GetString("backend.token"),
			Timeout:    v.GetDuration("backend.timeout"),
			SigningKey: v.GetString("backend.signing_key"),
			TokenTTL:   v.GetDuration("backend.token_ttl"),
		},
		Polling: PollingConfig{
			Interval:    v.GetDuration("polling.interval"),
			AutoRefresh: v.GetBool("polling.auto_refresh"),
		},
		Advisory: AdvisoryConfig{
			SuccessTTL: v.GetDuration("advisory.success_ttl"),
		},
		Preview: PreviewConfig{
			MaxRows:      v.GetInt("preview.max_rows"),
			BlobCacheTTL: v.GetDuration("preview.blob_cache_ttl"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Stream:   v.GetString("redis.stream"),
		},
		Database: DatabaseConfig{
			Enabled: v.GetBool("database.enabled"),
			Driver:  v.GetString("database.driver"),
			DSN:     v.GetString("database.dsn"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("rate_limit.rps"),
			Burst: v.GetInt("rate_limit.burst"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url must be set"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.Polling.Interval <= 0 {
		errs = append(errs, errors.New("polling.interval must be positive"))
	}
	if c.Advisory.SuccessTTL <= 0 {
		errs = append(errs, errors.New("advisory.success_ttl must be positive"))
	}
	if c.Preview.MaxRows < 0 {
		errs = append(errs, errors.New("preview.max_rows must not be negative"))
	}
	if c.Database.Enabled {
		switch c.Database.Driver {
		case "postgres", "sqlite":
		default:
			errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
		}
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn must be set when the database is enabled"))
		}
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate_limit.rps and rate_limit.burst must be positive"))
	}

	return errors.Join(errs...)
}

const maxPreviewRows = 1_000_000

// ValidateServer adds the checks that only matter for the long-running
// server. Background polling has no caller bearer to forward, and preview
// decodes run for untrusted sample blobs.
func (c *Config) ValidateServer() error {
	var errs []error

	if c.Polling.AutoRefresh && c.Backend.Token == "" && c.Backend.SigningKey == "" {
		errs = append(errs, errors.New("polling.auto_refresh needs backend.token or backend.signing_key"))
	}
	if c.Preview.MaxRows <= 0 || c.Preview.MaxRows > maxPreviewRows {
		errs = append(errs, fmt.Errorf("preview.max_rows must be between 1 and %d", maxPreviewRows))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
