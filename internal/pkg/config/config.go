package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samirrijal/touristroute/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Auth      AuthConfig      `mapstructure:"auth"`
	View      ViewConfig      `mapstructure:"view"`
	State     StateConfig     `mapstructure:"state"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// BackendConfig points at the external recommendation service.
type BackendConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	Timeout         int    `mapstructure:"timeout"`
	CoordinateOrder string `mapstructure:"coordinate_order"`
}

func (b BackendConfig) TimeoutDuration() time.Duration {
	return time.Duration(b.Timeout) * time.Second
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	TokenTTL  int    `mapstructure:"token_ttl"` // minutes
}

func (a AuthConfig) TokenTTLDuration() time.Duration {
	return time.Duration(a.TokenTTL) * time.Minute
}

type ViewConfig struct {
	FallbackLat float64 `mapstructure:"fallback_lat"`
	FallbackLon float64 `mapstructure:"fallback_lon"`
}

func (v ViewConfig) FallbackCenter() domain.GeoPoint {
	return domain.GeoPoint{Lat: v.FallbackLat, Lon: v.FallbackLon}
}

type StateConfig struct {
	Backend      string `mapstructure:"backend"` // postgres | valkey
	MaxBlobBytes int    `mapstructure:"max_blob_bytes"`
	TTL          int    `mapstructure:"ttl"` // seconds, valkey only; 0 keeps forever
}

type CacheConfig struct {
	TTL int `mapstructure:"ttl"` // seconds; 0 disables the response cache
}

type TemporalConfig struct {
	HostPort      string `mapstructure:"host_port"`
	Namespace     string `mapstructure:"namespace"`
	TaskQueue     string `mapstructure:"task_queue"`
	PurgeSchedule string `mapstructure:"purge_schedule"`
	RetentionDays int    `mapstructure:"retention_days"`
}

func (t TemporalConfig) Retention() time.Duration {
	return time.Duration(t.RetentionDays) * 24 * time.Hour
}

// Load reads configuration from .env, file and environment variables.
func Load(service string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TOURISTROUTE_BACKEND_BASE_URL → backend.base_url
	v.SetEnvPrefix("TOURISTROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 70)
	v.SetDefault("server.request_timeout", 65)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "touristroute")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "touristroute")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", 60)
	v.SetDefault("backend.coordinate_order", string(domain.OrderLonLat))
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*60)
	v.SetDefault("view.fallback_lat", 20.5937)
	v.SetDefault("view.fallback_lon", 78.9629)
	v.SetDefault("state.backend", "postgres")
	v.SetDefault("state.max_blob_bytes", 256*1024)
	v.SetDefault("state.ttl", 0)
	v.SetDefault("cache.ttl", 7*24*60*60)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "touristroute-janitor")
	v.SetDefault("temporal.purge_schedule", "0 3 * * *")
	v.SetDefault("temporal.retention_days", 7)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Backend.BaseURL == "" {
		errs = append(errs, "backend.base_url is required")
	} else if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		errs = append(errs, fmt.Sprintf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, "backend.timeout must be positive")
	}
	if order, err := domain.ParseCoordinateOrder(c.Backend.CoordinateOrder); err != nil || order == domain.OrderUnspecified {
		errs = append(errs, fmt.Sprintf("backend.coordinate_order must be lonlat or latlon, got %q", c.Backend.CoordinateOrder))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, "auth.token_ttl must be positive")
	}
	if !c.View.FallbackCenter().Valid() {
		errs = append(errs, fmt.Sprintf("view fallback center out of range: (%v, %v)", c.View.FallbackLat, c.View.FallbackLon))
	}
	if c.State.Backend != "postgres" && c.State.Backend != "valkey" {
		errs = append(errs, fmt.Sprintf("state.backend must be postgres or valkey, got %q", c.State.Backend))
	}
	if c.State.MaxBlobBytes <= 0 {
		errs = append(errs, "state.max_blob_bytes must be positive")
	}
	if c.State.TTL < 0 {
		errs = append(errs, "state.ttl must not be negative")
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}
	if c.Temporal.RetentionDays <= 0 {
		errs = append(errs, "temporal.retention_days must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
