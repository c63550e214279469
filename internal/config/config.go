// Package config loads and validates downloader configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rstiegler/cf1400-downloader/internal/downloader"
	"github.com/rstiegler/cf1400-downloader/internal/logging"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Start    StartConfig    `mapstructure:"start"`
	CF1400   CF1400Config   `mapstructure:"cf1400"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DatabaseConfig holds the connection parameters for the records table.
// DSN wins over the discrete fields when both are set.
type DatabaseConfig struct {
	Driver                 string `mapstructure:"driver"`
	DSN                    string `mapstructure:"dsn"`
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	Name                   string `mapstructure:"name"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	SSLMode                string `mapstructure:"sslmode"`
	Table                  string `mapstructure:"table"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
	EnsureSchema           bool   `mapstructure:"ensure_schema"`
}

// StartConfig is the seed period used before anything has been downloaded.
type StartConfig struct {
	Year    int `mapstructure:"year"`
	Month   int `mapstructure:"month"`
	Quarter int `mapstructure:"quarter"`
}

// CF1400Config describes where and how the document is looked for.
type CF1400Config struct {
	FilenameBase   string   `mapstructure:"filename_base"`
	BaseURLs       []string `mapstructure:"base_urls"`
	Suffixes       []string `mapstructure:"suffixes"`
	DownloadDir    string   `mapstructure:"download_dir"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	UserAgent      string   `mapstructure:"user_agent"`

	// RequestsPerSecond caps probes per host; 0 disables the limit.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// MirrorConfig enables copying downloads to a GCS bucket.
type MirrorConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CF1400")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	// Comma-separated so an empty entry can stand for the bare base name.
	if raw := os.Getenv("CF1400_CF1400_SUFFIXES"); raw != "" {
		cfg.CF1400.Suffixes = strings.Split(raw, ",")
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("parse PORT: %w", err)
		}
		cfg.Server.Port = p
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every key. AutomaticEnv only resolves keys viper
// already knows about, so a key missing here cannot be set from the
// environment alone.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.table", "cf1400_files")
	v.SetDefault("database.max_conns", 0)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime_seconds", 0)
	v.SetDefault("database.ensure_schema", false)
	v.SetDefault("start.year", 0)
	v.SetDefault("start.month", 0)
	v.SetDefault("start.quarter", 0)
	v.SetDefault("cf1400.filename_base", "CF1400")
	v.SetDefault("cf1400.base_urls", []string{"https://www.cbp.gov/sites/default/files"})
	v.SetDefault("cf1400.suffixes", []string{"", "_2"})
	v.SetDefault("cf1400.download_dir", "downloads")
	v.SetDefault("cf1400.timeout_seconds", 10)
	v.SetDefault("cf1400.user_agent", "cf1400-downloader/1.0")
	v.SetDefault("cf1400.requests_per_second", 0)
	v.SetDefault("cf1400.burst", 1)
	v.SetDefault("mirror.gcs_bucket", "")
	v.SetDefault("mirror.prefix", "cf1400")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("database.dsn or database.host must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}
	if err := c.StartPeriod().Validate(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if c.Start.Quarter < 0 || c.Start.Quarter > 4 {
		return fmt.Errorf("start.quarter must be within 0..4")
	}
	if strings.TrimSpace(c.CF1400.FilenameBase) == "" {
		return fmt.Errorf("cf1400.filename_base must be set")
	}
	if len(c.CF1400.BaseURLs) == 0 {
		return fmt.Errorf("cf1400.base_urls must contain at least one URL")
	}
	for _, raw := range c.CF1400.BaseURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("cf1400.base_urls: invalid URL %q", raw)
		}
	}
	if strings.TrimSpace(c.CF1400.DownloadDir) == "" {
		return fmt.Errorf("cf1400.download_dir must be set")
	}
	if c.CF1400.TimeoutSeconds <= 0 {
		return fmt.Errorf("cf1400.timeout_seconds must be > 0")
	}
	if c.CF1400.RequestsPerSecond < 0 {
		return fmt.Errorf("cf1400.requests_per_second must be >= 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// StartPeriod returns the configured seed period.
func (c Config) StartPeriod() downloader.Period {
	return downloader.Period{Year: c.Start.Year, Month: c.Start.Month}
}

// StartState returns the seed state including the configured quarter.
func (c Config) StartState() downloader.Start {
	return downloader.Start{Period: c.StartPeriod(), Quarter: c.Start.Quarter}
}

// ProbeTimeout converts the per-candidate timeout to a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.CF1400.TimeoutSeconds) * time.Second
}

// ProbeConfig maps the cf1400 section onto the prober's settings.
func (c Config) ProbeConfig() downloader.ProbeConfig {
	return downloader.ProbeConfig{
		BaseURLs:     c.CF1400.BaseURLs,
		FilenameBase: c.CF1400.FilenameBase,
		Suffixes:     c.CF1400.Suffixes,
		Timeout:      c.ProbeTimeout(),
	}
}

// ConnString returns the pgx connection string, building one from the
// discrete fields when no DSN is set.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   d.Host,
		Path:   "/" + d.Name,
	}
	if d.Port > 0 {
		u.Host = fmt.Sprintf("%s:%d", d.Host, d.Port)
	}
	switch {
	case d.User != "" && d.Password != "":
		u.User = url.UserPassword(d.User, d.Password)
	case d.User != "":
		u.User = url.User(d.User)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// MaxConnLifetime converts the pool lifetime to a duration.
func (d DatabaseConfig) MaxConnLifetime() time.Duration {
	return time.Duration(d.MaxConnLifetimeSeconds) * time.Second
}
