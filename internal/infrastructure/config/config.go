package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Source      SourceConfig
	Destination DestinationConfig
	Sync        SyncConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// SourceCredentials holds one catalog API tenant credential set
type SourceCredentials struct {
	Subdomain string
	APIKey    string
}

// SourceConfig holds catalog API connection settings. Live and Test are
// separate tenant credential sets; the engine's mode setting picks one.
type SourceConfig struct {
	BaseURL string
	Timeout time.Duration
	Live    SourceCredentials
	Test    SourceCredentials
}

// DestinationCredentials holds one fulfillment API account credential set
type DestinationCredentials struct {
	RefreshToken string
}

// DestinationConfig holds fulfillment API connection settings. Live and
// Test are separate account credential sets; the engine's mode setting
// picks one.
type DestinationConfig struct {
	GraphQLURL  string
	AuthURL     string
	Timeout     time.Duration
	TokenMargin time.Duration // refresh this long before expiry
	Live        DestinationCredentials
	Test        DestinationCredentials
}

// SyncConfig holds sync engine settings
type SyncConfig struct {
	PollInterval   time.Duration
	PageSize       int
	MaxRetries     int
	BaseRetryDelay time.Duration
	Mode           string // live, test
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MEDIATOR_ prefix (e.g., MEDIATOR_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("MEDIATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Source: SourceConfig{
			BaseURL: v.GetString("source.base_url"),
			Timeout: v.GetDuration("source.timeout"),
			Live: SourceCredentials{
				Subdomain: v.GetString("source.live.subdomain"),
				APIKey:    v.GetString("source.live.api_key"),
			},
			Test: SourceCredentials{
				Subdomain: v.GetString("source.test.subdomain"),
				APIKey:    v.GetString("source.test.api_key"),
			},
		},
		Destination: DestinationConfig{
			GraphQLURL:  v.GetString("destination.graphql_url"),
			AuthURL:     v.GetString("destination.auth_url"),
			Timeout:     v.GetDuration("destination.timeout"),
			TokenMargin: v.GetDuration("destination.token_margin"),
			Live: DestinationCredentials{
				RefreshToken: v.GetString("destination.live.refresh_token"),
			},
			Test: DestinationCredentials{
				RefreshToken: v.GetString("destination.test.refresh_token"),
			},
		},
		Sync: SyncConfig{
			PollInterval:   v.GetDuration("sync.poll_interval"),
			PageSize:       v.GetInt("sync.page_size"),
			MaxRetries:     v.GetInt("sync.max_retries"),
			BaseRetryDelay: v.GetDuration("sync.base_retry_delay"),
			Mode:           v.GetString("sync.mode"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mediator-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "mediator"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "https://{subdomain}.fulfil.io"
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30 * time.Second
	}
	if cfg.Destination.GraphQLURL == "" {
		cfg.Destination.GraphQLURL = "https://public-api.shiphero.com/graphql"
	}
	if cfg.Destination.AuthURL == "" {
		cfg.Destination.AuthURL = "https://public-api.shiphero.com/auth/refresh"
	}
	if cfg.Destination.Timeout == 0 {
		cfg.Destination.Timeout = 30 * time.Second
	}
	if cfg.Destination.TokenMargin == 0 {
		cfg.Destination.TokenMargin = 60 * time.Second
	}
	if cfg.Sync.PollInterval == 0 {
		cfg.Sync.PollInterval = 10 * time.Minute
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 100
	}
	if cfg.Sync.MaxRetries == 0 {
		cfg.Sync.MaxRetries = 3
	}
	if cfg.Sync.BaseRetryDelay == 0 {
		cfg.Sync.BaseRetryDelay = time.Second
	}
	if cfg.Sync.Mode == "" {
		cfg.Sync.Mode = "test"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Sync.Mode != "live" && c.Sync.Mode != "test" {
		return fmt.Errorf("sync.mode must be 'live' or 'test', got %q", c.Sync.Mode)
	}
	if c.Sync.PageSize < 1 {
		return fmt.Errorf("sync.page_size must be positive")
	}
	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync.max_retries cannot be negative")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Source.Live.APIKey == "" {
			return fmt.Errorf("source.live.api_key is required in production")
		}
		if c.Source.Live.Subdomain == "" {
			return fmt.Errorf("source.live.subdomain is required in production")
		}
		if c.Destination.Live.RefreshToken == "" {
			return fmt.Errorf("destination.live.refresh_token is required in production")
		}
		if c.Sync.Mode != "live" {
			return fmt.Errorf("sync.mode must be 'live' in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// ResolvedBaseURL substitutes a credential set's subdomain into the base URL.
func (s *SourceConfig) ResolvedBaseURL(creds SourceCredentials) string {
	return strings.ReplaceAll(s.BaseURL, "{subdomain}", creds.Subdomain)
}
