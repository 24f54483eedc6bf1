package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for HomePulse Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Health    HealthConfig    `yaml:"health"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// SiteConfig contains site-specific information.
// The timezone and coordinates drive time-of-day triggers and
// sunrise/sunset calculations.
type SiteConfig struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Timezone string         `yaml:"timezone"`
	Location LocationConfig `yaml:"location"`
}

// LocationConfig contains geographic coordinates for astronomical calculations.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// GatewayConfig contains settings for the external device-control gateway.
//
// The gateway is the cloud service that owns the device registry and
// executes capability commands. An empty token leaves the engine running
// in a degraded "not connected" state where every command fails fast.
type GatewayConfig struct {
	URL        string `yaml:"url"`
	Token      string `yaml:"token"`
	LocationID string `yaml:"location_id"`

	// CommandTimeout is the per-command timeout in seconds. Default: 10.
	CommandTimeout int `yaml:"command_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for the gateway
// event feed (device attribute-change pushes).
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// HealthConfig contains settings for the health telemetry store and the
// suggestion engine.
type HealthConfig struct {
	InfluxDB InfluxDBConfig `yaml:"influxdb"`

	// RecentDays is how far back body-weather snapshots are fetched. Default: 7.
	RecentDays int `yaml:"recent_days"`

	// SuggestInterval is the suggestion engine cycle in seconds. Default: 300.
	SuggestInterval int `yaml:"suggest_interval"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`

	// BatchSize is the number of points buffered before an async write. Default: 100.
	BatchSize int `yaml:"batch_size"`

	// FlushInterval is how often buffered points are flushed (seconds). Default: 10.
	FlushInterval int `yaml:"flush_interval"`
}

// SchedulerConfig contains trigger scheduler settings.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`

	// TickInterval is the evaluation tick in seconds. Default: 60.
	TickInterval int `yaml:"tick_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`

	// AdminPassword is the single-user dashboard password.
	// Set HOMEPULSE_ADMIN_PASSWORD rather than committing it to the file.
	AdminPassword string `yaml:"admin_password"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMEPULSE_SECTION_KEY
// For example: HOMEPULSE_DATABASE_PATH, HOMEPULSE_GATEWAY_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "home-001",
			Name:     "HomePulse",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/homepulse.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Gateway: GatewayConfig{
			CommandTimeout: 10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homepulse-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Health: HealthConfig{
			RecentDays:      7,
			SuggestInterval: 300,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			TickInterval: 60,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMEPULSE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("HOMEPULSE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Gateway
	if v := os.Getenv("HOMEPULSE_GATEWAY_URL"); v != "" {
		cfg.Gateway.URL = v
	}
	if v := os.Getenv("HOMEPULSE_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}

	// MQTT
	if v := os.Getenv("HOMEPULSE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMEPULSE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMEPULSE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Health telemetry
	if v := os.Getenv("HOMEPULSE_INFLUXDB_TOKEN"); v != "" {
		cfg.Health.InfluxDB.Token = v
	}

	// Security - always override secrets in production
	if v := os.Getenv("HOMEPULSE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("HOMEPULSE_ADMIN_PASSWORD"); v != "" {
		cfg.Security.AdminPassword = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid IANA zone", c.Site.Timezone))
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Gateway validation (token may legitimately be empty: degraded mode)
	if c.Gateway.CommandTimeout <= 0 {
		errs = append(errs, "gateway.command_timeout must be positive")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Scheduler validation
	if c.Scheduler.TickInterval <= 0 {
		errs = append(errs, "scheduler.tick_interval must be positive")
	}
	if c.Health.SuggestInterval <= 0 {
		errs = append(errs, "health.suggest_interval must be positive")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Security validation - JWT secret is REQUIRED.
	// A forged token grants control over physical devices including locks,
	// so weak secrets are rejected outright.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set HOMEPULSE_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the configured site timezone, falling back to UTC
// if it cannot be loaded. Validate() catches bad zones at startup, so
// the fallback only matters for zero-value configs in tests.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// Timeout returns the gateway per-command timeout as a Duration.
func (c *GatewayConfig) Timeout() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}

// Tick returns the scheduler tick as a Duration.
func (c *SchedulerConfig) Tick() time.Duration {
	return time.Duration(c.TickInterval) * time.Second
}

// Interval returns the suggestion cycle as a Duration.
func (c *HealthConfig) Interval() time.Duration {
	return time.Duration(c.SuggestInterval) * time.Second
}
