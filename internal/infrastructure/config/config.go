package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration: a YAML file layered over
// defaultConfig, with secrets and deployment hosts taken from the
// environment.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Sync      SyncConfig      `yaml:"sync"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// GatewayConfig contains HTTP settings for talking to the remote gateway.
type GatewayConfig struct {
	// ConnectTimeout bounds TCP/TLS connection setup (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`

	// RequestTimeout bounds a whole request/response round trip (seconds).
	RequestTimeout int `yaml:"request_timeout"`
}

// SyncConfig tunes the post-action verification loop.
type SyncConfig struct {
	// VerifyAttempts is how many silent re-fetches follow a successful action.
	VerifyAttempts int `yaml:"verify_attempts"`

	// VerifyBaseDelay is the wait before the first verification read (milliseconds).
	VerifyBaseDelay int `yaml:"verify_base_delay_ms"`

	// VerifyStep is added to the delay for every subsequent attempt (milliseconds).
	VerifyStep int `yaml:"verify_step_ms"`
}

// BootstrapConfig describes a gateway profile seeded into an empty database.
// Leave Name empty to start without a profile.
type BootstrapConfig struct {
	Name           string `yaml:"name"`
	InternalURL    string `yaml:"internal_url"`
	ExternalURL    string `yaml:"external_url"`
	Token          string `yaml:"token"`
	PreferExternal bool   `yaml:"prefer_external"`
	Active         bool   `yaml:"active"`
}

// MQTTConfig contains MQTT broker connection settings.
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
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
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
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
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
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load builds the configuration from defaults, the YAML file at path and
// GRAYLOGIC_* environment variables, in that order, then validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./data/remote.db", WALMode: true, BusyTimeout: 5},
		Gateway:  GatewayConfig{ConnectTimeout: 10, RequestTimeout: 15},
		Sync:     SyncConfig{VerifyAttempts: 3, VerifyBaseDelay: 300, VerifyStep: 200},
		MQTT: MQTTConfig{
			Broker:    MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "graylogic-remote"},
			QoS:       1,
			Reconnect: MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 60},
		},
		API: APIConfig{
			Enabled:  true,
			Host:     "127.0.0.1",
			Port:     8090,
			Timeouts: APITimeoutConfig{Read: 30, Write: 30, Idle: 60},
		},
		WebSocket: WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10},
		InfluxDB:  InfluxDBConfig{BatchSize: 100, FlushInterval: 10},
		Logging:   LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
		Security:  SecurityConfig{JWT: JWTConfig{AccessTokenTTL: 60}},
	}
}

// applyEnvOverrides copies every non-empty GRAYLOGIC_* variable over
// its field. Credentials are expected to arrive this way rather than
// through the YAML file.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"GRAYLOGIC_DATABASE_PATH", &cfg.Database.Path},
		{"GRAYLOGIC_GATEWAY_TOKEN", &cfg.Bootstrap.Token},
		{"GRAYLOGIC_MQTT_HOST", &cfg.MQTT.Broker.Host},
		{"GRAYLOGIC_MQTT_USERNAME", &cfg.MQTT.Auth.Username},
		{"GRAYLOGIC_MQTT_PASSWORD", &cfg.MQTT.Auth.Password},
		{"GRAYLOGIC_API_HOST", &cfg.API.Host},
		{"GRAYLOGIC_INFLUXDB_TOKEN", &cfg.InfluxDB.Token},
		{"GRAYLOGIC_JWT_SECRET", &cfg.Security.JWT.Secret},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// minJWTSecretLength is enforced whenever the API is served; it can
// actuate locks and covers, so it never runs unauthenticated.
const minJWTSecretLength = 32

// Validate reports every problem in one error rather than stopping at
// the first.
func (c *Config) Validate() error {
	var p problems

	p.check(c.Database.Path != "", "database.path is required")
	p.check(c.Gateway.ConnectTimeout >= 1, "gateway.connect_timeout must be at least 1 second")
	p.check(c.Gateway.RequestTimeout >= 1, "gateway.request_timeout must be at least 1 second")
	p.check(c.Sync.VerifyAttempts >= 1, "sync.verify_attempts must be at least 1")
	p.check(c.Sync.VerifyBaseDelay >= 0 && c.Sync.VerifyStep >= 0, "sync verify delays cannot be negative")

	if c.Bootstrap.Name != "" {
		p.check(c.Bootstrap.InternalURL != "" || c.Bootstrap.ExternalURL != "",
			"bootstrap needs internal_url or external_url")
	}

	p.check(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1, or 2")

	if c.API.Enabled {
		p.check(c.API.Port >= 1 && c.API.Port <= 65535, "api.port must be between 1 and 65535")
		if c.API.TLS.Enabled {
			p.check(c.API.TLS.CertFile != "" && c.API.TLS.KeyFile != "",
				"api.tls.cert_file and api.tls.key_file are required when tls is enabled")
		}
		switch {
		case c.Security.JWT.Secret == "":
			p.add("security.jwt.secret is required when the API is enabled (set GRAYLOGIC_JWT_SECRET)")
		case len(c.Security.JWT.Secret) < minJWTSecretLength:
			p.add(fmt.Sprintf("security.jwt.secret must be at least %d characters", minJWTSecretLength))
		}
	}

	if c.InfluxDB.Enabled {
		p.check(c.InfluxDB.URL != "" && c.InfluxDB.Bucket != "",
			"influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	return p.err()
}

type problems []string

func (p *problems) add(msg string) { *p = append(*p, msg) }

func (p *problems) check(ok bool, msg string) {
	if !ok {
		p.add(msg)
	}
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("configuration errors: %s", strings.Join(p, "; "))
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// GetReadTimeout returns the API read timeout.
func (c *Config) GetReadTimeout() time.Duration { return seconds(c.API.Timeouts.Read) }

// GetWriteTimeout returns the API write timeout.
func (c *Config) GetWriteTimeout() time.Duration { return seconds(c.API.Timeouts.Write) }

// GetIdleTimeout returns the API idle timeout.
func (c *Config) GetIdleTimeout() time.Duration { return seconds(c.API.Timeouts.Idle) }

// VerifyDelays returns the verification base delay and per-attempt step.
func (s SyncConfig) VerifyDelays() (base, step time.Duration) {
	return time.Duration(s.VerifyBaseDelay) * time.Millisecond, time.Duration(s.VerifyStep) * time.Millisecond
}
