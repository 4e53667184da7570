// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	API           APIConfig           `mapstructure:"api"`
	CSV           CSVConfig           `mapstructure:"csv"`
	Database      DatabaseConfig      `mapstructure:"database"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	BaseURL     string `mapstructure:"base_url"`
}

type ServerConfig struct {
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"` // milliseconds
	SessionCookie   string `mapstructure:"session_cookie"`
	SessionLifetime int    `mapstructure:"session_lifetime"` // hours
	SecureCookie    bool   `mapstructure:"secure_cookie"`
}

// SessionTTL is the lifetime of a session and its draft.
func (s ServerConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionLifetime) * time.Hour
}

// APIConfig describes the backend notification API.
type APIConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	AdminClientID     string `mapstructure:"admin_client_id"`
	AdminClientSecret string `mapstructure:"admin_client_secret"`
	RequestTimeout    int    `mapstructure:"request_timeout"` // seconds
	CacheTTL          int    `mapstructure:"cache_ttl"`       // seconds
}

// Timeout is the bound applied to every backend call.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.RequestTimeout) * time.Second
}

func (a APIConfig) CacheDuration() time.Duration {
	return time.Duration(a.CacheTTL) * time.Second
}

type CSVConfig struct {
	MaxRows         int `mapstructure:"max_rows"`
	MaxRowsBulkSend int `mapstructure:"max_rows_bulk_send"`
	PreviewRows     int `mapstructure:"preview_rows"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AWSConfig struct {
	Region string   `mapstructure:"region"`
	S3     S3Config `mapstructure:"s3"`
}

type S3Config struct {
	UploadBucket string `mapstructure:"upload_bucket"`
	SendBucket   string `mapstructure:"send_bucket"`
	Endpoint     string `mapstructure:"endpoint"`
}

type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
