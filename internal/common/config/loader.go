// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment names the admin has
// always recognised.
var envBindings = map[string]string{
	"api.base_url":            "API_HOST_NAME",
	"api.admin_client_id":     "ADMIN_CLIENT_USER_NAME",
	"api.admin_client_secret": "ADMIN_CLIENT_SECRET",
	"api.request_timeout":     "REQUEST_TIMEOUT",
	"csv.max_rows":            "CSV_MAX_ROWS",
	"csv.max_rows_bulk_send":  "CSV_MAX_ROWS_BULK_SEND",
	"database.redis.address":  "REDIS_URL",
	"aws.region":              "AWS_REGION",
	"aws.s3.upload_bucket":    "CSV_UPLOAD_BUCKET_NAME",
	"aws.s3.send_bucket":      "BULK_SEND_BUCKET_NAME",
	"aws.s3.endpoint":         "AWS_S3_ENDPOINT",
	"app.environment":         "APP_ENVIRONMENT",
	"app.base_url":            "ADMIN_BASE_URL",
	"server.port":             "PORT",
	"logging.level":           "LOG_LEVEL",
}

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "notify-admin"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 6012
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.SessionCookie == "" {
		cfg.Server.SessionCookie = "notify_admin_session"
	}
	if cfg.Server.SessionLifetime == 0 {
		cfg.Server.SessionLifetime = 20
	}

	if cfg.API.RequestTimeout == 0 {
		cfg.API.RequestTimeout = 5
	}
	if cfg.API.CacheTTL == 0 {
		cfg.API.CacheTTL = int((7 * 24 * time.Hour).Seconds())
	}

	if cfg.CSV.MaxRows == 0 {
		cfg.CSV.MaxRows = 50000
	}
	if cfg.CSV.MaxRowsBulkSend == 0 {
		cfg.CSV.MaxRowsBulkSend = 100000
	}
	if cfg.CSV.PreviewRows == 0 {
		cfg.CSV.PreviewRows = 50
	}

	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "ca-central-1"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.AWS.S3.UploadBucket == "" {
		return fmt.Errorf("aws.s3.upload_bucket is required")
	}
	if cfg.CSV.MaxRows < 0 || cfg.CSV.MaxRowsBulkSend < 0 {
		return fmt.Errorf("csv row limits must not be negative")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
