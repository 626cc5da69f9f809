package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	Version     string

	// Component configurations
	NetMRI  NetMRIConfig
	Backup  BackupConfig
	Retry   RetryConfig
	Log     LogConfig
	Storage StorageConfig
	Metrics MetricsConfig
}

// NetMRIConfig holds the appliance connection settings
type NetMRIConfig struct {
	Host       string
	Username   string
	Password   string
	APIVersion string // "auto" resolves the latest version from the appliance
	UseSSL     bool
	SSLVerify  bool
	Timeout    time.Duration // zero means no timeout
	UserAgent  string
}

// BackupConfig holds local backup layout settings
type BackupConfig struct {
	RootDir string
}

// RetryConfig holds the archive download retry policy
type RetryConfig struct {
	MaxAttempts   int
	BackoffFactor time.Duration
}

// LogConfig holds log file settings
type LogConfig struct {
	Dir        string
	Level      string
	Format     string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
	Stdout     bool
}

// StorageConfig holds off-site mirror configuration
type StorageConfig struct {
	Provider   string
	Timeout    time.Duration
	MaxRetries int
	S3         S3Config
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string // Only for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
}

// MetricsConfig holds Prometheus Pushgateway settings
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"text": true, "json": true}
)

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	// Required connection settings
	if c.NetMRI.Host == "" {
		errors = append(errors, "NETMRI_HOST is required")
	}
	if c.NetMRI.Username == "" {
		errors = append(errors, "NETMRI_USER is required")
	}
	if c.NetMRI.Password == "" {
		errors = append(errors, "NETMRI_PASSWORD is required")
	}
	if c.NetMRI.Timeout < 0 {
		errors = append(errors, "HTTP_TIMEOUT cannot be negative")
	}

	if c.Backup.RootDir == "" {
		errors = append(errors, "BACKUP_DIR cannot be empty")
	}

	if c.Retry.MaxAttempts < 0 {
		errors = append(errors, "RETRY_MAX_ATTEMPTS cannot be negative")
	}
	if c.Retry.BackoffFactor < 0 {
		errors = append(errors, "RETRY_BACKOFF_FACTOR cannot be negative")
	}

	if c.Log.Dir == "" {
		errors = append(errors, "LOG_DIR cannot be empty")
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT %q is not one of text, json", c.Log.Format))
	}
	if c.Log.MaxSizeMB < 1 {
		errors = append(errors, "LOG_MAX_SIZE_MB must be at least 1")
	}
	if c.Log.MaxBackups < 0 {
		errors = append(errors, "LOG_MAX_BACKUPS cannot be negative")
	}

	if err := c.Storage.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate validates the mirror configuration
func (s *StorageConfig) Validate() error {
	switch s.Provider {
	case "", "none":
		return nil
	case "s3":
		if s.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_PROVIDER is s3")
		}
		if s.MaxRetries < 0 {
			return fmt.Errorf("STORAGE_MAX_RETRIES cannot be negative")
		}
		return nil
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER: %s", s.Provider)
	}
}

// IsMirrorEnabled reports whether downloaded files are copied off-site
func (c *Config) IsMirrorEnabled() bool {
	return c.Storage.Provider != "" && c.Storage.Provider != "none"
}

// IsPushEnabled reports whether metrics are pushed at the end of a run
func (c *Config) IsPushEnabled() bool {
	return c.Metrics.PushgatewayURL != ""
}
