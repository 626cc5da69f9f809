package config

import "time"

// DefaultRetryConfig returns the archive download retry policy: three
// additional attempts sleeping 10s, 20s and 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		BackoffFactor: 10 * time.Second,
	}
}

// DefaultLogConfig returns defaults for the daily log file
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Dir:        "logs",
		Level:      "debug",
		Format:     "text",
		MaxSizeMB:  1,
		MaxBackups: 10,
	}
}

// DefaultNetMRIConfig returns connection defaults. TLS verification is off
// because appliances ship with self-signed certificates.
func DefaultNetMRIConfig() NetMRIConfig {
	return NetMRIConfig{
		APIVersion: "auto",
		UseSSL:     true,
		SSLVerify:  false,
		UserAgent:  "netmri-backup/1.0",
	}
}

// DefaultStorageConfig returns defaults for the off-site mirror
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Provider:   "none",
		Timeout:    5 * time.Minute,
		MaxRetries: 3,
		S3: S3Config{
			Region: "us-east-2",
		},
	}
}

// DefaultConfig returns a complete configuration with defaults. Credentials
// are left empty and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		Environment: "local",
		ServiceName: "netmri-backup",
		Version:     "1.0.0",

		NetMRI:  DefaultNetMRIConfig(),
		Backup:  BackupConfig{RootDir: "backups"},
		Retry:   DefaultRetryConfig(),
		Log:     DefaultLogConfig(),
		Storage: DefaultStorageConfig(),
		Metrics: MetricsConfig{Job: "netmri_backup"},
	}
}

// applyDefaults fills values that cannot be expressed as plain env defaults
func (c *Config) applyDefaults() {
	if c.Metrics.Job == "" {
		c.Metrics.Job = "netmri_backup"
	}
	if c.Storage.Provider == "s3" && c.Storage.S3.Prefix == "" {
		c.Storage.S3.Prefix = c.ServiceName
	}
}
