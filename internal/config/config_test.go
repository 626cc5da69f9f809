package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets keys for the duration of a test. godotenv writes straight
// into the process environment, so t.Setenv cannot restore those values.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		prev, had := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, prev)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("NETMRI_HOST", "netmri.example.com")
	t.Setenv("NETMRI_USER", "admin")
	t.Setenv("NETMRI_PASSWORD", "secret")
}

func TestProvider_Singleton(t *testing.T) {
	provider1 := GetProvider()
	provider2 := GetProvider()

	assert.Same(t, provider1, provider2, "should return same instance")
}

func TestProvider_LoadDefaults(t *testing.T) {
	setCredentials(t)
	t.Setenv("ENVIRONMENT", "test")

	provider := NewProvider(t.TempDir())
	require.NoError(t, provider.Load())

	cfg := provider.MustGet()
	assert.Equal(t, "netmri.example.com", cfg.NetMRI.Host)
	assert.Equal(t, "admin", cfg.NetMRI.Username)
	assert.Equal(t, "secret", cfg.NetMRI.Password)
	assert.Equal(t, "auto", cfg.NetMRI.APIVersion)
	assert.True(t, cfg.NetMRI.UseSSL)
	assert.False(t, cfg.NetMRI.SSLVerify)
	assert.Equal(t, time.Duration(0), cfg.NetMRI.Timeout)

	assert.Equal(t, "backups", cfg.Backup.RootDir)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Retry.BackoffFactor)

	assert.Equal(t, "logs", cfg.Log.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 1, cfg.Log.MaxSizeMB)
	assert.Equal(t, 10, cfg.Log.MaxBackups)

	assert.False(t, cfg.IsMirrorEnabled())
	assert.False(t, cfg.IsPushEnabled())
	assert.Equal(t, "netmri_backup", cfg.Metrics.Job)
}

func TestProvider_LoadIsIdempotent(t *testing.T) {
	setCredentials(t)
	t.Setenv("ENVIRONMENT", "test")

	provider := NewProvider(t.TempDir())
	require.NoError(t, provider.Load())
	first := provider.MustGet()

	t.Setenv("NETMRI_HOST", "other.example.com")
	require.NoError(t, provider.Load())

	assert.Same(t, first, provider.MustGet())
	assert.True(t, provider.IsLoaded())

	provider.Reset()
	assert.False(t, provider.IsLoaded())
	_, err := provider.Get()
	assert.Error(t, err)
}

func TestProvider_MissingCredentials(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("NETMRI_HOST", "")
	t.Setenv("NETMRI_USER", "")
	t.Setenv("NETMRI_PASSWORD", "")

	provider := NewProvider(t.TempDir())
	err := provider.Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "NETMRI_HOST is required")
	assert.Contains(t, err.Error(), "NETMRI_USER is required")
	assert.Contains(t, err.Error(), "NETMRI_PASSWORD is required")
	assert.False(t, provider.IsLoaded())
	assert.Panics(t, func() { provider.MustGet() })
}

func TestProvider_EnvFiles(t *testing.T) {
	clearEnv(t, "NETMRI_HOST", "NETMRI_USER", "NETMRI_PASSWORD", "BACKUP_DIR", "ENV")
	t.Setenv("ENVIRONMENT", "staging")

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"),
		"NETMRI_HOST=base.example.com\nNETMRI_USER=backup\nNETMRI_PASSWORD=pw\nBACKUP_DIR=/srv/base\n")
	writeFile(t, filepath.Join(dir, ".env.staging"), "BACKUP_DIR=/srv/staging\n")
	writeFile(t, filepath.Join(dir, ".env.local"), "NETMRI_HOST=local.example.com\n")

	provider := NewProvider(dir)
	require.NoError(t, provider.Load())

	cfg := provider.MustGet()
	assert.Equal(t, "local.example.com", cfg.NetMRI.Host)
	assert.Equal(t, "backup", cfg.NetMRI.Username)
	assert.Equal(t, "/srv/staging", cfg.Backup.RootDir)
}

func TestProvider_Overrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_BACKOFF_FACTOR", "2")
	t.Setenv("HTTP_TIMEOUT", "90s")
	t.Setenv("NETMRI_SSL_VERIFY", "true")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("STORAGE_PROVIDER", "s3")
	t.Setenv("S3_BUCKET", "netmri-archives")
	t.Setenv("METRICS_PUSHGATEWAY_URL", "http://pushgateway:9091")

	provider := NewProvider(t.TempDir())
	require.NoError(t, provider.Load())

	cfg := provider.MustGet()
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.BackoffFactor)
	assert.Equal(t, 90*time.Second, cfg.NetMRI.Timeout)
	assert.True(t, cfg.NetMRI.SSLVerify)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.IsMirrorEnabled())
	assert.Equal(t, "netmri-backup", cfg.Storage.S3.Prefix)
	assert.True(t, cfg.IsPushEnabled())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.NetMRI.Host = "netmri"
		cfg.NetMRI.Username = "admin"
		cfg.NetMRI.Password = "secret"
		return cfg
	}

	tests := []struct {
		name          string
		mutate        func(*Config)
		expectedError string
	}{
		{
			name:   "valid configuration",
			mutate: func(*Config) {},
		},
		{
			name:          "negative retry attempts",
			mutate:        func(c *Config) { c.Retry.MaxAttempts = -1 },
			expectedError: "RETRY_MAX_ATTEMPTS cannot be negative",
		},
		{
			name:          "unknown log level",
			mutate:        func(c *Config) { c.Log.Level = "trace" },
			expectedError: "LOG_LEVEL",
		},
		{
			name:          "unknown log format",
			mutate:        func(c *Config) { c.Log.Format = "xml" },
			expectedError: "LOG_FORMAT",
		},
		{
			name:          "rotation threshold below one megabyte",
			mutate:        func(c *Config) { c.Log.MaxSizeMB = 0 },
			expectedError: "LOG_MAX_SIZE_MB must be at least 1",
		},
		{
			name:          "s3 without bucket",
			mutate:        func(c *Config) { c.Storage.Provider = "s3" },
			expectedError: "S3_BUCKET is required",
		},
		{
			name:          "unsupported storage provider",
			mutate:        func(c *Config) { c.Storage.Provider = "gcs" },
			expectedError: "unsupported STORAGE_PROVIDER",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestGetDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "1m30s")
	assert.Equal(t, 90*time.Second, getDuration("TEST_DURATION", "10s"))

	t.Setenv("TEST_DURATION", "15")
	assert.Equal(t, 15*time.Second, getDuration("TEST_DURATION", "10s"))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, 10*time.Second, getDuration("TEST_DURATION", "10s"))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
