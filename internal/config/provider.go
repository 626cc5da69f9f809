package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

// Provider manages configuration lifecycle and ensures singleton behavior
type Provider struct {
	config *Config
	envDir string
	mu     sync.RWMutex
	loaded bool
}

var (
	instance *Provider
	once     sync.Once
)

// GetProvider returns the singleton configuration provider instance.
// Env files are looked up in the working directory.
func GetProvider() *Provider {
	once.Do(func() {
		instance = NewProvider(".")
	})
	return instance
}

// NewProvider returns a provider reading env files from envDir
func NewProvider(envDir string) *Provider {
	return &Provider{envDir: envDir}
}

// Load loads configuration from environment variables and .env files
// This should be called once at application startup
func (p *Provider) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil // Already loaded
	}

	if err := p.loadEnvFiles(); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}

	cfg, err := p.parseConfig()
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	p.config = cfg
	p.loaded = true
	return nil
}

// Get returns the current configuration
// Returns error if configuration hasn't been loaded
func (p *Provider) Get() (*Config, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded || p.config == nil {
		return nil, fmt.Errorf("configuration not loaded; call Load() first")
	}

	return p.config, nil
}

// MustGet returns the configuration or panics if not loaded
func (p *Provider) MustGet() *Config {
	cfg, err := p.Get()
	if err != nil {
		panic(fmt.Sprintf("failed to get configuration: %v", err))
	}
	return cfg
}

// IsLoaded returns whether configuration has been loaded
func (p *Provider) IsLoaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Reset clears the loaded configuration (useful for testing)
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = nil
	p.loaded = false
}

// loadEnvFiles loads .env files in order of precedence
func (p *Provider) loadEnvFiles() error {
	// Load base .env file (optional); never overrides the real environment
	base := filepath.Join(p.envDir, ".env")
	if _, err := os.Stat(base); err == nil {
		if err := godotenv.Load(base); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	// Load environment-specific file (optional)
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("ENV")
	}
	if env != "" {
		envFile := filepath.Join(p.envDir, fmt.Sprintf(".env.%s", env))
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Overload(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	// Load .env.local for local overrides (highest precedence, optional)
	local := filepath.Join(p.envDir, ".env.local")
	if _, err := os.Stat(local); err == nil {
		if err := godotenv.Overload(local); err != nil {
			return fmt.Errorf("failed to load .env.local: %w", err)
		}
	}

	return nil
}

// parseConfig parses configuration from environment variables
func (p *Provider) parseConfig() (*Config, error) {
	d := DefaultConfig()

	cfg := &Config{
		// Core
		Environment: getEnv("ENVIRONMENT", d.Environment),
		ServiceName: getEnv("SERVICE_NAME", d.ServiceName),
		Version:     getEnv("SERVICE_VERSION", d.Version),

		// Appliance
		NetMRI: NetMRIConfig{
			Host:       getEnv("NETMRI_HOST", ""),
			Username:   getEnv("NETMRI_USER", ""),
			Password:   os.Getenv("NETMRI_PASSWORD"),
			APIVersion: getEnv("NETMRI_API_VERSION", d.NetMRI.APIVersion),
			UseSSL:     getBool("NETMRI_USE_SSL", d.NetMRI.UseSSL),
			SSLVerify:  getBool("NETMRI_SSL_VERIFY", d.NetMRI.SSLVerify),
			Timeout:    getDuration("HTTP_TIMEOUT", "0s"),
			UserAgent:  getEnv("HTTP_USER_AGENT", d.NetMRI.UserAgent),
		},

		Backup: BackupConfig{
			RootDir: getEnv("BACKUP_DIR", d.Backup.RootDir),
		},

		Retry: RetryConfig{
			MaxAttempts:   getInt("RETRY_MAX_ATTEMPTS", d.Retry.MaxAttempts),
			BackoffFactor: getDuration("RETRY_BACKOFF_FACTOR", d.Retry.BackoffFactor.String()),
		},

		Log: LogConfig{
			Dir:        getEnv("LOG_DIR", d.Log.Dir),
			Level:      getEnv("LOG_LEVEL", d.Log.Level),
			Format:     getEnv("LOG_FORMAT", d.Log.Format),
			MaxSizeMB:  getInt("LOG_MAX_SIZE_MB", d.Log.MaxSizeMB),
			MaxBackups: getInt("LOG_MAX_BACKUPS", d.Log.MaxBackups),
			Compress:   getBool("LOG_COMPRESS", d.Log.Compress),
			Stdout:     getBool("LOG_STDOUT", d.Log.Stdout),
		},

		Storage: StorageConfig{
			Provider:   getEnv("STORAGE_PROVIDER", d.Storage.Provider),
			Timeout:    getDuration("STORAGE_TIMEOUT", d.Storage.Timeout.String()),
			MaxRetries: getInt("STORAGE_MAX_RETRIES", d.Storage.MaxRetries),
			S3: S3Config{
				Region:          getEnv("AWS_REGION", d.Storage.S3.Region),
				Bucket:          getEnv("S3_BUCKET", ""),
				Prefix:          getEnv("S3_PREFIX", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			},
		},

		Metrics: MetricsConfig{
			PushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
			Job:            getEnv("METRICS_JOB", d.Metrics.Job),
		},
	}

	cfg.applyDefaults()

	return cfg, nil
}
