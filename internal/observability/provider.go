// Package observability wires the structured logger and Prometheus metrics
// into component-scoped instances for the backup run.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"netmri-backup/internal/observability/logger"
	"netmri-backup/internal/observability/metrics"
	"netmri-backup/internal/observability/types"
)

// Logger is a type alias for the Logger interface from the types package.
type Logger = types.Logger

// Metrics is a type alias for the Metrics interface from the types package.
type Metrics = types.Metrics

// Fields is a type alias for structured logging fields.
type Fields = types.Fields

// Config is a type alias for the observability configuration.
type Config = types.Config

// Provider is a type alias for the Provider interface from the types package.
type Provider = types.Provider

// DefaultProvider implements the Provider interface.
// Loggers and metrics are created lazily, one per component, and all
// metrics share the provider's private registry.
type DefaultProvider struct {
	config   *Config
	registry *prometheus.Registry
	loggers  map[string]Logger
	metrics  map[string]Metrics
	mu       sync.RWMutex
}

// NewProvider creates a new observability provider with the given configuration.
// If LogOutput is not specified in the config, it defaults to os.Stdout.
//
// Example:
//
//	provider := NewProvider(&Config{
//		ServiceName: "netmri-backup",
//		LogLevel:    "debug",
//		LogOutput:   rotatingFile,
//	})
//	log := provider.Logger("backup")
func NewProvider(config *Config) *DefaultProvider {
	if config.LogOutput == nil {
		config.LogOutput = os.Stdout
	}

	return &DefaultProvider{
		config:   config,
		registry: prometheus.NewRegistry(),
		loggers:  make(map[string]Logger),
		metrics:  make(map[string]Metrics),
	}
}

// Logger returns the Logger for component, tagged with a "component" field.
func (p *DefaultProvider) Logger(component string) Logger {
	p.mu.RLock()
	if l, exists := p.loggers[component]; exists {
		p.mu.RUnlock()
		return l
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check
	if l, exists := p.loggers[component]; exists {
		return l
	}

	fields := make(Fields)
	for k, v := range p.config.AdditionalFields {
		fields[k] = v
	}
	fields["component"] = component

	var l Logger = logger.New(logger.Options{
		ServiceName: p.config.ServiceName,
		Environment: p.config.Environment,
		Level:       p.config.LogLevel,
		Format:      p.config.LogFormat,
		Output:      p.config.LogOutput,
		Fields:      fields,
	})
	p.loggers[component] = l

	return l
}

// Metrics returns the Metrics for component. Metric names are prefixed
// with "{service}_{component}".
func (p *DefaultProvider) Metrics(component string) Metrics {
	p.mu.RLock()
	if m, exists := p.metrics[component]; exists {
		p.mu.RUnlock()
		return m
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if m, exists := p.metrics[component]; exists {
		return m
	}

	prefix := fmt.Sprintf("%s_%s", p.config.ServiceName, component)
	var m Metrics = metrics.New(prefix, p.registry)
	p.metrics[component] = m

	return m
}

// Gatherer exposes the registry holding every component's metrics.
func (p *DefaultProvider) Gatherer() prometheus.Gatherer {
	return p.registry
}

// Push sends all collected metrics to a Pushgateway.
func (p *DefaultProvider) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	return metrics.Push(ctx, url, job, p.registry, grouping)
}

// Close closes the LogOutput if it implements io.Closer, except for
// os.Stdout and os.Stderr.
func (p *DefaultProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if closer, ok := p.config.LogOutput.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}

	return nil
}
