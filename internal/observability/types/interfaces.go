// Package types holds the observability contracts shared by every component
// of the backup run. Implementations live in the logger and metrics packages.
package types

import (
	"context"
	"io"
)

// Logger defines the contract for structured logging.
// All methods are context-aware so callers can thread cancellation through.
type Logger interface {
	// Info logs an informational message.
	Info(ctx context.Context, msg string, fields Fields)

	// Error logs an error message with the associated error.
	//
	// Parameters:
	//   - ctx: Context of the operation that failed
	//   - msg: The log message describing the error context
	//   - err: The error object to be logged (may be nil)
	//   - fields: Additional structured fields for context
	Error(ctx context.Context, msg string, err error, fields Fields)

	// Warn logs a warning message.
	// Use for failures that do not stop the run.
	Warn(ctx context.Context, msg string, fields Fields)

	// Debug logs a debug message.
	Debug(ctx context.Context, msg string, fields Fields)

	// WithFields returns a new Logger instance with additional persistent fields.
	WithFields(fields Fields) Logger
}

// Metrics defines the contract for metrics collection.
// Implementations should follow Prometheus naming conventions.
type Metrics interface {
	// RecordSuccess increments the success counter for an operation type.
	RecordSuccess(operationType string)

	// RecordError increments the error counter for an operation and error type.
	//
	// Parameters:
	//   - operationType: The operation that failed (e.g., "download_archive")
	//   - errorType: The category of error (e.g., "api", "connection", "filesystem")
	RecordError(operationType string, errorType string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, duration float64)

	// RecordFileSize records the size of a downloaded file in bytes.
	RecordFileSize(fileType string, bytes int64)

	// StartOperation increments the in-progress gauge for an operation.
	// Must be paired with EndOperation.
	StartOperation(operation string)

	// EndOperation decrements the in-progress gauge for an operation.
	EndOperation(operation string)
}

// Fields represents structured logging fields as key-value pairs.
//
// Example:
//
//	fields := Fields{
//		"operation": "system_backup/download_archive",
//		"attempt":   2,
//	}
type Fields map[string]interface{}

// Config holds observability configuration for the provider.
type Config struct {
	// ServiceName identifies the service in logs and prefixes metric names.
	ServiceName string

	// Environment specifies the deployment environment.
	Environment string

	// LogLevel sets the minimum log level to output.
	// Valid values: "debug", "info", "warn", "error".
	LogLevel string

	// LogFormat selects the line layout: "text" or "json".
	LogFormat string

	// LogOutput specifies where logs should be written.
	// If nil, defaults to os.Stdout.
	LogOutput io.Writer

	// AdditionalFields are fields included in every log entry.
	AdditionalFields Fields
}

// Provider manages the lifecycle of observability components.
type Provider interface {
	// Logger returns a Logger instance for the specified component.
	// Multiple calls with the same component name return the same logger instance.
	Logger(component string) Logger

	// Metrics returns a Metrics instance for the specified component.
	// Multiple calls with the same component name return the same metrics instance.
	Metrics(component string) Metrics

	// Close shuts down the provider and releases all resources, such as
	// the log file handle.
	Close() error
}
