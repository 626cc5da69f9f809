// Package logger provides the structured logger used by the backup run.
// It writes either the legacy text layout
//
//	10/19/2026 01:02:03 PM INFO: create_archive: requested new db archive key=value
//
// or one JSON object per line for log aggregation systems.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"netmri-backup/internal/observability/types"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

// Log level constants ordered by severity (lowest to highest).
const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Supported line layouts.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// TextTimeLayout is the timestamp layout of text lines.
const TextTimeLayout = "01/02/2006 03:04:05 PM"

// ParseLevel converts a string representation to a LogLevel.
// Unrecognized levels default to InfoLevel.
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// String returns the lower-case name used in JSON entries.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// label returns the upper-case name used in text lines.
func (l LogLevel) label() string {
	if l == WarnLevel {
		return "WARNING"
	}
	return strings.ToUpper(l.String())
}

// Options configures a StructuredLogger.
type Options struct {
	ServiceName string
	Environment string
	Level       string
	Format      string
	Output      io.Writer
	Fields      types.Fields
}

// StructuredLogger implements types.Logger.
// Loggers derived with WithFields share the parent's output and write lock.
type StructuredLogger struct {
	mu               *sync.Mutex
	output           io.Writer
	serviceName      string
	environment      string
	hostname         string
	format           string
	minLevel         LogLevel
	persistentFields types.Fields
	now              func() time.Time
}

// New creates a new StructuredLogger. A nil output defaults to os.Stdout
// and an unknown format falls back to text.
func New(opts Options) *StructuredLogger {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	format := strings.ToLower(opts.Format)
	if format != FormatJSON {
		format = FormatText
	}

	fields := make(types.Fields, len(opts.Fields))
	for k, v := range opts.Fields {
		fields[k] = v
	}

	return &StructuredLogger{
		mu:               &sync.Mutex{},
		output:           output,
		serviceName:      opts.ServiceName,
		environment:      opts.Environment,
		hostname:         hostname,
		format:           format,
		minLevel:         ParseLevel(opts.Level),
		persistentFields: fields,
		now:              time.Now,
	}
}

// Info logs an informational message at INFO level.
func (l *StructuredLogger) Info(ctx context.Context, msg string, fields types.Fields) {
	l.log(ctx, InfoLevel, msg, nil, fields)
}

// Error logs an error message at ERROR level.
func (l *StructuredLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	l.log(ctx, ErrorLevel, msg, err, fields)
}

// Warn logs a warning message at WARN level.
func (l *StructuredLogger) Warn(ctx context.Context, msg string, fields types.Fields) {
	l.log(ctx, WarnLevel, msg, nil, fields)
}

// Debug logs a debug message at DEBUG level.
func (l *StructuredLogger) Debug(ctx context.Context, msg string, fields types.Fields) {
	l.log(ctx, DebugLevel, msg, nil, fields)
}

// WithFields returns a logger that adds fields to every entry.
func (l *StructuredLogger) WithFields(fields types.Fields) types.Logger {
	newFields := make(types.Fields, len(l.persistentFields)+len(fields))
	for k, v := range l.persistentFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	child := *l
	child.persistentFields = newFields
	return &child
}

func (l *StructuredLogger) log(_ context.Context, level LogLevel, msg string, err error, fields types.Fields) {
	if level < l.minLevel {
		return
	}

	merged := make(types.Fields, len(l.persistentFields)+len(fields)+1)
	for k, v := range l.persistentFields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	if err != nil {
		merged["error"] = err.Error()
	}

	var line []byte
	if l.format == FormatJSON {
		line = l.jsonLine(level, msg, err, merged)
	} else {
		line = l.textLine(level, msg, merged)
	}
	if line == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.output.Write(line)
}

func (l *StructuredLogger) jsonLine(level LogLevel, msg string, err error, fields types.Fields) []byte {
	entry := make(types.Fields, len(fields)+8)
	for k, v := range fields {
		entry[k] = v
	}

	// Standard fields win over caller fields with the same name
	entry["timestamp"] = l.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["service"] = l.serviceName
	entry["env"] = l.environment
	entry["hostname"] = l.hostname
	entry["msg"] = msg
	if err != nil {
		entry["error_type"] = fmt.Sprintf("%T", err)
	}

	jsonBytes, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		return nil
	}
	return append(jsonBytes, '\n')
}

func (l *StructuredLogger) textLine(level LogLevel, msg string, fields types.Fields) []byte {
	var b strings.Builder
	b.WriteString(l.now().Format(TextTimeLayout))
	b.WriteByte(' ')
	b.WriteString(level.label())
	b.WriteString(": ")
	b.WriteString(msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(formatValue(fields[k]))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func formatValue(v interface{}) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
