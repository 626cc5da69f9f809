// Package mocks provides testify mocks of the logger and metrics contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"netmri-backup/internal/observability/types"
)

var (
	_ types.Logger  = (*MockLogger)(nil)
	_ types.Metrics = (*MockMetrics)(nil)
)

// MockLogger records log calls.
type MockLogger struct {
	mock.Mock
}

// NewQuietLogger returns a MockLogger that accepts any call.
func NewQuietLogger() *MockLogger {
	m := &MockLogger{}
	m.On("Info", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("Warn", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("Debug", mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("Error", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	return m
}

func (m *MockLogger) Info(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Error(ctx context.Context, msg string, err error, fields types.Fields) {
	m.Called(ctx, msg, err, fields)
}

func (m *MockLogger) Warn(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

func (m *MockLogger) Debug(ctx context.Context, msg string, fields types.Fields) {
	m.Called(ctx, msg, fields)
}

// WithFields returns the logger registered for the call, or m itself when
// no expectation was set.
func (m *MockLogger) WithFields(fields types.Fields) types.Logger {
	for _, call := range m.ExpectedCalls {
		if call.Method == "WithFields" {
			if l, ok := m.Called(fields).Get(0).(types.Logger); ok {
				return l
			}
			break
		}
	}
	return m
}

// MockMetrics records metric calls.
type MockMetrics struct {
	mock.Mock
}

// NewQuietMetrics returns a MockMetrics that accepts any call.
func NewQuietMetrics() *MockMetrics {
	m := &MockMetrics{}
	for _, method := range []string{"RecordSuccess", "StartOperation", "EndOperation"} {
		m.On(method, mock.Anything).Maybe()
	}
	for _, method := range []string{"RecordError", "RecordDuration", "RecordFileSize"} {
		m.On(method, mock.Anything, mock.Anything).Maybe()
	}
	return m
}

func (m *MockMetrics) RecordSuccess(operationType string) {
	m.Called(operationType)
}

func (m *MockMetrics) RecordError(operationType string, errorType string) {
	m.Called(operationType, errorType)
}

func (m *MockMetrics) RecordDuration(operation string, duration float64) {
	m.Called(operation, duration)
}

func (m *MockMetrics) RecordFileSize(fileType string, bytes int64) {
	m.Called(fileType, bytes)
}

func (m *MockMetrics) StartOperation(operation string) {
	m.Called(operation)
}

func (m *MockMetrics) EndOperation(operation string) {
	m.Called(operation)
}
