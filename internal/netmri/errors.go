package netmri

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is returned when the appliance answers with a non-2xx status.
// Message carries the "message" field of the JSON error body.
type APIError struct {
	Method     string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("netmri: %s: %d %s: %s", e.Method, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("netmri: %s: %d %s", e.Method, e.StatusCode, http.StatusText(e.StatusCode))
}

// ConnectionError is returned when the appliance cannot be reached at all.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("netmri: could not connect to %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err is or wraps a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// MessageOf returns the server-supplied message carried by err, or the
// error text when err is not an APIError.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// newAPIError builds an APIError from a failed response body. The message
// falls back to the raw body, then to the status text.
func newAPIError(method string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{Method: method, StatusCode: statusCode}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
		return apiErr
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 512 {
		apiErr.Message = text
		return apiErr
	}

	apiErr.Message = http.StatusText(statusCode)
	return apiErr
}
