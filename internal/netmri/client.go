// Package netmri is a small client for the Infoblox NetMRI JSON API. It
// covers what a backup run needs: session authentication, API version
// discovery, JSON method calls and streamed file downloads.
package netmri

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"netmri-backup/internal/observability/types"
)

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 * 1024

// Config holds the appliance connection settings.
type Config struct {
	// Host is a bare host name or a full base URL such as https://netmri:8443.
	Host       string
	Username   string
	Password   string
	APIVersion string // "auto" or empty asks the appliance for its latest version
	UseSSL     bool
	SSLVerify  bool
	Timeout    time.Duration // zero means no timeout
	UserAgent  string
}

// Client talks to one NetMRI appliance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiVersion string
	config     Config
	logger     types.Logger
}

// NewClient authenticates against the appliance and resolves the API
// version. Failing to reach the appliance returns a *ConnectionError.
func NewClient(ctx context.Context, cfg Config, logger types.Logger) (*Client, error) {
	c, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := c.authenticate(ctx); err != nil {
		return nil, err
	}

	if c.apiVersion == "" {
		version, err := c.latestAPIVersion(ctx)
		if err != nil {
			return nil, err
		}
		c.apiVersion = version
	}

	logger.Debug(ctx, "Connected to NetMRI", types.Fields{
		"host":        cfg.Host,
		"api_version": c.apiVersion,
	})

	return c, nil
}

func newClient(cfg Config, logger types.Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("netmri: host is required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("netmri: failed to create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: !cfg.SSLVerify, //nolint:gosec // appliances ship self-signed certificates
	}

	apiVersion := cfg.APIVersion
	if strings.EqualFold(apiVersion, "auto") {
		apiVersion = ""
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.Timeout,
		},
		baseURL:    baseURL(cfg),
		apiVersion: apiVersion,
		config:     cfg,
		logger:     logger,
	}, nil
}

func baseURL(cfg Config) string {
	host := strings.TrimRight(cfg.Host, "/")
	if strings.Contains(host, "://") {
		return host
	}
	if cfg.UseSSL {
		return "https://" + host
	}
	return "http://" + host
}

// APIVersion returns the version used in method URLs.
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// Request calls an API method with JSON params and decodes the JSON object
// it returns.
func (c *Client) Request(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error) {
	resp, err := c.call(ctx, method, params, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Host: c.config.Host, Err: err}
	}

	result := make(map[string]interface{})
	if len(bytes.TrimSpace(body)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("netmri: %s: failed to decode response: %w", method, err)
	}

	return result, nil
}

// call POSTs params to /api/<version>/<method>.
func (c *Client) call(ctx context.Context, method string, params map[string]interface{}, accept string) (*http.Response, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("netmri: %s: failed to encode params: %w", method, err)
	}

	url := fmt.Sprintf("%s/api/%s/%s", c.baseURL, c.apiVersion, method)
	c.logger.Debug(ctx, "Calling NetMRI API", types.Fields{
		"operation": method,
		"url":       url,
	})

	return c.do(ctx, method, http.MethodPost, url, payload, accept)
}

func (c *Client) authenticate(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"username": c.config.Username,
		"password": c.config.Password,
	})
	if err != nil {
		return fmt.Errorf("netmri: failed to encode credentials: %w", err)
	}

	resp, err := c.do(ctx, "authenticate", http.MethodPost, c.baseURL+"/api/authenticate", payload, "application/json")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) latestAPIVersion(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, "server_info", http.MethodGet, c.baseURL+"/api/server_info", nil, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var info struct {
		LatestAPIVersion string `json:"latest_api_version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("netmri: failed to decode server info: %w", err)
	}
	if info.LatestAPIVersion == "" {
		return "", fmt.Errorf("netmri: server info does not report latest_api_version")
	}

	return info.LatestAPIVersion, nil
}

// do executes one request. Transport failures become *ConnectionError and
// non-2xx responses become *APIError; the caller owns a returned body.
func (c *Client) do(ctx context.Context, method, httpMethod, url string, payload []byte, accept string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, url, body)
	if err != nil {
		return nil, fmt.Errorf("netmri: failed to create request: %w", err)
	}

	req.SetBasicAuth(c.config.Username, c.config.Password)
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ConnectionError{Host: c.config.Host, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newAPIError(method, resp.StatusCode, errBody)
	}

	return resp, nil
}
