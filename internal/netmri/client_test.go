package netmri

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"netmri-backup/internal/observability/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAppliance is a minimal NetMRI stand-in recording the calls it sees.
type fakeAppliance struct {
	mu       sync.Mutex
	calls    []string
	bodies   map[string]map[string]interface{}
	handlers map[string]http.HandlerFunc
}

func newFakeAppliance(t *testing.T) (*fakeAppliance, *httptest.Server) {
	t.Helper()
	f := &fakeAppliance{
		bodies:   make(map[string]map[string]interface{}),
		handlers: make(map[string]http.HandlerFunc),
	}

	f.handlers["/api/authenticate"] = func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "netmri_session", Value: "abc", Path: "/"})
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}
	f.handlers["/api/server_info"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"latest_api_version":"3.8"}`))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls = append(f.calls, r.URL.Path)
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			var body map[string]interface{}
			if json.Unmarshal(raw, &body) == nil {
				f.bodies[r.URL.Path] = body
			}
		}
		h, ok := f.handlers[r.URL.Path]
		f.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"no such method"}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	return f, srv
}

func (f *fakeAppliance) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeAppliance) callsTo(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == path {
			n++
		}
	}
	return n
}

func testConfig(host string) Config {
	return Config{
		Host:       host,
		Username:   "admin",
		Password:   "secret",
		APIVersion: "auto",
		UserAgent:  "netmri-backup-test",
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), testConfig(srv.URL), logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)
	return c
}

func TestNewClient_DiscoversAPIVersion(t *testing.T) {
	f, srv := newFakeAppliance(t)

	c := newTestClient(t, srv)

	assert.Equal(t, "3.8", c.APIVersion())
	assert.Equal(t, 1, f.callsTo("/api/authenticate"))
	assert.Equal(t, 1, f.callsTo("/api/server_info"))
	assert.Equal(t, "admin", f.bodies["/api/authenticate"]["username"])
}

func TestNewClient_PinnedAPIVersion(t *testing.T) {
	f, srv := newFakeAppliance(t)

	cfg := testConfig(srv.URL)
	cfg.APIVersion = "3.1"
	c, err := NewClient(context.Background(), cfg, logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)

	assert.Equal(t, "3.1", c.APIVersion())
	assert.Zero(t, f.callsTo("/api/server_info"))
}

func TestNewClient_BadCredentials(t *testing.T) {
	_, srv := newFakeAppliance(t)

	cfg := testConfig(srv.URL)
	cfg.Password = "wrong"
	_, err := NewClient(context.Background(), cfg, logger.New(logger.Options{Output: io.Discard}))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.False(t, IsConnectionError(err))
}

func TestNewClient_Unreachable(t *testing.T) {
	_, srv := newFakeAppliance(t)
	url := srv.URL
	srv.Close()

	_, err := NewClient(context.Background(), testConfig(url), logger.New(logger.Options{Output: io.Discard}))

	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
}

func TestNewClient_RequiresHost(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, logger.New(logger.Options{Output: io.Discard}))
	assert.EqualError(t, err, "netmri: host is required")
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://netmri01", baseURL(Config{Host: "netmri01", UseSSL: true}))
	assert.Equal(t, "http://netmri01", baseURL(Config{Host: "netmri01"}))
	assert.Equal(t, "http://127.0.0.1:8080", baseURL(Config{Host: "http://127.0.0.1:8080/", UseSSL: true}))
}

func TestClient_CreateArchive(t *testing.T) {
	f, srv := newFakeAppliance(t)
	f.handle("/api/3.8/system_backup/create_archive", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Archive creation started"}`))
	})
	c := newTestClient(t, srv)

	msg, err := c.CreateArchive(context.Background(), ArchiveRequest{Init: true, Async: true})

	require.NoError(t, err)
	assert.Equal(t, "Archive creation started", msg)
	body := f.bodies["/api/3.8/system_backup/create_archive"]
	assert.Equal(t, true, body["init"])
	assert.Equal(t, true, body["async_ind"])
}

func TestClient_CreateArchive_APIError(t *testing.T) {
	f, srv := newFakeAppliance(t)
	f.handle("/api/3.8/system_backup/create_archive", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Backup already in progress"}`))
	})
	c := newTestClient(t, srv)

	_, err := c.CreateArchive(context.Background(), ArchiveRequest{Init: true, Async: true})

	require.Error(t, err)
	assert.Equal(t, "Backup already in progress", MessageOf(err))
	assert.Contains(t, err.Error(), MethodCreateArchive)
}

func TestClient_RemoveArchive(t *testing.T) {
	f, srv := newFakeAppliance(t)
	f.handle("/api/3.8/system_backup/remove_archive", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Archive removed"}`))
	})
	c := newTestClient(t, srv)

	msg, err := c.RemoveArchive(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Archive removed", msg)
}

func TestClient_DownloadArchive(t *testing.T) {
	f, srv := newFakeAppliance(t)
	f.handle("/api/3.8/system_backup/download_archive", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="NetMRI_backup.tar.gz"`)
		_, _ = w.Write([]byte("archive-bytes"))
	})
	c := newTestClient(t, srv)
	dir := t.TempDir()

	result, err := c.DownloadArchive(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, "NetMRI_backup.tar.gz", result.Filename)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, int64(len("archive-bytes")), result.Size)
	assert.Equal(t, filepath.Join(dir, "NetMRI_backup.tar.gz"), result.Path)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestClient_DownloadArchiveChecksum_FallbackName(t *testing.T) {
	f, srv := newFakeAppliance(t)
	f.handle("/api/3.8/system_backup/download_archive_md5_sum", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("d41d8cd98f00b204e9800998ecf8427e  NetMRI_backup.tar.gz\n"))
	})
	c := newTestClient(t, srv)
	dir := t.TempDir()

	result, err := c.DownloadArchiveChecksum(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, "download_archive_md5_sum", result.Filename)
	assert.FileExists(t, filepath.Join(dir, "download_archive_md5_sum"))
}

func TestClient_Download_APIErrorLeavesNoFile(t *testing.T) {
	f, srv := newFakeAppliance(t)
	f.handle("/api/3.8/system_backup/download_archive", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"No archive available"}`))
	})
	c := newTestClient(t, srv)
	dir := t.TempDir()

	_, err := c.DownloadArchive(context.Background(), dir)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "No archive available", apiErr.Message)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_KeepsSessionCookie(t *testing.T) {
	f, srv := newFakeAppliance(t)
	var cookie string
	f.handle("/api/3.8/system_backup/remove_archive", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("netmri_session"); err == nil {
			cookie = c.Value
		}
		_, _ = w.Write([]byte(`{}`))
	})
	c := newTestClient(t, srv)

	msg, err := c.RemoveArchive(context.Background())

	require.NoError(t, err)
	assert.Empty(t, msg)
	assert.Equal(t, "abc", cookie)
}

func TestFilenameFromDisposition(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"quoted", `attachment; filename="backup.tar.gz"`, "backup.tar.gz"},
		{"bare", `attachment; filename=backup.md5`, "backup.md5"},
		{"path traversal", `attachment; filename="../../etc/passwd"`, "passwd"},
		{"missing", "", "download_archive"},
		{"dot dot", `attachment; filename=".."`, "download_archive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filenameFromDisposition(tt.header, MethodDownloadArchive))
		})
	}
}

func TestNewAPIError(t *testing.T) {
	assert.Equal(t, "bad thing", newAPIError("m", 500, []byte(`{"message":"bad thing"}`)).Message)
	assert.Equal(t, "plain text", newAPIError("m", 500, []byte("plain text")).Message)
	assert.Equal(t, "Bad Gateway", newAPIError("m", 502, nil).Message)
}
