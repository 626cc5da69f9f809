package netmri

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"netmri-backup/internal/observability/types"
)

// StatusOK is the status reported for a completed download.
const StatusOK = "OK"

var dispositionFilename = regexp.MustCompile(`filename="?([^";]+)"?`)

// DownloadResult describes a file the appliance streamed to disk.
type DownloadResult struct {
	// Filename is the name the appliance gave the file.
	Filename string
	// Status is the outcome reported for the download.
	Status string
	// Path is where the file was written locally.
	Path string
	// Size is the number of bytes written.
	Size int64
}

// Download calls an API method whose response is a file and writes it into
// dir under the name from the Content-Disposition header. The file only
// appears under its final name once fully written.
func (c *Client) Download(ctx context.Context, method string, params map[string]interface{}, dir string) (*DownloadResult, error) {
	resp, err := c.call(ctx, method, params, "*/*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	filename := filenameFromDisposition(resp.Header.Get("Content-Disposition"), method)

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return nil, fmt.Errorf("netmri: %s: failed to create file: %w", method, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ConnectionError{Host: c.config.Host, Err: fmt.Errorf("%s: download interrupted: %w", method, err)}
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("netmri: %s: failed to write file: %w", method, err)
	}

	target := filepath.Join(dir, filename)
	if err := os.Rename(tmpName, target); err != nil {
		return nil, fmt.Errorf("netmri: %s: failed to store file: %w", method, err)
	}
	committed = true

	c.logger.Debug(ctx, "Stored NetMRI download", types.Fields{
		"operation": method,
		"path":      target,
		"size":      size,
	})

	return &DownloadResult{
		Filename: filename,
		Status:   StatusOK,
		Path:     target,
		Size:     size,
	}, nil
}

// filenameFromDisposition extracts a safe base name from a
// Content-Disposition header, falling back to the method's last element.
func filenameFromDisposition(header, method string) string {
	var name string
	if _, params, err := mime.ParseMediaType(header); err == nil {
		name = params["filename"]
	}
	if name == "" {
		if m := dispositionFilename.FindStringSubmatch(header); m != nil {
			name = m[1]
		}
	}

	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return path.Base(method)
	}
	return name
}
