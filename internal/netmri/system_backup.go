package netmri

import (
	"context"
	"fmt"
)

// System backup API methods.
const (
	MethodCreateArchive           = "system_backup/create_archive"
	MethodDownloadArchive         = "system_backup/download_archive"
	MethodDownloadArchiveChecksum = "system_backup/download_archive_md5_sum"
	MethodRemoveArchive           = "system_backup/remove_archive"
)

// ArchiveRequest carries the flags sent when asking the appliance to build
// a database archive.
type ArchiveRequest struct {
	Init  bool
	Async bool
}

func (r ArchiveRequest) params() map[string]interface{} {
	return map[string]interface{}{
		"init":      r.Init,
		"async_ind": r.Async,
	}
}

// CreateArchive asks the appliance to build a new database archive and
// returns its acknowledgement message.
func (c *Client) CreateArchive(ctx context.Context, req ArchiveRequest) (string, error) {
	resp, err := c.Request(ctx, MethodCreateArchive, req.params())
	if err != nil {
		return "", err
	}
	return messageField(resp), nil
}

// DownloadArchive downloads the database archive into dir.
func (c *Client) DownloadArchive(ctx context.Context, dir string) (*DownloadResult, error) {
	return c.Download(ctx, MethodDownloadArchive, nil, dir)
}

// DownloadArchiveChecksum downloads the archive's MD5 checksum file into dir.
func (c *Client) DownloadArchiveChecksum(ctx context.Context, dir string) (*DownloadResult, error) {
	return c.Download(ctx, MethodDownloadArchiveChecksum, nil, dir)
}

// RemoveArchive deletes the archive stored on the appliance and returns its
// acknowledgement message.
func (c *Client) RemoveArchive(ctx context.Context) (string, error) {
	resp, err := c.Request(ctx, MethodRemoveArchive, nil)
	if err != nil {
		return "", err
	}
	return messageField(resp), nil
}

func messageField(resp map[string]interface{}) string {
	msg, ok := resp["message"]
	if !ok || msg == nil {
		return ""
	}
	if s, ok := msg.(string); ok {
		return s
	}
	return fmt.Sprint(msg)
}
