package backup

import (
	"crypto/md5" //nolint:gosec // the appliance only publishes MD5 sums
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var md5Token = regexp.MustCompile(`\b[0-9a-fA-F]{32}\b`)

// ParseChecksum returns the first MD5 digest found in a checksum file.
func ParseChecksum(content []byte) (string, error) {
	token := md5Token.Find(content)
	if token == nil {
		return "", fmt.Errorf("no md5 digest found in checksum file")
	}
	return strings.ToLower(string(token)), nil
}

// FileMD5 returns the hex MD5 digest of the file at path.
func FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum compares the archive against the digest in checksumPath.
func VerifyChecksum(archivePath, checksumPath string) error {
	content, err := os.ReadFile(checksumPath)
	if err != nil {
		return err
	}

	expected, err := ParseChecksum(content)
	if err != nil {
		return err
	}

	actual, err := FileMD5(archivePath)
	if err != nil {
		return err
	}

	if actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
