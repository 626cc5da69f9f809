package backup

import (
	"path"
	"path/filepath"
	"time"
)

// DateLayout names the per-day backup directory and mirror prefix.
const DateLayout = "2006-01-02"

// DatedDir returns <root>/<YYYY-MM-DD> for the local date of now.
func DatedDir(root string, now time.Time) string {
	return filepath.Join(root, now.Format(DateLayout))
}

// MirrorKey returns the object key <prefix>/<date>/<filename>.
func MirrorKey(prefix, date, filename string) string {
	return path.Join(prefix, date, filepath.Base(filename))
}
