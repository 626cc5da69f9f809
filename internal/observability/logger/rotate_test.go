package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyFilename(t *testing.T) {
	now := time.Date(2026, 10, 19, 23, 59, 0, 0, time.Local)
	assert.Equal(t, filepath.Join("logs", "2026-10-19.log"), DailyFilename("logs", now))
}

func TestNewRotatingFile_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	w, err := NewRotatingFile(FileConfig{Dir: dir, MaxSizeMB: 1, MaxBackups: 10}, time.Now())
	require.NoError(t, err)
	defer w.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, 1, w.MaxSize)
	assert.Equal(t, 10, w.MaxBackups)
}

func TestNewRotatingFile_RotatesAndCapsBackups(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	w, err := NewRotatingFile(FileConfig{Dir: dir, MaxSizeMB: 1, MaxBackups: 2}, now)
	require.NoError(t, err)
	defer w.Close()

	// Roughly 3.5 MB of lines forces at least three rotations
	line := []byte(strings.Repeat("x", 1023) + "\n")
	for i := 0; i < 3500; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}

	current, err := os.Stat(DailyFilename(dir, now))
	require.NoError(t, err)
	assert.LessOrEqual(t, current.Size(), int64(1024*1024))

	// Old backups are removed asynchronously
	assert.Eventually(t, func() bool {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return false
		}
		return len(entries) >= 2 && len(entries) <= 3
	}, 5*time.Second, 50*time.Millisecond)
}
