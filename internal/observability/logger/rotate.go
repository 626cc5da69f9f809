package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/lumberjack/v2"
)

// DailyFileLayout names one log file per day, e.g. 2026-10-19.log.
const DailyFileLayout = "2006-01-02"

// FileConfig describes the rotating daily log file.
type FileConfig struct {
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// DailyFilename returns the log file path for the day containing now.
func DailyFilename(dir string, now time.Time) string {
	return filepath.Join(dir, now.Format(DailyFileLayout)+".log")
}

// NewRotatingFile creates the log directory and returns a writer that rolls
// the day's file once it exceeds MaxSizeMB, keeping at most MaxBackups
// rotated copies next to it.
func NewRotatingFile(cfg FileConfig, now time.Time) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   DailyFilename(cfg.Dir, now),
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		LocalTime:  true,
		Compress:   cfg.Compress,
	}, nil
}
