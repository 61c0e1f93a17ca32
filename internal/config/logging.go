package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const logFilePrefix = "prdbuilder-"

// NewLogger builds the JSON logger used by the binaries. When LogDir is set,
// output is also written to a fresh timestamped file in it; the returned
// closer releases that file.
func (c *Config) NewLogger(stdout io.Writer) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}

	var out io.Writer = stdout
	var closer io.Closer = nopCloser{}
	if c.LogDir != "" {
		f, err := SetupLogFile(c.LogDir, c.LogMaxFiles)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(stdout, f)
		closer = f
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogFile creates a new timestamped log file in dir and removes the oldest
// files beyond maxFiles. The caller closes the file.
func SetupLogFile(dir string, maxFiles int) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := filepath.Join(dir, logFilePrefix+time.Now().Format("2006-01-02T15-04-05.000")+".log")
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	if err := pruneLogs(dir, maxFiles); err != nil {
		// Logging still works without the cleanup
		fmt.Fprintf(os.Stderr, "warning: failed to prune old logs: %v\n", err)
	}
	return f, nil
}

// pruneLogs keeps the maxFiles newest log files
func pruneLogs(dir string, maxFiles int) error {
	if maxFiles <= 0 {
		return nil
	}
	files, err := filepath.Glob(filepath.Join(dir, logFilePrefix+"*.log"))
	if err != nil {
		return err
	}
	if len(files) <= maxFiles {
		return nil
	}

	// Timestamped names sort chronologically
	sort.Strings(files)
	for _, f := range files[:len(files)-maxFiles] {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("remove %s: %w", f, err)
		}
	}
	return nil
}
