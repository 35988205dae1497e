// Package logging builds the slog logger used by the curvecal command, with
// optional file output rotated by lumberjack.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the logger.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// Format is json or text.
	Format string `toml:"format"`
	// Output is stderr, stdout, file or both (stderr and file).
	Output string `toml:"output"`
	// FilePath is used when Output is file or both.
	FilePath string `toml:"file_path"`
	// MaxSize is the rotation size in megabytes.
	MaxSize    int  `toml:"max_size"`
	MaxBackups int  `toml:"max_backups"`
	MaxAge     int  `toml:"max_age"`
	Compress   bool `toml:"compress"`
}

// Default logs text at info level to stderr.
func Default() Config {
	return Config{
		Level:      "info",
		Format:     "text",
		Output:     "stderr",
		FilePath:   "logs/curvecal.log",
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	}
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
}

// Validate reports unknown levels, formats and outputs.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "json", "text", "":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Format)
	}
	switch c.Output {
	case "stderr", "stdout", "", "file", "both":
	default:
		return fmt.Errorf("logging: unknown output %q", c.Output)
	}
	if (c.Output == "file" || c.Output == "both") && c.FilePath == "" {
		return fmt.Errorf("logging: output %q needs a file path", c.Output)
	}
	return nil
}

// New builds a logger from cfg. The returned closer releases the log file (a
// no-op for console output).
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	level, _ := ParseLevel(cfg.Level)

	var out io.Writer
	var closer io.Closer = nopCloser{}
	switch cfg.Output {
	case "file", "both":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("logging: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		closer = file
		out = file
		if cfg.Output == "both" {
			out = io.MultiWriter(os.Stderr, file)
		}
	case "stdout":
		out = os.Stdout
	default:
		out = os.Stderr
	}

	return slog.New(newHandler(out, cfg.Format, level)), closer, nil
}

// NewWriter builds a logger on w; used by tests and embedding callers.
func NewWriter(w io.Writer, format string, level slog.Level) *slog.Logger {
	return slog.New(newHandler(w, format, level))
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
