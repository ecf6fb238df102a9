// Package logging builds the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Options selects the handlers of New.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // optional JSON sink, appended to
	Output io.Writer
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("prometheus/logging: level %q: %w", s, err)
	}
	return l, nil
}

// New returns a logger writing to opts.Output (stderr by default) and, when
// opts.File is set, to a JSON file as well. close releases the file.
func New(opts Options) (logger *slog.Logger, closeFn func() error, err error) {
	level := slog.LevelInfo
	if opts.Level != "" {
		if level, err = ParseLevel(opts.Level); err != nil {
			return nil, nil, err
		}
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "text":
		console = slog.NewTextHandler(out, hopts)
	case "json":
		console = slog.NewJSONHandler(out, hopts)
	default:
		return nil, nil, fmt.Errorf("prometheus/logging: unknown format %q", opts.Format)
	}

	closeFn = func() error { return nil }
	if opts.File == "" {
		return slog.New(console), closeFn, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
		return nil, nil, fmt.Errorf("prometheus/logging: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("prometheus/logging: %w", err)
	}

	logger = slog.New(slogmulti.Fanout(
		console,
		slog.NewJSONHandler(f, hopts),
	))
	return logger, f.Close, nil
}
