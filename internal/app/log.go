package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// sink is one destination of nhHandler with its own level floor.
type sink struct {
	w     io.Writer
	level slog.Level
}

// nhHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<invocationID>\t<message>\t<key=value ...>
//
// and writes each record to every sink whose level it reaches.
type nhHandler struct {
	sinks        []sink
	invocationID string
	attrs        []slog.Attr
}

func (h *nhHandler) Enabled(_ context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if level >= s.level {
			return true
		}
	}
	return false
}

func (h *nhHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	fmt.Fprintf(&buf, "%s\t%s\t%s\t%s", ts, r.Level.String(), h.invocationID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&buf, "\t%s=%v", a.Key, a.Value)
		return true
	})
	buf.WriteByte('\n')

	for _, s := range h.sinks {
		if r.Level < s.level {
			continue
		}
		if _, err := s.w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func (h *nhHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &nhHandler{
		sinks:        h.sinks,
		invocationID: h.invocationID,
		attrs:        append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *nhHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes to logDir/nh.log and to
// stderr. The file records info and above, stderr only warnings and errors;
// verbose lowers both floors to debug. It returns the open log file for cleanup.
func newLogger(logDir, invocationID string, verbose bool) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "nh.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	fileLevel, stderrLevel := slog.LevelInfo, slog.LevelWarn
	if verbose {
		fileLevel, stderrLevel = slog.LevelDebug, slog.LevelDebug
	}

	handler := &nhHandler{
		sinks: []sink{
			{w: f, level: fileLevel},
			{w: os.Stderr, level: stderrLevel},
		},
		invocationID: invocationID,
	}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the nh.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
