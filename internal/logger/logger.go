// Package logger provides cramfuse's leveled, structured logger. It mirrors
// the teacher's internal/logger package: a small slog wrapper with its own
// severity scale (TRACE below DEBUG, WARNING between INFO and ERROR) and a
// choice of text or JSON output, optionally rotated on disk.
package logger

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels, offset from slog's own scale so TRACE sorts below DEBUG
// and WARNING sits between INFO and ERROR.
const (
	LevelTrace slog.Level = slog.LevelDebug - 4
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
)

// Severity names accepted on the command line / config file.
const (
	SeverityOff     = "off"
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
	SeverityDebug   = "debug"
	SeverityTrace   = "trace"
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
}

type loggerFactory struct {
	mu     sync.Mutex
	format string // "text" or "json"
	level  *slog.LevelVar
	out    io.Writer
}

func (f *loggerFactory) createHandler(w io.Writer, prefix string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: f.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				level := a.Value.Any().(slog.Level)
				name, ok := levelNames[level]
				if !ok {
					name = level.String()
				}
				return slog.String("severity", name)
			case slog.MessageKey:
				return slog.String(slog.MessageKey, prefix+a.Value.String())
			}
			return a
		},
	}

	if f.format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

var (
	defaultFactory = &loggerFactory{format: "text", level: new(slog.LevelVar)}
	defaultLogger  = slog.New(defaultFactory.createHandler(os.Stderr, ""))
	mu             sync.Mutex
)

// Config controls how the default logger writes.
type Config struct {
	// "text" or "json".
	Format string
	// One of the Severity* constants.
	Severity string
	// Optional path to a log file; rotated with lumberjack when set.
	// An empty path logs to stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init (re)configures the default logger from cfg.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	var w io.Writer = os.Stderr
	if cfg.FilePath != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 50),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		}
	}

	format := cfg.Format
	if format == "" {
		format = "text"
	}
	defaultFactory.format = format
	setLevel(defaultFactory.level, cfg.Severity)
	defaultLogger = slog.New(defaultFactory.createHandler(w, ""))
	return nil
}

func orDefault(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}

func setLevel(v *slog.LevelVar, severity string) {
	switch severity {
	case SeverityTrace:
		v.Set(LevelTrace)
	case SeverityDebug:
		v.Set(LevelDebug)
	case SeverityWarning:
		v.Set(LevelWarn)
	case SeverityError:
		v.Set(LevelError)
	case SeverityOff:
		v.Set(slog.Level(1 << 20))
	default:
		v.Set(LevelInfo)
	}
}

// SetSeverity adjusts the default logger's level without rebuilding the
// handler. (At startup, cmd/mount.go passes the debug flags' TRACE level
// to Init instead.)
func SetSeverity(severity string) {
	mu.Lock()
	defer mu.Unlock()
	setLevel(defaultFactory.level, severity)
}

func log(ctx context.Context, level slog.Level, format string, args ...any) {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, args...))
}

func Tracef(format string, args ...any) { log(context.Background(), LevelTrace, format, args...) }
func Debugf(format string, args ...any) { log(context.Background(), LevelDebug, format, args...) }
func Infof(format string, args ...any)  { log(context.Background(), LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { log(context.Background(), LevelWarn, format, args...) }
func Errorf(format string, args ...any) { log(context.Background(), LevelError, format, args...) }

// slogWriter adapts the package logger to io.Writer so the jacobsa/fuse
// frontend's *log.Logger fields can be backed by it.
type slogWriter struct {
	level slog.Level
}

func (w *slogWriter) Write(p []byte) (int, error) {
	log(context.Background(), w.level, "%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// StandardLoggerAt returns a *log.Logger that forwards every line it
// receives into the package logger at level, with prefix prepended. It
// backs fuse.MountConfig's DebugLogger/ErrorLogger fields, which the
// jacobsa/fuse frontend writes to directly rather than through slog.
func StandardLoggerAt(level slog.Level, prefix string) *stdlog.Logger {
	return stdlog.New(&slogWriter{level: level}, prefix, 0)
}

// Fatalf logs at ERROR severity and terminates the process; used only for
// startup configuration failures, per spec's "Configuration fatal" error
// kind.
func Fatalf(format string, args ...any) {
	log(context.Background(), LevelError, format, args...)
	os.Exit(1)
}
