package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	logger     atomic.Pointer[slog.Logger]
	loggerOnce sync.Once
	levelVar   = new(slog.LevelVar)
)

// initLogger installs a tint handler on stderr. Default minimum level is INFO.
func initLogger() {
	loggerOnce.Do(func() {
		levelVar.Set(slog.LevelInfo)
		logger.CompareAndSwap(nil, newLogger(os.Stderr))
	})
}

func newLogger(w io.Writer) *slog.Logger {
	// Colors only when writing to a terminal.
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      levelVar,
		TimeFormat: time.RFC3339Nano,
		NoColor:    noColor,
	}))
}

// SetOutput redirects log output, mainly so the terminal UI can keep stderr
// clean. It is safe to call while other goroutines log.
func SetOutput(w io.Writer) {
	initLogger()
	logger.Store(newLogger(w))
}

func SetLevel(l Level) {
	initLogger()
	levelVar.Set(toSlog(l))
}

// ParseLevel maps a config/flag string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelDebug, "debug":
		return LevelDebug
	case LevelError, "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func Debug(msg string, kv ...any) {
	logWithLevel(LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(LevelInfo, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logWithLevel(LevelError, msg, extended...)
}

func logWithLevel(level Level, msg string, kv ...any) {
	initLogger()
	// Odd trailing value is dropped.
	if len(kv)%2 == 1 {
		kv = kv[:len(kv)-1]
	}
	logger.Load().Log(context.Background(), toSlog(level), msg, kv...)
}

func toSlog(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
