// Package logger is the process-wide structured log. Records go to a rotating
// file in the configured directory. Until Init is called every helper is a
// no-op, so library code can log unconditionally.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/daybook/internal/constants"
)

// Config selects where records go and which are kept.
type Config struct {
	Dir string

	// Level is one of debug, info, warn or error. Empty means warn.
	Level string

	// Debug forces the debug level and mirrors every record to Stderr.
	Debug bool

	// JSON writes one JSON object per record instead of text.
	JSON bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Stderr receives the debug mirror. Nil means os.Stderr.
	Stderr io.Writer
}

var (
	mu   sync.RWMutex
	base *log.Logger
	file *lumberjack.Logger
)

// Init replaces the global logger. A logger from an earlier Init is closed.
func Init(cfg Config) error {
	level := log.WarnLevel
	if cfg.Level != "" {
		parsed, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	if cfg.Debug {
		level = log.DebugLevel
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, constants.AppName+".log"),
		MaxSize:    orDefault(cfg.MaxSizeMB, constants.DefaultLogMaxSizeMB),
		MaxBackups: orDefault(cfg.MaxBackups, constants.DefaultLogMaxBackups),
		MaxAge:     orDefault(cfg.MaxAgeDays, constants.DefaultLogMaxAgeDays),
		Compress:   true,
	}

	var out io.Writer = rotating
	if cfg.Debug {
		mirror := cfg.Stderr
		if mirror == nil {
			mirror = os.Stderr
		}
		out = io.MultiWriter(mirror, rotating)
	}

	formatter := log.TextFormatter
	if cfg.JSON {
		formatter = log.JSONFormatter
	}

	l := log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          constants.AppName,
		ReportTimestamp: true,
		ReportCaller:    cfg.Debug,
		// Skip the package helper so callers are reported.
		CallerOffset: 1,
		Formatter:    formatter,
	})

	mu.Lock()
	prev := file
	base, file = l, rotating
	mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// Close flushes and closes the log file. Later records are dropped until the
// next Init.
func Close() error {
	mu.Lock()
	f := file
	base, file = nil, nil
	mu.Unlock()

	if f == nil {
		return nil
	}
	return f.Close()
}

func emit(level log.Level, msg string, keyvals []interface{}) {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l != nil {
		l.Log(level, msg, keyvals...)
	}
}

func Debug(msg string, keyvals ...interface{}) { emit(log.DebugLevel, msg, keyvals) }
func Info(msg string, keyvals ...interface{})  { emit(log.InfoLevel, msg, keyvals) }
func Warn(msg string, keyvals ...interface{})  { emit(log.WarnLevel, msg, keyvals) }
func Error(msg string, keyvals ...interface{}) { emit(log.ErrorLevel, msg, keyvals) }

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
