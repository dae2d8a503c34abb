// Package logging wraps a process-wide charmbracelet/log logger. Until Init
// is called every helper is a no-op, so library code can log freely.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// logger is nil before Init and after Close.
	logger atomic.Pointer[log.Logger]

	fileMu  sync.Mutex
	logFile *os.File
)

// Init opens a dated log file under dir and routes the logger to it.
// Terminal surfaces draw on stdout, so logs never go there.
func Init(dir, level string) error {
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("spoon-%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	InitWriter(f, level)

	fileMu.Lock()
	prev := logFile
	logFile = f
	fileMu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return nil
}

// InitWriter routes the logger to w. Unknown levels fall back to info.
func InitWriter(w io.Writer, level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.Store(log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	}))
}

// Close stops logging and closes the log file. Calls racing with it either
// log before the file closes or are dropped.
func Close() {
	logger.Store(nil)

	fileMu.Lock()
	defer fileMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	if l := logger.Load(); l != nil {
		l.Info(msg, keyvals...)
	}
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	if l := logger.Load(); l != nil {
		l.Debug(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	if l := logger.Load(); l != nil {
		l.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	if l := logger.Load(); l != nil {
		l.Error(msg, keyvals...)
	}
}
