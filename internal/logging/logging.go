// Package logging provides the service's package-level logger: an info
// log that is always on and a debug log gated by the startup debug flag.
package logging

import (
	"log"
	"os"
)

// Logger wraps the two loggers the service writes through.
type Logger struct {
	infoLogger  *log.Logger
	debugLogger *log.Logger
	debugOn     bool
}

var std = New(false)

// Initialize (re)configures the package-level logger. Call once at
// startup, before any other package logs.
func Initialize(debugMode bool) {
	std = New(debugMode)
}

// New builds a standalone Logger, useful for tests that don't want to
// touch the package-level default.
func New(debugMode bool) *Logger {
	return &Logger{
		infoLogger:  log.New(os.Stderr, "INFO  ", log.LstdFlags),
		debugLogger: log.New(os.Stderr, "DEBUG ", log.LstdFlags),
		debugOn:     debugMode,
	}
}

func Info(format string, args ...interface{})  { std.Info(format, args...) }
func Debug(format string, args ...interface{}) { std.Debug(format, args...) }
func Error(format string, args ...interface{}) { std.Error(format, args...) }
func IsDebugEnabled() bool                     { return std.debugOn }

func (l *Logger) Info(format string, args ...interface{}) {
	l.infoLogger.Printf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.infoLogger.Printf("ERROR "+format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.debugOn {
		l.debugLogger.Printf(format, args...)
	}
}
