// Package logging provides the leveled, structured logger used across riskgraph.
//
// Initialize once at startup, then ask for named loggers:
//
//	logging.Initialize("info", map[string]string{"engine.*": "debug"})
//	logger := logging.GetLogger("engine.spof")
//	logger.Info("scanning %d resources", n)
//	logger.InfoWithFields("scan complete",
//	    logging.Field("spofs", len(findings)),
//	    logging.Field("duration_ms", elapsed.Milliseconds()),
//	)
//
// Child loggers created with WithField, WithFields or WithContext are new
// values, so a Logger can be shared between goroutines freely. WithContext
// picks up the trace and span id of an active OpenTelemetry span.
//
// Lines have the shape
//
//	[2026-01-02T15:04:05Z] [INFO] engine.spof: scan complete | duration_ms=12 spofs=3
//
// with fields sorted by key. Set LOG_TIMESTAMP to pin the timestamp in tests.
package logging

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
)

var (
	globalLevel = INFO
	globalMu    sync.RWMutex
	initOnce    sync.Once
	// exitFunc is called by Fatal. Tests override it.
	exitFunc = os.Exit
)

// Initialize sets the default level and optional per-package overrides.
// An unknown default level falls back to INFO.
func Initialize(levelStr string, packageLevels ...map[string]string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	globalMu.Lock()
	globalLevel = level
	globalMu.Unlock()

	initOnce.Do(func() {
		log.SetFlags(0)
	})

	if len(packageLevels) > 0 && packageLevels[0] != nil {
		if err := SetPackageLogLevels(packageLevels[0]); err != nil {
			return err
		}
	}
	return nil
}

// Logger is a named logger with optional persistent fields.
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{}
	ctx    context.Context
}

// GetLogger returns a logger with the given name at the current default level.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		log.SetFlags(0)
	})

	globalMu.RLock()
	level := globalLevel
	globalMu.RUnlock()

	return &Logger{
		level:  level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// Name returns the logger name.
func (l *Logger) Name() string {
	return l.name
}

func (l *Logger) shouldLog(level LogLevel) bool {
	if pkgLevel := GetPackageLogLevel(l.name); pkgLevel >= 0 {
		return level >= pkgLevel
	}
	return level >= l.level
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.logf(DEBUG, msg, args...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.logf(INFO, msg, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.logf(WARN, msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.logf(ERROR, msg, args...)
}

// Fatal logs a fatal message and exits with code 1
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf(FATAL, msg, args...)
		exitFunc(1)
	}
}

// ErrorWithErr logs an error message followed by err
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	args = append(args, err)
	l.logf(ERROR, msg+" - %v", args...)
}

// DebugWithFields logs a debug message with structured fields
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	l.logWithFields(DEBUG, msg, fields...)
}

// InfoWithFields logs an info message with structured fields
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	l.logWithFields(INFO, msg, fields...)
}

// WarnWithFields logs a warning message with structured fields
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	l.logWithFields(WARN, msg, fields...)
}

// ErrorWithFields logs an error message with structured fields
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	l.logWithFields(ERROR, msg, fields...)
}

// WithName returns a logger with a different name and no persistent fields.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		level:  l.level,
		name:   name,
		fields: make(map[string]interface{}),
		ctx:    l.ctx,
	}
}

// WithField returns a child logger carrying key=value on every line.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	child := l.clone()
	child.fields[key] = value
	return child
}

// WithFields returns a child logger carrying all fields on every line.
func (l *Logger) WithFields(fields ...LogField) *Logger {
	child := l.clone()
	for _, f := range fields {
		child.fields[f.Key] = f.Value
	}
	return child
}

// WithContext returns a child logger that adds trace_id and span_id from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	child := l.clone()
	child.ctx = ctx
	return child
}

func (l *Logger) clone() *Logger {
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: fields,
		ctx:    l.ctx,
	}
}

func (l *Logger) logf(level LogLevel, msg string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.writeLog(level, msg, l.mergeFields(nil))
}

func (l *Logger) logWithFields(level LogLevel, msg string, fields ...LogField) {
	if !l.shouldLog(level) {
		return
	}
	l.writeLog(level, msg, l.mergeFields(fields))
}
