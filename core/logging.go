package core

import (
	"os"
	"sync"
	"time"
)

// LogEvent is a single log record under construction. Implementations
// (zerolog, a test stub) build the record fluently then flush it on Msg.
// Mirrors the teacher's CoreLogger/LogEvent split so call sites never import
// a concrete logging library directly.
type LogEvent interface {
	Str(key, val string) LogEvent
	Int(key string, val int) LogEvent
	Bool(key string, val bool) LogEvent
	Float64(key string, val float64) LogEvent
	Dur(key string, val time.Duration) LogEvent
	Err(err error) LogEvent
	Msg(msg string)
}

// CoreLogger is the logging facade every package in this module depends on.
type CoreLogger interface {
	Debug() LogEvent
	Info() LogEvent
	Warn() LogEvent
	Error() LogEvent
}

// LoggingProvider registers a concrete logging backend (e.g. zerolog).
type LoggingProvider struct {
	New func() CoreLogger
}

var (
	providersMu    sync.RWMutex
	loggingFactory func() CoreLogger
)

// RegisterLoggingProvider installs the backend used by Logger(). Plugin
// packages call this from an init().
func RegisterLoggingProvider(name string, p LoggingProvider) {
	providersMu.Lock()
	defer providersMu.Unlock()
	loggingFactory = p.New
}

var (
	loggerOnce sync.Once
	logger     CoreLogger
)

// Logger returns the process-wide logger, falling back to a minimal stderr
// logger when no provider (e.g. plugins/logging/zerolog) has registered.
func Logger() CoreLogger {
	loggerOnce.Do(func() {
		providersMu.RLock()
		factory := loggingFactory
		providersMu.RUnlock()
		if factory != nil {
			logger = factory()
			return
		}
		logger = &fallbackLogger{}
	})
	return logger
}

// fallbackLogger is a dependency-free logger used only if no logging plugin
// is imported; production builds always import plugins/logging/zerolog for
// its init() side effect.
type fallbackLogger struct{}

type fallbackEvent struct{ prefix string }

func (f *fallbackLogger) Debug() LogEvent { return &fallbackEvent{"DEBUG"} }
func (f *fallbackLogger) Info() LogEvent  { return &fallbackEvent{"INFO"} }
func (f *fallbackLogger) Warn() LogEvent  { return &fallbackEvent{"WARN"} }
func (f *fallbackLogger) Error() LogEvent { return &fallbackEvent{"ERROR"} }

func (e *fallbackEvent) Str(string, string) LogEvent           { return e }
func (e *fallbackEvent) Int(string, int) LogEvent              { return e }
func (e *fallbackEvent) Bool(string, bool) LogEvent            { return e }
func (e *fallbackEvent) Float64(string, float64) LogEvent      { return e }
func (e *fallbackEvent) Dur(string, time.Duration) LogEvent    { return e }
func (e *fallbackEvent) Err(error) LogEvent                    { return e }
func (e *fallbackEvent) Msg(msg string) {
	os.Stderr.WriteString(e.prefix + ": " + msg + "\n")
}
