// Package zerologprovider wires github.com/rs/zerolog (with lumberjack log
// rotation) into core.CoreLogger. Adapted from the teacher's
// plugins/logging/zerolog package: same adapter shape (coreLogger wraps a
// *zerolog.Logger; logEvent holds the level chosen by Debug/Info/Warn/Error
// and creates its *zerolog.Event on the first field or Msg call).
package zerologprovider

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	core.RegisterLoggingProvider("zerolog", core.LoggingProvider{
		New: func() core.CoreLogger {
			l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
			return &coreLogger{l: &l}
		},
	})
}

// Configure rebuilds the registered logger with the requested level,
// format, and optional rotating file sink. Call once at process startup
// from the loaded EngineConfig.
func Configure(level, format, filePath string) core.CoreLogger {
	var writer io.Writer
	if format == "json" {
		writer = os.Stderr
	} else {
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	if filePath != "" {
		rotator := &lumberjack.Logger{Filename: filePath, MaxSize: 50, MaxBackups: 5, MaxAge: 28, Compress: true}
		writer = zerolog.MultiLevelWriter(writer, rotator)
	}
	base := zerolog.New(writer).With().Timestamp().Logger()
	out := &base
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	core.RegisterLoggingProvider("zerolog", core.LoggingProvider{New: func() core.CoreLogger { return &coreLogger{l: out} }})
	return core.Logger()
}

type coreLogger struct{ l *zerolog.Logger }

func (c *coreLogger) Debug() core.LogEvent { return &logEvent{logger: c.l, level: zerolog.DebugLevel} }
func (c *coreLogger) Info() core.LogEvent  { return &logEvent{logger: c.l, level: zerolog.InfoLevel} }
func (c *coreLogger) Warn() core.LogEvent  { return &logEvent{logger: c.l, level: zerolog.WarnLevel} }
func (c *coreLogger) Error() core.LogEvent { return &logEvent{logger: c.l, level: zerolog.ErrorLevel} }

type logEvent struct {
	logger *zerolog.Logger
	level  zerolog.Level
	evt    *zerolog.Event
}

func (e *logEvent) ensure() *zerolog.Event {
	if e.evt == nil {
		e.evt = e.logger.WithLevel(e.level)
	}
	return e.evt
}

func (e *logEvent) Str(key, val string) core.LogEvent {
	e.evt = e.ensure().Str(key, val)
	return e
}
func (e *logEvent) Int(key string, val int) core.LogEvent {
	e.evt = e.ensure().Int(key, val)
	return e
}
func (e *logEvent) Bool(key string, val bool) core.LogEvent {
	e.evt = e.ensure().Bool(key, val)
	return e
}
func (e *logEvent) Float64(key string, val float64) core.LogEvent {
	e.evt = e.ensure().Float64(key, val)
	return e
}
func (e *logEvent) Dur(key string, val time.Duration) core.LogEvent {
	e.evt = e.ensure().Dur(key, val)
	return e
}
func (e *logEvent) Err(err error) core.LogEvent {
	e.evt = e.ensure().Err(err)
	return e
}
func (e *logEvent) Msg(msg string) { e.ensure().Msg(msg) }
