package logger

import (
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/heatboard/internal/errors"
	"github.com/rs/zerolog"
)

var log = zerolog.Nop()

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// ParseLevel maps a configuration level name to a LogLevel.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel, true
	case "info":
		return InfoLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	default:
		return InfoLevel, false
	}
}

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Init initializes the logger writing to stderr
func Init(level LogLevel, isService bool) {
	InitWithWriter(os.Stderr, level, isService)
}

// InitWithWriter initializes the logger on an arbitrary writer
func InitWithWriter(w io.Writer, level LogLevel, isService bool) {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.NoColor = true
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	log = zerolog.New(output).With().Timestamp().Logger()

	SetLogLevel(level)
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(zerolog.Level(level))
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if os.Getppid() == 1 {
		return true
	}

	return syscall.Getpgrp() == syscall.Getpid()
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return withCode(log.Error(), err)
}

// Fatal logs a fatal message and exits the program
func Fatal() *LogEvent {
	return &LogEvent{log.Fatal()}
}

// FatalWithCode logs a fatal message with a specific error code and exits the program
func FatalWithCode(err errors.Error) *LogEvent {
	return withCode(log.Fatal(), err)
}

func withCode(e *zerolog.Event, err errors.Error) *LogEvent {
	return &LogEvent{e.
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}

// componentLogger implements Logger on top of the package logger, tagging
// every event with a component field.
type componentLogger struct {
	component string
	nop       bool
}

// Default returns a Logger backed by the package logger
func Default() Logger {
	return &componentLogger{}
}

// Nop returns a Logger that discards everything
func Nop() Logger {
	return &componentLogger{nop: true}
}

func (c *componentLogger) base() *zerolog.Logger {
	if c.nop {
		l := zerolog.Nop()
		return &l
	}

	return &log
}

func (c *componentLogger) event(e *zerolog.Event) *LogEvent {
	if c.component != "" {
		e = e.Str("component", c.component)
	}

	return &LogEvent{e}
}

func (c *componentLogger) Debug() *LogEvent { return c.event(c.base().Debug()) }

func (c *componentLogger) Info() *LogEvent { return c.event(c.base().Info()) }

func (c *componentLogger) Warn() *LogEvent { return c.event(c.base().Warn()) }

func (c *componentLogger) Error() *LogEvent { return c.event(c.base().Error()) }

func (c *componentLogger) ErrorWithCode(err errors.Error) *LogEvent {
	ev := c.event(c.base().Error())
	return withCode(ev.Event, err)
}

func (c *componentLogger) With(component string) Logger {
	return &componentLogger{component: component, nop: c.nop}
}
