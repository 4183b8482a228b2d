// Package ulogger is the logging facade used by every service in the node.
package ulogger

import (
	"strings"

	"github.com/ordishs/gocore"
	"github.com/rs/zerolog"
)

type Logger interface {
	LogLevel() int
	SetLogLevel(level string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	New(service string, options ...Option) Logger
	Duplicate(options ...Option) Logger
}

// New returns a zerolog backed logger, or the gocore logger when WithLoggerType("gocore") is given.
func New(service string, options ...Option) Logger {
	opts := DefaultOptions()
	for _, o := range options {
		o(opts)
	}

	if opts.loggerType == "gocore" {
		return NewGoCoreLogger(service, options...)
	}

	return NewZeroLogger(service, options...)
}

var levels = map[string]zerolog.Level{
	"DEBUG": zerolog.DebugLevel,
	"INFO":  zerolog.InfoLevel,
	"WARN":  zerolog.WarnLevel,
	"ERROR": zerolog.ErrorLevel,
	"FATAL": zerolog.FatalLevel,
	"PANIC": zerolog.PanicLevel,
}

// parseLevel maps a configured level name to zerolog, unknown names log at INFO.
func parseLevel(level string) zerolog.Level {
	if l, ok := levels[strings.ToUpper(level)]; ok {
		return l
	}

	return zerolog.InfoLevel
}

// gocoreLevel numbers a zerolog level the way gocore does, which is what LogLevel reports.
func gocoreLevel(level zerolog.Level) int {
	switch level {
	case zerolog.DebugLevel:
		return int(gocore.DEBUG)
	case zerolog.WarnLevel:
		return int(gocore.WARN)
	case zerolog.ErrorLevel:
		return int(gocore.ERROR)
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return int(gocore.FATAL)
	default:
		return int(gocore.INFO)
	}
}
