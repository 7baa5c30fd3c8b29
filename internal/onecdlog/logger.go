// Package onecdlog wraps logrus the way logger/logger.go wraps it in the
// teacher codebase (custom formatter, leveled helpers), but as an instance
// carried by the database rather than a package-level global — spec.md §9
// asks explicitly that global state not be reproduced, since every object
// that needs to log should receive its context explicitly.
package onecdlog

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logger instance threaded through pagecache,
// object, table and database. The zero value is not usable;
// construct one with New.
type Logger struct {
	entry *logrus.Entry
}

// compactFormatter renders "[hh:mm:ss.mmm] [LEVL] message key=val key=val"
// lines, with the level name cut to its first four letters,
// grounded on logger.CustomFormatter but without the stack-walking caller
// lookup (which the teacher itself only needs because its logger is a
// global reached from arbitrary call sites; here the call site is always
// known from the field set).
type compactFormatter struct{}

func (compactFormatter) Format(e *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(e.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", e.Time.Format("15:04:05.000"), level, e.Message)
	for k, v := range e.Data {
		fmt.Fprintf(&b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// New builds a Logger writing to w at the given level ("debug", "info",
// "warn", "error"; anything else defaults to "info").
func New(w logrusOutput, level string) *Logger {
	l := logrus.New()
	l.SetFormatter(compactFormatter{})
	l.SetLevel(parseLevel(level))
	if w != nil {
		l.SetOutput(w)
	}
	return &Logger{entry: logrus.NewEntry(l)}
}

// Nop returns a Logger that discards everything, for callers that don't
// want logging (most unit tests).
func Nop() *Logger {
	l := logrus.New()
	l.SetOutput(discard{})
	return &Logger{entry: logrus.NewEntry(l)}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// logrusOutput is the subset of io.Writer logrus.SetOutput wants; declared
// locally so this file doesn't need to import "io" just for the alias.
type logrusOutput interface {
	Write([]byte) (int, error)
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// With returns a child Logger carrying additional structured fields, the
// same pattern the teacher uses via logrus.WithFields in server/innodb/engine.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
