// Package logger provides the leveled, tagged console logger and the
// per-run mission log file.
package logger

import (
	"fmt"
	"log"
	"strings"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

var levelNames = [...]string{"none", "error", "warn", "info", "debug"}

// levelPrefix is printed in front of each message. Info has none.
var levelPrefix = [...]string{"", "ERROR:", "WARN:", "", "DEBUG:"}

func (l LogLevel) String() string {
	if l < LogLevelNone || l > LogLevelDebug {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts a level name or its number.
func ParseLevel(s string) (LogLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range levelNames {
		if s == name || s == fmt.Sprint(i) {
			return LogLevel(i), nil
		}
	}
	return LogLevelNone, fmt.Errorf("unknown log level %q", s)
}

// Logger filters by level and prefixes each line with an optional [tag].
// A nil std logger is allowed when nothing should be printed (see Nop).
type Logger struct {
	std   *log.Logger
	level LogLevel
	tag   string
}

func NewLogger(std *log.Logger, level LogLevel) *Logger {
	return &Logger{std: std, level: level}
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return NewLogger(nil, LogLevelNone)
}

// WithTag returns a logger sharing the output and level with a new tag.
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{std: l.std, level: l.level, tag: tag}
}

func (l *Logger) Level() LogLevel {
	return l.level
}

func (l *Logger) enabled(level LogLevel) bool {
	return l.std != nil && l.level >= level
}

func (l *Logger) prefix(level string) string {
	var b strings.Builder
	if l.tag != "" {
		b.WriteString("[" + l.tag + "] ")
	}
	if level != "" {
		b.WriteString(level + " ")
	}
	return b.String()
}

func (l *Logger) output(level LogLevel, format string, v []interface{}) {
	if !l.enabled(level) {
		return
	}
	l.std.Printf(l.prefix(levelPrefix[level])+format, v...)
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.output(LogLevelDebug, format, v) }
func (l *Logger) Infof(format string, v ...interface{})  { l.output(LogLevelInfo, format, v) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.output(LogLevelWarning, format, v) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.output(LogLevelError, format, v) }

// Printf is Infof, so the logger can stand in for a *log.Logger.
func (l *Logger) Printf(format string, v ...interface{}) { l.Infof(format, v...) }

// Fatalf logs regardless of level and exits.
func (l *Logger) Fatalf(format string, v ...interface{}) {
	std := l.std
	if std == nil {
		std = log.Default()
	}
	std.Fatalf(l.prefix("FATAL:")+format, v...)
}
