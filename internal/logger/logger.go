package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger defines the tokenstore logging contract.
// Implementations should support standard log levels and be safe for concurrent use.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)

	// With returns a Logger that attaches key=value to every entry.
	With(key string, value any) Logger
}

// LogrusLogger adapts a logrus entry to the Logger contract.
type LogrusLogger struct {
	entry *logrus.Entry
}

// New creates a LogrusLogger writing text entries to out at the named level
// (trace, debug, info, warn, error).
func New(out io.Writer, level string) (*LogrusLogger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &LogrusLogger{entry: logrus.NewEntry(l)}, nil
}

// FromLogrus wraps an existing logrus logger.
func FromLogrus(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func (l *LogrusLogger) Info(msg string, args ...any) {
	l.entry.Infof(msg, args...)
}

func (l *LogrusLogger) Warn(msg string, args ...any) {
	l.entry.Warnf(msg, args...)
}

func (l *LogrusLogger) Error(msg string, args ...any) {
	l.entry.Errorf(msg, args...)
}

func (l *LogrusLogger) Debug(msg string, args ...any) {
	l.entry.Debugf(msg, args...)
}

func (l *LogrusLogger) With(key string, value any) Logger {
	return &LogrusLogger{entry: l.entry.WithField(key, value)}
}

// Default provides a global default logger writing info and above to stderr.
var Default Logger = FromLogrus(&logrus.Logger{
	Out:       os.Stderr,
	Formatter: &logrus.TextFormatter{FullTimestamp: true},
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.InfoLevel,
	ExitFunc:  os.Exit,
})

// Discard is a Logger that drops everything.
var Discard Logger = FromLogrus(&logrus.Logger{
	Out:       io.Discard,
	Formatter: &logrus.TextFormatter{},
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.PanicLevel,
	ExitFunc:  os.Exit,
})
