package logging

import (
	"context"
	"io"
	"maps"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultLogger is a structured logger backed by logrus.
// Debug/Info go to stdout, Warn and above to stderr.
type DefaultLogger struct {
	stdout *logrus.Logger
	stderr *logrus.Logger
	level  Level
	fields Fields
}

// NewDefaultLogger creates a logger writing text lines to stdout/stderr
func NewDefaultLogger() *DefaultLogger {
	return NewDefaultLoggerWithOutput(os.Stdout, os.Stderr)
}

// NewDefaultLoggerWithOutput creates a logger with explicit writers
func NewDefaultLoggerWithOutput(stdout, stderr io.Writer) *DefaultLogger {
	return &DefaultLogger{
		stdout: newLogrus(stdout),
		stderr: newLogrus(stderr),
		level:  InfoLevel,
		fields: make(Fields),
	}
}

// NewLogrusLogger wraps an existing logrus logger. Every level is written to it.
func NewLogrusLogger(l *logrus.Logger) *DefaultLogger {
	l.SetLevel(logrus.TraceLevel)
	return &DefaultLogger{
		stdout: l,
		stderr: l,
		level:  InfoLevel,
		fields: make(Fields),
	}
}

func newLogrus(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	// filtering happens in DefaultLogger.log
	l.SetLevel(logrus.TraceLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: !isTerminal(w),
	})
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func (d *DefaultLogger) entry(target *logrus.Logger, err error, fields ...Fields) *logrus.Entry {
	all := make(logrus.Fields, len(d.fields))
	maps.Copy(all, d.fields)
	for _, f := range fields {
		maps.Copy(all, f)
	}

	e := logrus.NewEntry(target).WithFields(all)
	if err != nil {
		e = e.WithError(err)
	}
	return e
}

func (d *DefaultLogger) log(level Level, err error, msg string, fields ...Fields) {
	if level < d.level {
		return
	}

	switch level {
	case DebugLevel:
		d.entry(d.stdout, err, fields...).Debug(msg)
	case InfoLevel:
		d.entry(d.stdout, err, fields...).Info(msg)
	case WarnLevel:
		d.entry(d.stderr, err, fields...).Warn(msg)
	case ErrorLevel:
		d.entry(d.stderr, err, fields...).Error(msg)
	case FatalLevel:
		d.entry(d.stderr, err, fields...).Fatal(msg)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.log(DebugLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.log(InfoLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.log(WarnLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, err, msg, fields...)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.log(FatalLevel, err, msg, fields...)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	newFields := make(Fields, len(d.fields)+len(fields))
	maps.Copy(newFields, d.fields)
	maps.Copy(newFields, fields)

	return &DefaultLogger{
		stdout: d.stdout,
		stderr: d.stderr,
		level:  d.level,
		fields: newFields,
	}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.level = level
}

// NoOpLogger discards everything. Used when SetGlobalLogger(nil) is called.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
