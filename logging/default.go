package logging

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

// DefaultLogger is the logger in place until a host installs its own. It
// writes logrus text lines, Debug and Info to one stream and Warn and above
// to another. Colors follow logrus terminal detection on each stream.
type DefaultLogger struct {
	out    *logrus.Logger
	errOut *logrus.Logger
	fields logrus.Fields
}

// NewDefaultLogger creates a logger writing to stdout and stderr
func NewDefaultLogger() *DefaultLogger {
	return newDefaultLogger(os.Stdout, os.Stderr, false)
}

// NewWriterLogger creates an uncolored logger writing Debug/Info to out and
// Warn/Error/Fatal to errOut
func NewWriterLogger(out, errOut io.Writer) *DefaultLogger {
	return newDefaultLogger(out, errOut, true)
}

func newDefaultLogger(out, errOut io.Writer, noColor bool) *DefaultLogger {
	newLogger := func(w io.Writer) *logrus.Logger {
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(logrus.InfoLevel)
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: noColor,
			SortingFunc:   sortFieldKeys,
		})
		return l
	}

	return &DefaultLogger{
		out:    newLogger(out),
		errOut: newLogger(errOut),
		fields: logrus.Fields{},
	}
}

// fieldRank orders the keys every line carries ahead of the rest
var fieldRank = map[string]int{
	logrus.FieldKeyTime:  0,
	logrus.FieldKeyLevel: 1,
	logrus.FieldKeyMsg:   2,
	"component":          3,
	"function":           4,
}

// sortFieldKeys puts time, level, msg, component and function first and
// sorts the remaining keys alphabetically
func sortFieldKeys(keys []string) {
	rank := func(k string) int {
		if r, ok := fieldRank[k]; ok {
			return r
		}
		return len(fieldRank)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
}

func (d *DefaultLogger) entry(level Level, fields []Fields) *logrus.Entry {
	l := d.out
	if level >= WarnLevel {
		l = d.errOut
	}

	entry := l.WithFields(d.fields)
	for _, f := range fields {
		entry = entry.WithFields(logrus.Fields(f))
	}
	return entry
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.entry(DebugLevel, fields).Debug(msg)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.entry(InfoLevel, fields).Info(msg)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.entry(WarnLevel, fields).Warn(msg)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	entry := d.entry(ErrorLevel, fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(msg)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	entry := d.entry(FatalLevel, fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Fatal(msg)
}

// WithFields returns a logger sharing both streams and the level
func (d *DefaultLogger) WithFields(fields Fields) Logger {
	merged := make(logrus.Fields, len(d.fields)+len(fields))
	for k, v := range d.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &DefaultLogger{
		out:    d.out,
		errOut: d.errOut,
		fields: merged,
	}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

// SetLevel applies to every logger derived from the same DefaultLogger
func (d *DefaultLogger) SetLevel(level Level) {
	d.out.SetLevel(toLogrusLevel(level))
	d.errOut.SetLevel(toLogrusLevel(level))
}

// NoOpLogger discards everything. Tests and embedders that want silence use it.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
