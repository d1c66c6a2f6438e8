package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextKey string

const loggerContextKey contextKey = "logger.entry"

var defaultLogger = logrus.New()

// SetLoggerOptions applies options to the process-wide logger
func SetLoggerOptions(optionsF func(*logrus.Logger)) {
	optionsF(defaultLogger)
}

// NewContextWithFields returns a context carrying a log entry extended with the given fields.
// Handlers use it to stamp request-scoped fields onto every log line.
func NewContextWithFields(parent context.Context, fields logrus.Fields) context.Context {
	entry := For(parent).WithFields(fields)
	return context.WithValue(parent, loggerContextKey, entry)
}

// For returns the log entry carried by ctx, or a default entry when ctx is nil
// or carries none
func For(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logrus.NewEntry(defaultLogger)
	}
	if entry, ok := ctx.Value(loggerContextKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(defaultLogger).WithContext(ctx)
}
