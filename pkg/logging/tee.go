package logging

import (
	"context"
	"errors"
)

// teeLogger fans every entry out to several loggers
type teeLogger []Logger

// Tee returns a logger writing to all non-nil loggers. With a single
// logger it is returned as is; with none a NullLogger is returned.
func Tee(loggers ...Logger) Logger {
	var out teeLogger
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	switch len(out) {
	case 0:
		return NewNullLogger()
	case 1:
		return out[0]
	}
	return out
}

func (t teeLogger) Debug(ctx context.Context, msg string, fields Fields) {
	for _, l := range t {
		l.Debug(ctx, msg, fields)
	}
}

func (t teeLogger) Info(ctx context.Context, msg string, fields Fields) {
	for _, l := range t {
		l.Info(ctx, msg, fields)
	}
}

func (t teeLogger) Warn(ctx context.Context, msg string, fields Fields) {
	for _, l := range t {
		l.Warn(ctx, msg, fields)
	}
}

func (t teeLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	for _, l := range t {
		l.Error(ctx, msg, err, fields)
	}
}

func (t teeLogger) WithFields(fields Fields) Logger {
	out := make(teeLogger, len(t))
	for i, l := range t {
		out[i] = l.WithFields(fields)
	}
	return out
}

func (t teeLogger) Close() error {
	var errs []error
	for _, l := range t {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NullLogger drops every entry. It stands in when logging is disabled and
// is what an empty Tee collapses to.
type NullLogger struct{}

var _ Logger = (*NullLogger)(nil)

// NewNullLogger returns a logger that writes nothing
func NewNullLogger() *NullLogger { return &NullLogger{} }

func (*NullLogger) Debug(context.Context, string, Fields)        {}
func (*NullLogger) Info(context.Context, string, Fields)         {}
func (*NullLogger) Warn(context.Context, string, Fields)         {}
func (*NullLogger) Error(context.Context, string, error, Fields) {}
func (n *NullLogger) WithFields(Fields) Logger                   { return n }
func (*NullLogger) Close() error                                 { return nil }
