package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AnnotateError attaches slog key-value pairs to err. When the error is later
// logged through a logger set up by ConfigureLogging, the pairs are expanded
// into top-level attributes of the record, even if the error was wrapped in
// between.
//
//	if err := graph.Validate(); err != nil {
//	    return logger.AnnotateError(err, "graph", graph.Name, "asset", path)
//	}
//
// Returns nil if err is nil.
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	r := slog.NewRecord(time.Now(), slog.LevelDebug, "", 0)
	r.Add(args...)

	attrs := make([]slog.Attr, 0, r.NumAttrs())

	r.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)

		return true
	})

	return &slogError{err: err, attrs: attrs}
}

type slogError struct {
	err   error
	attrs []slog.Attr
}

func (s *slogError) Error() string {
	return s.err.Error()
}

func (s *slogError) Unwrap() error {
	return s.err
}

var _ error = (*slogError)(nil)

// slogErrorLogger expands annotated errors found in record attributes.
type slogErrorLogger struct {
	inner slog.Handler
}

var _ slog.Handler = (*slogErrorLogger)(nil)

func (s *slogErrorLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return s.inner.Enabled(ctx, level)
}

func (s *slogErrorLogger) Handle(ctx context.Context, record slog.Record) error {
	var (
		attrs    []slog.Attr
		extra    []slog.Attr
		expanded bool
	)

	record.Attrs(func(attr slog.Attr) bool {
		err, isErr := attr.Value.Any().(error)
		if !isErr {
			attrs = append(attrs, attr)

			return true
		}

		var se *slogError
		if !errors.As(err, &se) {
			attrs = append(attrs, attr)

			return true
		}

		expanded = true

		// The message of the outermost error is kept; wrapping context
		// added after annotation must not be lost.
		attrs = append(attrs, slog.Any(attr.Key, unannotated{err}))
		extra = append(extra, se.attrs...)

		return true
	})

	if !expanded {
		return s.inner.Handle(ctx, record)
	}

	r := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	r.AddAttrs(attrs...)
	r.AddAttrs(extra...)

	return s.inner.Handle(ctx, r)
}

func (s *slogErrorLogger) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &slogErrorLogger{inner: s.inner.WithAttrs(attrs)}
}

func (s *slogErrorLogger) WithGroup(name string) slog.Handler {
	return &slogErrorLogger{inner: s.inner.WithGroup(name)}
}

// unannotated hides an error's annotation from handlers downstream so the
// attributes are not expanded twice.
type unannotated struct {
	err error
}

func (u unannotated) Error() string {
	return u.err.Error()
}

func (u unannotated) LogValue() slog.Value {
	return slog.StringValue(u.err.Error())
}
