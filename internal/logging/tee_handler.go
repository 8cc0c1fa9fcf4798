package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes every record to each sink whose level admits it.
type teeHandler []slog.Handler

func newTeeHandler(sinks ...slog.Handler) slog.Handler {
	var tee teeHandler
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		if nested, ok := sink.(teeHandler); ok {
			tee = append(tee, nested...)
			continue
		}
		tee = append(tee, sink)
	}
	switch len(tee) {
	case 0:
		return NoopHandler{}
	case 1:
		return tee[0]
	}
	return tee
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range t {
		if sink.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, sink := range t {
		if sink.Enabled(ctx, record.Level) {
			// Sinks may retain attrs, so each gets its own copy.
			if err := sink.Handle(ctx, record.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	out := make(teeHandler, len(t))
	for i, sink := range t {
		out[i] = fn(sink)
	}
	return out
}

// TeeLogger returns a logger that writes to base and to every extra sink.
// The run command uses it to keep a JSON debug log beside the run log.
func TeeLogger(base *slog.Logger, sinks ...slog.Handler) *slog.Logger {
	if base != nil {
		sinks = append([]slog.Handler{base.Handler()}, sinks...)
	}
	return slog.New(newTeeHandler(sinks...))
}
