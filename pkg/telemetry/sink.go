package telemetry

import (
	"context"
	"log/slog"
	"sort"
)

// Sink is a write-only side channel for traces and exceptions. Delivery is best effort.
type Sink interface {
	TrackTrace(ctx context.Context, message string, properties map[string]string)
	TrackException(ctx context.Context, err error, properties map[string]string)
}

type nopSink struct{}

func (nopSink) TrackTrace(context.Context, string, map[string]string)    {}
func (nopSink) TrackException(context.Context, error, map[string]string) {}

// Nop discards everything.
func Nop() Sink {
	return nopSink{}
}

// SlogSink writes to a structured logger. Traces are logged on info, exceptions on error level.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink uses slog.Default() when logger is nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) TrackTrace(ctx context.Context, message string, properties map[string]string) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, message, propertiesToAttrs(properties)...)
}

func (s *SlogSink) TrackException(ctx context.Context, err error, properties map[string]string) {
	if err == nil {
		return
	}
	attrs := append(propertiesToAttrs(properties), slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, slog.LevelError, "exception", attrs...)
}

type multiSink []Sink

func (m multiSink) TrackTrace(ctx context.Context, message string, properties map[string]string) {
	for _, s := range m {
		s.TrackTrace(ctx, message, properties)
	}
}

func (m multiSink) TrackException(ctx context.Context, err error, properties map[string]string) {
	for _, s := range m {
		s.TrackException(ctx, err, properties)
	}
}

// Multi fans out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	m := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	if len(m) == 0 {
		return Nop()
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func propertiesToAttrs(properties map[string]string) []slog.Attr {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	for _, k := range keys {
		attrs = append(attrs, slog.String(k, properties[k]))
	}
	return attrs
}
