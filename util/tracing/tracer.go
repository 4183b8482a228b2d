// Package tracing wraps OpenTelemetry spans together with gocore stats, prometheus
// observations and start/finish log lines, so a service can instrument a call in one line.
package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/bitnames/bitnames/ulogger"
	"github.com/ordishs/gocore"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type statsKey struct{}

var rootStat = gocore.NewStat("bitnames", true)

type Options func(s *TraceOptions)

type TraceOptions struct {
	ParentStat *gocore.Stat
	Histogram  prometheus.Histogram
	Counter    prometheus.Counter
	Logger     ulogger.Logger
	LogMessage string
	LogArgs    []interface{}
	Tags       []attribute.KeyValue
}

func WithParentStat(stat *gocore.Stat) Options {
	return func(s *TraceOptions) {
		s.ParentStat = stat
	}
}

// WithHistogram sets the prometheus histogram observed, in seconds, when the span ends.
func WithHistogram(histogram prometheus.Histogram) Options {
	return func(s *TraceOptions) {
		s.Histogram = histogram
	}
}

// WithCounter sets the prometheus counter incremented when the span ends.
func WithCounter(counter prometheus.Counter) Options {
	return func(s *TraceOptions) {
		s.Counter = counter
	}
}

// WithLogMessage logs the formatted message at INFO when the span starts and again, with the
// elapsed time, when it ends. Meant for gRPC entry points, not internal functions.
func WithLogMessage(logger ulogger.Logger, format string, args ...interface{}) Options {
	return func(s *TraceOptions) {
		s.Logger = logger
		s.LogMessage = format
		s.LogArgs = args
	}
}

func WithTag(key, value string) Options {
	return func(s *TraceOptions) {
		s.Tags = append(s.Tags, attribute.String(key, value))
	}
}

type UTracer struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

// Tracer returns a tracer for the named service. The attributes are set on every span it starts.
func Tracer(service string, attrs ...attribute.KeyValue) *UTracer {
	return &UTracer{
		tracer: otel.Tracer(service),
		attrs:  attrs,
	}
}

// Start opens a span and a gocore stat. The returned function ends both; passing an error
// to it records the error on the span and in the finish log line.
func (u *UTracer) Start(ctx context.Context, name string, setOptions ...Options) (context.Context, trace.Span, func(...error)) {
	options := &TraceOptions{}
	for _, opt := range setOptions {
		opt(options)
	}

	parentStat, ok := ctx.Value(statsKey{}).(*gocore.Stat)
	if !ok {
		parentStat = options.ParentStat
	}

	if parentStat == nil {
		parentStat = rootStat
	}

	stat := parentStat.NewStat(name, true)
	start := gocore.CurrentTime()

	ctx = context.WithValue(ctx, statsKey{}, stat)

	ctx, span := u.tracer.Start(ctx, name)
	if len(u.attrs) > 0 {
		span.SetAttributes(u.attrs...)
	}

	if len(options.Tags) > 0 {
		span.SetAttributes(options.Tags...)
	}

	if options.Logger != nil && options.LogMessage != "" {
		options.Logger.Infof(options.LogMessage, options.LogArgs...)
	}

	return ctx, span, func(errs ...error) {
		var err error

		for _, e := range errs {
			if e != nil {
				err = e
				break
			}
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()
		stat.AddTime(start)

		if options.Histogram != nil {
			options.Histogram.Observe(time.Since(start).Seconds())
		}

		if options.Counter != nil {
			options.Counter.Inc()
		}

		if options.Logger != nil && options.LogMessage != "" {
			done := fmt.Sprintf(" DONE in %s", time.Since(start))
			if err != nil {
				done += fmt.Sprintf(" with error: %v", err)
			}

			options.Logger.Infof(options.LogMessage+done, options.LogArgs...)
		}
	}
}
