package tracing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bitnames/bitnames/errors"
	"github.com/bitnames/bitnames/settings"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	once    sync.Once
	initErr error
	tp      *sdktrace.TracerProvider
	mu      sync.Mutex
)

// InitTracer installs the global OTLP tracer provider. Only the first call does any work.
func InitTracer(appSettings *settings.Settings) error {
	once.Do(func() {
		endpoint := "localhost:4318"
		if appSettings.TracingCollectorURL != nil && appSettings.TracingCollectorURL.Host != "" {
			endpoint = appSettings.TracingCollectorURL.Host
		}

		exporter, err := otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			initErr = errors.NewProcessingError("failed to create OTLP exporter", err)
			return
		}

		res, err := resource.New(
			context.Background(),
			resource.WithAttributes(
				attribute.String("service.name", appSettings.ServiceName),
				attribute.String("client.name", appSettings.ClientName),
			),
		)
		if err != nil {
			initErr = errors.NewProcessingError("failed to create resource", err)
			return
		}

		mu.Lock()
		defer mu.Unlock()

		tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(appSettings.TracingSampleRate)),
			sdktrace.WithResource(res),
		)

		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})

	return initErr
}

// ShutdownTracer flushes and stops the global tracer provider. Calling it twice is a no-op.
func ShutdownTracer(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if tp == nil {
		return nil
	}

	if err := tp.ForceFlush(ctx); err != nil {
		// a collector that is not running should not block shutdown
		if !strings.Contains(err.Error(), "connection refused") {
			return errors.NewProcessingError("failed to flush spans", err)
		}
	}

	if err := tp.Shutdown(ctx); err != nil {
		return errors.NewProcessingError("failed to shutdown tracer", err)
	}

	tp = nil

	return nil
}
