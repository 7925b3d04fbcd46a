// Package otel wires OpenTelemetry tracing for battle commands.
package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/triplea-game/triplea-sub001/internal/platform/config"
)

// EnvPrefix prefixes the tracing environment variables.
const EnvPrefix = "TRIPLEA_OTEL_"

// Settings controls tracing. Tracing is off unless Endpoint is set.
type Settings struct {
	Enabled  bool   `env:"ENABLED" envDefault:"true"`
	Endpoint string `env:"ENDPOINT"`
	// SampleRatio is the share of root spans kept. Simulations open a span
	// per battle step, so long runs usually want less than 1.
	SampleRatio float64 `env:"SAMPLE_RATIO" envDefault:"1"`
}

// LoadSettings reads Settings from TRIPLEA_OTEL_* variables.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := config.ParseEnvWithPrefix(&s, EnvPrefix); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Active reports whether s exports spans.
func (s Settings) Active() bool {
	return s.Enabled && s.Endpoint != ""
}

// Setup initialises tracing for serviceName from the environment. The
// returned shutdown flushes pending spans and should be deferred.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	settings, err := LoadSettings()
	if err != nil {
		return noop, err
	}
	return SetupWith(ctx, serviceName, settings)
}

// SetupWith initialises tracing from explicit settings. Inactive settings
// register nothing and return a no-op shutdown.
func SetupWith(ctx context.Context, serviceName string, s Settings) (func(context.Context) error, error) {
	if !s.Active() {
		return noop, nil
	}
	if s.SampleRatio < 0 || s.SampleRatio > 1 {
		return noop, fmt.Errorf("otel sample ratio %v is outside [0, 1]", s.SampleRatio)
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(s.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

func noop(context.Context) error { return nil }

// Tracer returns a named tracer from the global provider. It is a no-op
// tracer until Setup registers a provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
