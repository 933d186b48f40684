// Package tracing wraps an OpenTelemetry TracerProvider behind a small
// handle that the modules host injects into every ModuleSetup.Dispatch.
// A handle, not a process-wide singleton: each Engine owns its own
// Provider so tests and multiple engines in one binary don't fight over
// otel's global state.
package tracing

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
)

// Config holds the TracerProvider setup knobs. Zero value is valid and
// yields a provider that samples everything and exports nowhere.
type Config struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Insecure       bool
	SampleRate     float64
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "phlow",
		SampleRate:  1.0,
	}
}

// Provider wraps an OpenTelemetry TracerProvider and its lifecycle.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider builds a Provider. When cfg.Endpoint is empty, the provider
// still produces real spans but exports nothing (useful for module hosts
// running under test without a collector).
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	var opts []sdktrace.TracerProviderOption

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceNameOr(cfg.ServiceName)),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}
	opts = append(opts, sdktrace.WithResource(res), sdktrace.WithSampler(samplerFor(cfg.SampleRate)))

	if cfg.Endpoint != "" {
		expOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			expOpts = append(expOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("tracing: create OTLP exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return &Provider{tp: tp, tracer: tp.Tracer(serviceNameOr(cfg.ServiceName))}, nil
}

func serviceNameOr(name string) string {
	if name == "" {
		return "phlow"
	}
	return name
}

func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate <= 0:
		return sdktrace.AlwaysSample()
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Tracer returns the provider's named tracer, for starting spans around
// pipeline runs and module dispatches.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	return p.tp
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
