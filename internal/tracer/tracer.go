// Package tracer configures the OpenTelemetry tracer provider for the
// update daemon.
package tracer

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/moffa90/go-bleota/config"
)

// Identity names the process in exported spans.
type Identity struct {
	// Service is reported as service.name
	Service string

	// Device is the advertised BLE name, reported as ota.device.name
	Device string
}

func (id Identity) resource() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{attribute.String("service.name", id.Service)}
	if id.Device != "" {
		attrs = append(attrs, attribute.String("ota.device.name", id.Device))
	}
	return resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
}

// Setup installs the global TracerProvider and returns its shutdown function.
// When tracing is disabled, or the exporter is "noop", a noop provider is
// installed. "stdout" and "stderr" write one JSON span per line.
func Setup(ctx context.Context, cfg config.TracerConfig, id Identity) (func(context.Context) error, error) {
	noopShutdown := func(context.Context) error { return nil }

	var w io.Writer
	switch cfg.Exporter {
	case "noop", "":
		otel.SetTracerProvider(noop.NewTracerProvider())
		return noopShutdown, nil
	case "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", cfg.Exporter)
	}
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return noopShutdown, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", cfg.Exporter, err)
	}

	res, err := id.resource()
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	// Spans are flushed synchronously: the process may reboot right after
	// the activate span ends.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
