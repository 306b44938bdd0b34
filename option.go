package mkernel

import (
	"log"

	"github.com/viant/mkernel/service/scheduler"
	"github.com/viant/mkernel/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service at construction time.
type Option func(s *Service)

// WithConfig sets the kernel configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithLogger enables scheduling trace output through the given logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithKernelOptions passes additional options through to the scheduler,
// applied after the configuration derived ones.
func WithKernelOptions(options ...scheduler.Option) Option {
	return func(s *Service) {
		s.kernelOptions = append(s.kernelOptions, options...)
	}
}

// WithJournalURL persists every task transition event under the given URL so
// a run can be replayed afterwards.
func WithJournalURL(URL string) Option {
	return func(s *Service) {
		s.journalURL = URL
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If
// outputFile is empty the stdout exporter is used, otherwise spans are
// written to the supplied file path. Safe to call multiple times; the first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, enabling OTLP, Jaeger or Zipkin integrations.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
