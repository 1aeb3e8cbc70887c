// Package tracing wires opentracing/jaeger for per-request and
// per-transaction spans.
package tracing

import (
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// InitTracer installs a process-wide jaeger tracer under the given service
// name and returns its io.Closer for teardown.
func InitTracer(l logrus.FieldLogger) func(serviceName string) (io.Closer, error) {
	return func(serviceName string) (io.Closer, error) {
		cfg := jaegercfg.Configuration{
			ServiceName: serviceName,
			Sampler: &jaegercfg.SamplerConfig{
				Type:  "const",
				Param: 1,
			},
			Reporter: &jaegercfg.ReporterConfig{
				LogSpans: false,
			},
		}

		tracer, closer, err := cfg.NewTracer()
		if err != nil {
			return nil, err
		}
		opentracing.SetGlobalTracer(tracer)

		l.Infof("Tracer initialized for service [%s].", serviceName)
		return closer, nil
	}
}

// Teardown closes the tracer, logging any error rather than propagating it.
func Teardown(l logrus.FieldLogger) func(c io.Closer) func() {
	return func(c io.Closer) func() {
		return func() {
			if c == nil {
				return
			}
			if err := c.Close(); err != nil {
				l.WithError(err).Error("Error closing tracer.")
			}
		}
	}
}
