// Package observability wires OpenTelemetry tracing and metrics into the
// HTTP transport around the simulation engine.
package observability

import (
	"fmt"
)

// ObservabilityConfig configures the OpenTelemetry provider. Platform
// exporters (DataDog, Elastic, OTLP push) aren't wired: SPEC_FULL.md's
// domain stack exercises Prometheus pull-based metrics directly via
// client_golang (see the metrics package), and no component needs a second,
// push-based metrics/log/trace sink — see DESIGN.md for the full rationale.
type ObservabilityConfig struct {
	Enabled     bool   `env:"OBSERVABILITY_ENABLED" envDefault:"true"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"elevator-sim-engine"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Version     string `env:"SERVICE_VERSION" envDefault:"1.0.0"`

	Tracing TracingConfig `envPrefix:"TRACING_"`
}

// TracingConfig configures trace sampling.
type TracingConfig struct {
	Enabled       bool    `env:"ENABLED" envDefault:"true"`
	SamplingRatio float64 `env:"SAMPLING_RATIO" envDefault:"1.0"`
}

// Validate checks the observability configuration for internal consistency.
func (c *ObservabilityConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if c.Tracing.SamplingRatio < 0.0 || c.Tracing.SamplingRatio > 1.0 {
		return fmt.Errorf("tracing sampling ratio must be between 0.0 and 1.0")
	}
	return nil
}

// ResourceAttributes returns the OpenTelemetry resource attributes
// identifying this process.
func (c *ObservabilityConfig) ResourceAttributes() map[string]string {
	return map[string]string{
		"service.name":           c.ServiceName,
		"service.version":        c.Version,
		"deployment.environment": c.Environment,
	}
}
