package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

// TestConfig_Validate verifies each invalid field maps to its sentinel.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"valid minimal", Config{ServiceName: "wikigraph"}, nil},
		{"missing service", Config{}, ErrMissingServiceName},
		{"bad tracing exporter", Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "zipkin"}}, ErrInvalidTracingExporter},
		{"bad sample pct", Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5}}, ErrInvalidSamplePct},
		{"bad metrics exporter", Config{ServiceName: "s", Metrics: MetricsConfig{Enabled: true, Exporter: "statsd"}}, ErrInvalidMetricsExporter},
		{"bad log level", Config{ServiceName: "s", Logging: LoggingConfig{Enabled: true, Level: "trace"}}, ErrInvalidLogLevel},
		{"valid names", Config{
			ServiceName: "s",
			Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1},
			Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     LoggingConfig{Enabled: true, Level: "warn"},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "wikigraph"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("observer must always return usable primitives")
	}
	if obs.Gatherer() != nil {
		t.Error("Gatherer should be nil without prometheus metrics")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

// TestNewObserver_Prometheus verifies middleware instruments appear in the registry.
func TestNewObserver_Prometheus(t *testing.T) {
	var logs bytes.Buffer
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "wikigraph",
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "info", Output: &logs},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer obs.Shutdown(context.Background())

	mw, err := MiddlewareFromObserver(obs, "lookup")
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	_, _ = Run(context.Background(), mw, OpMeta{Component: "lookup", Name: "pagename"}, func(context.Context) (string, error) {
		return "Start", nil
	})

	g := obs.Gatherer()
	if g == nil {
		t.Fatal("Gatherer should be set for prometheus metrics")
	}
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Error("expected at least one metric family")
	}
}

func TestMiddlewareFromObserver_Nil(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil, "lookup"); !errors.Is(err, ErrNilObserver) {
		t.Errorf("err = %v, want ErrNilObserver", err)
	}
}
