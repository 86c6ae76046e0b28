// Package otel wires the OpenTelemetry SDK for the extension: a log provider
// bridged from slog and a meter provider for the hook, mouse and camera
// instruments. Both export to the session log file.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds OTel configuration
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	BatchTimeout   time.Duration
	MetricInterval time.Duration
	LogWriter      io.Writer // OTel log records (required when enabled)
	MetricWriter   io.Writer // metric snapshots, defaults to LogWriter
}

// Provider manages OpenTelemetry providers for logs and metrics
type Provider struct {
	logProvider   *sdklog.LoggerProvider
	meterProvider *sdkmetric.MeterProvider
	config        Config
}

// New creates a new OTel provider with the given configuration. When
// enabled, the meter provider is installed globally so instruments created
// through otel.Meter start exporting. If OTel is disabled, returns a no-op
// provider.
func New(cfg Config) (*Provider, error) {
	p := &Provider{
		config: cfg,
	}

	if !cfg.Enabled {
		return p, nil
	}
	if cfg.LogWriter == nil {
		return nil, fmt.Errorf("OTel enabled but no log writer configured")
	}
	if cfg.MetricWriter == nil {
		cfg.MetricWriter = cfg.LogWriter
		p.config.MetricWriter = cfg.LogWriter
	}

	attrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(cfg.ServiceVersion)))
	}
	res, err := resource.New(context.Background(), attrs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	logExporter, err := stdoutlog.New(
		stdoutlog.WithWriter(cfg.LogWriter),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create file log exporter: %w", err)
	}
	var batchOpts []sdklog.BatchProcessorOption
	if cfg.BatchTimeout > 0 {
		batchOpts = append(batchOpts, sdklog.WithExportTimeout(cfg.BatchTimeout))
	}
	p.logProvider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter, batchOpts...)),
	)

	metricExporter, err := stdoutmetric.New(
		stdoutmetric.WithWriter(cfg.MetricWriter),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, readerOpts...)),
	)
	otel.SetMeterProvider(p.meterProvider)

	return p, nil
}

// LoggerProvider returns the log provider for use with otelslog bridge.
// Returns nil if OTel is not enabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	if p == nil {
		return nil
	}
	return p.logProvider
}

// Meter returns a meter with the given name. Falls back to the global
// provider, a no-op until one is installed.
func (p *Provider) Meter(name string) metric.Meter {
	if p.meterProvider == nil {
		return otel.Meter(name)
	}
	return p.meterProvider.Meter(name)
}

// Flush forces a flush of pending logs and a metric collection.
func (p *Provider) Flush(ctx context.Context) error {
	if !p.config.Enabled {
		return nil
	}

	var errs []error
	if p.logProvider != nil {
		if err := p.logProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log flush failed: %w", err))
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.ForceFlush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric flush failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown gracefully shuts down all providers.
// Should be called when the host unloads the extension.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.config.Enabled {
		return nil
	}

	var errs []error
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric shutdown failed: %w", err))
		}
	}
	if p.logProvider != nil {
		if err := p.logProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log shutdown failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}
