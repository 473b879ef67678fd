// =============================================================================
// Telemetry initialization
// =============================================================================
// Wraps OTel trace SDK setup plus a Prometheus metrics registry. When
// telemetry is disabled, no exporters or HTTP listeners are created and
// Providers is a noop.
// =============================================================================

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rashee1997/orchestrator-sub000/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// Metrics holds the Prometheus collectors the router, retrieval cache, and
// controller update as they run.
type Metrics struct {
	ModelRequests   *prometheus.CounterVec
	ModelLatency    *prometheus.HistogramVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	ControllerTurns prometheus.Histogram
}

func newMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		ModelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragcore_model_requests_total",
			Help: "Count of LLM provider calls by model and outcome.",
		}, []string{"model", "outcome"}),
		ModelLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragcore_model_latency_seconds",
			Help:    "LLM provider call latency by model.",
			Buckets: prometheus.DefBuckets,
		}, []string{"model"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragcore_retrieval_cache_hits_total",
			Help: "Count of retrieval cache hits.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragcore_retrieval_cache_misses_total",
			Help: "Count of retrieval cache misses.",
		}),
		ControllerTurns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragcore_controller_turns",
			Help:    "Turn count a controller session took before reaching ANSWER.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
	}
	reg.MustRegister(m.ModelRequests, m.ModelLatency, m.CacheHits, m.CacheMisses, m.ControllerTurns)
	return m
}

// RecordModelCall records one router-mediated provider call outcome. Nil
// receiver is a no-op so callers need not guard on telemetry being enabled.
func (m *Metrics) RecordModelCall(model string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ModelRequests.WithLabelValues(model, outcome).Inc()
	m.ModelLatency.WithLabelValues(model).Observe(elapsed.Seconds())
}

// RecordCacheHit records one retrieval cache hit.
func (m *Metrics) RecordCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// RecordCacheMiss records one retrieval cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// RecordControllerTurns records how many turns one controller session took.
func (m *Metrics) RecordControllerTurns(n int) {
	if m != nil {
		m.ControllerTurns.Observe(float64(n))
	}
}

// Providers holds the SDK handles produced by Init. When telemetry is
// disabled, every field is nil/zero and Shutdown is a no-op.
type Providers struct {
	tp      *sdktrace.TracerProvider
	Metrics *Metrics
	server  *http.Server
}

// Init sets up a stdout span exporter and, if cfg.MetricsPort is set, a
// Prometheus scrape endpoint. When cfg.Enabled is false it returns a noop
// Providers without creating any exporter or listener.
func Init(cfg config.TelemetryConfig, logger *zap.Logger) (*Providers, error) {
	if !cfg.Enabled {
		logger.Info("telemetry disabled, using noop providers")
		return &Providers{}, nil
	}

	ctx := context.Background()

	version := buildVersion()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithoutTimestamps())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	reg := prometheus.NewRegistry()
	metrics := newMetrics(reg)

	var server *http.Server
	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		server = &http.Server{Addr: fmt.Sprintf(":%d", cfg.MetricsPort), Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("telemetry initialized",
		zap.String("service_name", cfg.ServiceName),
		zap.Float64("sample_rate", cfg.SampleRate),
		zap.Int("metrics_port", cfg.MetricsPort),
	)

	return &Providers{tp: tp, Metrics: metrics, server: server}, nil
}

// Shutdown flushes pending spans and stops the metrics server. Safe to call
// on a nil or noop Providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
		}
	}
	return errors.Join(errs...)
}

// buildVersion extracts the module version from Go build info, falling
// back to "dev" if unavailable (the common case in test binaries).
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}
