// =============================================================================
// Default configuration
// =============================================================================
// Mirrors the numeric defaults already hardcoded in the router's
// defaultMaxRetries/defaultTimeout, retrieval.DefaultConfig and
// controller.DefaultConfig, so operators have one place to look for (and
// override) them. The cache size and TTL are set only here: retrieval's
// NewCache takes both as arguments and has no defaults of its own.
// =============================================================================
package config

import "time"

// DefaultConfig returns the documented defaults for every section.
func DefaultConfig() *Config {
	return &Config{
		API:        DefaultAPIConfig(),
		Router:     DefaultRouterConfig(),
		Retriever:  DefaultRetrieverConfig(),
		Controller: DefaultControllerConfig(),
		Providers:  ProvidersConfig{},
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultAPIConfig matches internal/server.DefaultConfig's timeouts.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		Addr:            ":8080",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// DefaultRouterConfig matches router.defaultMaxRetries / defaultTimeout.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	}
}

// DefaultRetrieverConfig matches retrieval.DefaultConfig's documented
// top_k and adaptive-timeout defaults, plus a 10-minute, 500-entry cache.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		DefaultTopKEmbeddings: 10,
		DefaultTopKKG:         5,
		BaseTimeout:           120 * time.Second,
		PerCallExtra:          15 * time.Second,
		MaxTimeout:            10 * time.Minute,
		CacheCapacity:         500,
		CacheTTL:              10 * time.Minute,
	}
}

// DefaultControllerConfig matches controller.DefaultConfig's documented
// guardrail thresholds: quality>=0.8 forces ANSWER; quality>=0.7 with
// turn>=3 forces ANSWER; source_count>=10 with quality>=0.6 forces ANSWER.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		MaxIterations:               5,
		QualityAnswerThreshold:      0.8,
		QualityTurnThreshold:        0.7,
		QualityTurnMin:              3,
		SourceCountThreshold:        10,
		SourceCountQualityThreshold: 0.6,
	}
}

// DefaultLogConfig returns a production-sane zap configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig disables telemetry by default; enabling it turns
// on stdout span export plus a Prometheus scrape endpoint.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:     false,
		ServiceName: "ragcore",
		SampleRate:  0.1,
		MetricsPort: 9091,
	}
}
