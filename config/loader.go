// =============================================================================
// Config loader
// =============================================================================
// Centralized configuration loading: defaults -> YAML file -> environment
// variables, in that priority order.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("RAGCORE").
//	    Load()
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rashee1997/orchestrator-sub000/llm/providers"
)

// Config is the complete configuration surface for a ragcore process.
type Config struct {
	API        APIConfig        `yaml:"api" env:"API"`
	Router     RouterConfig     `yaml:"router" env:"ROUTER"`
	Retriever  RetrieverConfig  `yaml:"retriever" env:"RETRIEVER"`
	Controller ControllerConfig `yaml:"controller" env:"CONTROLLER"`
	Providers  ProvidersConfig  `yaml:"providers" env:"PROVIDERS"`
	Log        LogConfig        `yaml:"log" env:"LOG"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" env:"TELEMETRY"`
}

// APIConfig tunes the HTTP listener cmd/ragcore starts in front of
// ragcore.Core.
type APIConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// RouterConfig tunes the task router's per-call retry and deadline.
type RouterConfig struct {
	MaxRetries int           `yaml:"max_retries" env:"MAX_RETRIES"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RetrieverConfig tunes the context retrieval pipeline's fan-out depth,
// adaptive timeout, and result cache.
type RetrieverConfig struct {
	DefaultTopKEmbeddings int           `yaml:"default_top_k_embeddings" env:"DEFAULT_TOP_K_EMBEDDINGS"`
	DefaultTopKKG         int           `yaml:"default_top_k_kg" env:"DEFAULT_TOP_K_KG"`
	BaseTimeout           time.Duration `yaml:"base_timeout" env:"BASE_TIMEOUT"`
	PerCallExtra          time.Duration `yaml:"per_call_extra" env:"PER_CALL_EXTRA"`
	MaxTimeout            time.Duration `yaml:"max_timeout" env:"MAX_TIMEOUT"`
	CacheCapacity         int           `yaml:"cache_capacity" env:"CACHE_CAPACITY"`
	CacheTTL              time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// ControllerConfig tunes the iterative RAG controller's guardrail
// thresholds and iteration bound.
type ControllerConfig struct {
	MaxIterations               int     `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	QualityAnswerThreshold      float64 `yaml:"quality_answer_threshold" env:"QUALITY_ANSWER_THRESHOLD"`
	QualityTurnThreshold        float64 `yaml:"quality_turn_threshold" env:"QUALITY_TURN_THRESHOLD"`
	QualityTurnMin              int     `yaml:"quality_turn_min" env:"QUALITY_TURN_MIN"`
	SourceCountThreshold        int     `yaml:"source_count_threshold" env:"SOURCE_COUNT_THRESHOLD"`
	SourceCountQualityThreshold float64 `yaml:"source_count_quality_threshold" env:"SOURCE_COUNT_QUALITY_THRESHOLD"`
}

// ProvidersConfig carries one entry per LLM backend the model registry may
// wire up. A zero-value entry is simply skipped at registration time.
type ProvidersConfig struct {
	Gemini     providers.GeminiConfig  `yaml:"gemini"`
	Mistral    providers.MistralConfig `yaml:"mistral"`
	ClaudeCode providers.CLIConfig     `yaml:"claude_code"`
	QwenCode   providers.CLIConfig     `yaml:"qwen_code"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig configures tracing and metrics. MetricsPort of 0 disables
// the Prometheus scrape endpoint even when Enabled is true.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLED"`
	ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate  float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	MetricsPort int     `yaml:"metrics_port" env:"METRICS_PORT"`
}

// =============================================================================
// Loader
// =============================================================================

// Loader builds a Config via the builder pattern.
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a Loader with the default env prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "RAGCORE",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML file to overlay on top of the defaults.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix (default "RAGCORE").
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a post-load validation pass.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load resolves a Config: defaults -> YAML file (if configured) ->
// environment variables (if set), then runs every registered validator.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// MustLoad loads a Config from path, panicking on failure. Intended for
// process startup only.
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv loads a Config from defaults plus environment variables only.
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate checks the fields that would otherwise fail silently or
// confusingly deep inside the router/controller.
func (c *Config) Validate() error {
	var errs []string

	if c.Controller.MaxIterations <= 0 {
		errs = append(errs, "controller.max_iterations must be positive")
	}
	if c.Controller.QualityAnswerThreshold < 0 || c.Controller.QualityAnswerThreshold > 1 {
		errs = append(errs, "controller.quality_answer_threshold must be in [0,1]")
	}
	if c.Retriever.DefaultTopKEmbeddings <= 0 {
		errs = append(errs, "retriever.default_top_k_embeddings must be positive")
	}
	if c.Telemetry.Enabled && (c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1) {
		errs = append(errs, "telemetry.sample_rate must be in [0,1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
