// Command ragcore boots the agentic retrieval core as a standalone
// process: load configuration, build the logger and telemetry providers,
// probe every configured model provider into a registry, and wire the
// router, retriever, controller, and synthesizer behind the ragcore
// facade.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rashee1997/orchestrator-sub000/api/handlers"
	"github.com/rashee1997/orchestrator-sub000/config"
	"github.com/rashee1997/orchestrator-sub000/controller"
	"github.com/rashee1997/orchestrator-sub000/dmqr"
	"github.com/rashee1997/orchestrator-sub000/internal/server"
	"github.com/rashee1997/orchestrator-sub000/internal/telemetry"
	"github.com/rashee1997/orchestrator-sub000/llm"
	"github.com/rashee1997/orchestrator-sub000/llm/providers/claudecode"
	"github.com/rashee1997/orchestrator-sub000/llm/providers/gemini"
	"github.com/rashee1997/orchestrator-sub000/llm/providers/mistral"
	"github.com/rashee1997/orchestrator-sub000/llm/providers/qwencode"
	"github.com/rashee1997/orchestrator-sub000/ragcore"
	"github.com/rashee1997/orchestrator-sub000/retrieval"
	"github.com/rashee1997/orchestrator-sub000/router"
	"github.com/rashee1997/orchestrator-sub000/synth"
	"github.com/rashee1997/orchestrator-sub000/types"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version, BuildTime, and GitCommit are injected at link time via
// -ldflags "-X main.Version=... -X main.BuildTime=... -X main.GitCommit=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ragcore:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("RAGCORE_CONFIG_PATH")
	cfg, err := config.NewLoader().WithConfigPath(configPath).WithEnvPrefix("RAGCORE").Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := buildRegistry(ctx, cfg.Providers, logger)

	rtr := router.NewRouter(registry, nil, logger)
	rtr.SetMetrics(providers.Metrics)

	cache := retrieval.NewCache(cfg.Retriever.CacheCapacity, cfg.Retriever.CacheTTL)
	cache.SetMetrics(providers.Metrics)

	retrieverCfg := retrieval.Config{
		DefaultTopKEmbeddings: cfg.Retriever.DefaultTopKEmbeddings,
		DefaultTopKKG:         cfg.Retriever.DefaultTopKKG,
		BaseTimeout:           cfg.Retriever.BaseTimeout,
		PerCallExtra:          cfg.Retriever.PerCallExtra,
		MaxTimeout:            cfg.Retriever.MaxTimeout,
	}
	// No vector store, knowledge graph, task-log store, or web-search
	// adapter is wired by default — this module ships the retrieval and
	// reasoning core, not a storage layer. A deployment supplies its own
	// retrieval.EmbeddingStore/KnowledgeGraph/TaskLogStore/WebSearch
	// implementations here.
	retriever := retrieval.NewRetriever(nil, nil, nil, nil, rtr, cache, retrieverCfg, logger)

	dmqrGen := dmqr.NewGenerator(rtr)

	controllerCfg := controller.Config{
		MaxIterations:               cfg.Controller.MaxIterations,
		QualityAnswerThreshold:      cfg.Controller.QualityAnswerThreshold,
		QualityTurnThreshold:        cfg.Controller.QualityTurnThreshold,
		QualityTurnMin:              cfg.Controller.QualityTurnMin,
		SourceCountThreshold:        cfg.Controller.SourceCountThreshold,
		SourceCountQualityThreshold: cfg.Controller.SourceCountQualityThreshold,
	}
	ctrl := controller.NewController(retriever, dmqrGen, rtr, controllerCfg, logger)
	ctrl.SetMetrics(providers.Metrics)

	synthesizer := synth.NewSynthesizer(rtr, logger)

	core := ragcore.NewCore(rtr, retriever, ctrl, synthesizer, logger)

	apiServer, err := startAPIServer(cfg.API, core, logger)
	if err != nil {
		return fmt.Errorf("start API server: %w", err)
	}

	logger.Info("ragcore ready",
		zap.String("api_addr", cfg.API.Addr),
		zap.Int("models_registered", len(registry.All())),
		zap.Bool("telemetry_enabled", cfg.Telemetry.Enabled),
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("API server shutdown error", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown error", zap.Error(err))
	}
	return nil
}

// startAPIServer registers the health and core-facing routes on a mux and
// starts it behind internal/server.Manager.
func startAPIServer(cfg config.APIConfig, core *ragcore.Core, logger *zap.Logger) (*server.Manager, error) {
	mux := http.NewServeMux()

	health := handlers.NewHealthHandler(logger)
	mux.HandleFunc("/healthz", health.HandleHealthz)
	mux.HandleFunc("/readyz", health.HandleReady)
	mux.HandleFunc("/version", health.HandleVersion(Version, BuildTime, GitCommit))

	coreHandler := handlers.NewCoreHandler(core, logger)
	mux.HandleFunc("/v1/answer", coreHandler.HandleAnswer)
	mux.HandleFunc("/v1/retrieve", coreHandler.HandleRetrieve)

	mgr := server.NewManager(mux, server.Config{
		Addr:            cfg.Addr,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	if err := mgr.Start(); err != nil {
		return nil, err
	}
	return mgr, nil
}

// buildRegistry probes every configured provider's declared models into an
// llm.Registry. A provider whose config is entirely zero-valued (no API
// key, no CLI command) is skipped rather than registered as a guaranteed
// Probe failure.
func buildRegistry(ctx context.Context, cfg config.ProvidersConfig, logger *zap.Logger) *llm.Registry {
	var entries []llm.RegistryEntry

	if cfg.Gemini.APIKey != "" || cfg.Gemini.OAuthCredsPath != "" {
		p := gemini.New(cfg.Gemini, logger)
		models := cfg.Gemini.Models
		if len(models) == 0 {
			models = []string{"gemini-2.5-pro", "gemini-2.0-flash", "gemini-2.0-flash-lite"}
		}
		for _, name := range models {
			entries = append(entries, llm.RegistryEntry{
				Info: types.ModelInfo{
					Name:         name,
					Provider:     types.ProviderGemini,
					Capability:   geminiCapability(name),
					CostTier:     types.CostFree,
					RateLimitRPM: p.RateLimitRPM(name),
					AuthMethod:   types.AuthAPIKey,
				},
				Provider: llm.NewResilientProvider(p, nil, logger),
			})
		}
	}

	if cfg.Mistral.APIKey != "" {
		p := mistral.New(cfg.Mistral, logger)
		name := cfg.Mistral.Model
		if name == "" {
			name = "mistral-large-latest"
		}
		entries = append(entries, llm.RegistryEntry{
			Info: types.ModelInfo{
				Name:       name,
				Provider:   types.ProviderMistral,
				Capability: types.CapabilityComplex,
				CostTier:   types.CostPaid,
				AuthMethod: types.AuthAPIKey,
			},
			Provider: llm.NewResilientProvider(p, nil, logger),
		})
	}

	if cfg.ClaudeCode.Command != "" {
		p := claudecode.New(cfg.ClaudeCode, logger)
		entries = append(entries, llm.RegistryEntry{
			Info: types.ModelInfo{
				Name:       p.Name(),
				Provider:   types.ProviderClaudeCode,
				Capability: types.CapabilityComplex,
				CostTier:   types.CostSubscription,
				AuthMethod: types.AuthCLI,
			},
			Provider: llm.NewResilientProvider(p, nil, logger),
		})
	}

	if cfg.QwenCode.Command != "" {
		p := qwencode.New(cfg.QwenCode, logger)
		entries = append(entries, llm.RegistryEntry{
			Info: types.ModelInfo{
				Name:       p.Name(),
				Provider:   types.ProviderQwenCode,
				Capability: types.CapabilityMedium,
				CostTier:   types.CostSubscription,
				AuthMethod: types.AuthCLI,
			},
			Provider: llm.NewResilientProvider(p, nil, logger),
		})
	}

	return llm.NewRegistry(ctx, entries, logger)
}

func geminiCapability(model string) types.CapabilityLevel {
	switch model {
	case "gemini-2.5-pro":
		return types.CapabilityComplex
	case "gemini-2.0-flash-lite":
		return types.CapabilitySimple
	default:
		return types.CapabilityMedium
	}
}

// newLogger builds a zap.Logger from LogConfig, covering both the
// "json" (production) and "console" (development) encodings.
func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoding := cfg.Format
	if encoding == "" {
		encoding = "json"
	}

	zapCfg := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       false,
		Encoding:          encoding,
		EncoderConfig:     zap.NewProductionEncoderConfig(),
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}
	if len(zapCfg.OutputPaths) == 0 {
		zapCfg.OutputPaths = []string{"stdout"}
	}
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}
