package router

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rashee1997/orchestrator-sub000/internal/ctxkeys"
	"github.com/rashee1997/orchestrator-sub000/internal/telemetry"
	"github.com/rashee1997/orchestrator-sub000/jsonrepair"
	"github.com/rashee1997/orchestrator-sub000/llm"
	"github.com/rashee1997/orchestrator-sub000/llm/retry"
	"github.com/rashee1997/orchestrator-sub000/types"
	"go.uber.org/zap"
)

const (
	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
)

// ExecuteOptions parameterizes one Execute call. Zero values fall back to
// the documented defaults (max_retries=3, timeout=30s,
// context_length=len(prompt), try_all=false).
type ExecuteOptions struct {
	System        string
	MaxRetries    int
	Timeout       time.Duration
	ContextLength int
	TryAll        bool
	ForceJSON     bool
}

// ExecuteResult is the router's normalized reply.
type ExecuteResult struct {
	Content         string
	ModelUsed       string
	ExecutionTimeMS int64
	JSONRepaired    bool
}

// Router resolves TaskTypes to ordered candidate lists and executes
// against them with retry/fallback.
type Router struct {
	registry    *llm.Registry
	rules       map[types.TaskType][]string
	highCap     []string
	logger      *zap.Logger
	retryPolicy *retry.RetryPolicy

	mu       sync.Mutex
	stats    map[string]*types.ModelStats
	limiters map[string]*rate.Limiter

	metrics *telemetry.Metrics
}

// SetMetrics wires a Prometheus metrics handle so every Execute call
// records per-model success/failure counts and latency. Passing nil (the
// default) disables recording.
func (r *Router) SetMetrics(m *telemetry.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// NewRouter builds the per-TaskType candidate lists from the registry's
// currently-available models. rules, when non-nil, overrides the
// tier-derived candidate list for specific TaskTypes (e.g. to pin an
// exact preferred/fallback chain from configuration); entries absent from
// rules fall back to the capability-tier derivation.
func NewRouter(registry *llm.Registry, rules map[types.TaskType]types.TaskDistributionRule, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		registry:    registry,
		rules:       make(map[types.TaskType][]string),
		stats:       make(map[string]*types.ModelStats),
		limiters:    make(map[string]*rate.Limiter),
		logger:      logger,
		retryPolicy: retry.DefaultRetryPolicy(),
	}

	r.highCap = namesOf(registry.ByCapability(types.CapabilityComplex))
	for _, e := range registry.All() {
		if e.Info.RateLimitRPM > 0 {
			r.limiters[e.Info.Name] = rate.NewLimiter(rate.Limit(float64(e.Info.RateLimitRPM)/60.0), 1)
		}
	}

	for taskType := range allTaskTypes() {
		tier := types.TaskTier(taskType)
		if rule, ok := rules[taskType]; ok && rule.PreferredModel != "" {
			candidates := append([]string{rule.PreferredModel}, rule.FallbackModels...)
			r.rules[taskType] = candidates
			continue
		}
		r.rules[taskType] = r.candidatesForTier(tier)
	}
	return r
}

func (r *Router) candidatesForTier(tier types.ComplexityTier) []string {
	var level types.CapabilityLevel
	switch tier {
	case types.TierSimple:
		level = types.CapabilitySimple
	case types.TierMedium:
		level = types.CapabilityMedium
	case types.TierSpecialized:
		// Embedding/specialized tasks draw from models that support
		// embedding regardless of declared capability level.
		var out []string
		for _, e := range r.registry.All() {
			if e.Info.Available && e.Provider.SupportsEmbedding() {
				out = append(out, e.Info.Name)
			}
		}
		return out
	default:
		level = types.CapabilityComplex
	}
	return namesOf(r.registry.ByCapability(level))
}

func namesOf(entries []llm.RegistryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Info.Name)
	}
	return out
}

// Execute runs one TaskType end to end: per-candidate retry with
// exponential backoff, rolling stats, and JSON-repair post-processing.
func (r *Router) Execute(ctx context.Context, taskType types.TaskType, prompt string, opts ExecuteOptions) (ExecuteResult, error) {
	start := time.Now()

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	contextLength := opts.ContextLength
	if contextLength == 0 {
		contextLength = len(prompt)
	}

	candidates := r.resolveCandidates(taskType, contextLength)
	if override, ok := ctxkeys.LLMModel(ctx); ok {
		candidates = append([]string{override}, candidates...)
	}
	if len(candidates) == 0 {
		return ExecuteResult{}, types.NewError(types.ErrTaskFailed, "no available model for task type").
			WithRetryable(false)
	}

	var lastErr error
	for _, modelName := range candidates {
		entry, ok := r.registry.Get(modelName)
		if !ok || !entry.Info.Available {
			continue
		}

		for attempt := 1; attempt <= maxRetries; attempt++ {
			if limiter, ok := r.limiters[modelName]; ok {
				if err := limiter.Wait(ctx); err != nil {
					return ExecuteResult{}, err
				}
			}
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			callStart := time.Now()
			resp, err := entry.Provider.Chat(callCtx, llm.ChatRequest{
				Model:   modelName,
				System:  opts.System,
				User:    prompt,
				Timeout: timeout,
			})
			cancel()
			elapsed := time.Since(callStart)
			r.record(modelName, err == nil, elapsed)

			if err == nil {
				content, repaired := r.postProcess(ctx, taskType, resp.Content, opts.ForceJSON, entry)
				return ExecuteResult{
					Content:         content,
					ModelUsed:       modelName,
					ExecutionTimeMS: time.Since(start).Milliseconds(),
					JSONRepaired:    repaired,
				}, nil
			}

			lastErr = err
			if types.IsAuthError(err) {
				r.registry.MarkUnavailable(modelName)
				break // no point retrying this model further
			}
			if !llm.IsRetryable(err) || attempt == maxRetries {
				break
			}
			select {
			case <-ctx.Done():
				return ExecuteResult{}, ctx.Err()
			case <-time.After(retry.Delay(r.retryPolicy, attempt)):
			}
		}
	}

	return ExecuteResult{}, types.NewError(types.ErrTaskFailed, "all candidate models exhausted").
		WithCause(lastErr).
		WithRetryable(false)
}

func (r *Router) resolveCandidates(taskType types.TaskType, contextLength int) []string {
	base := r.rules[taskType]

	// Prepend the high-capacity override list when the prompt exceeds the
	// tier's normal context budget; the heuristic budget is deliberately
	// generous since the router has no per-rule MaxContextLength wired in
	// without an explicit TaskDistributionRule.
	const defaultMaxContext = 32_000
	if contextLength > defaultMaxContext && len(r.highCap) > 0 {
		return append(append([]string{}, r.highCap...), base...)
	}
	return base
}

func (r *Router) postProcess(ctx context.Context, taskType types.TaskType, content string, forceJSON bool, entry llm.RegistryEntry) (string, bool) {
	if !forceJSON && !isJSONTask(taskType) && !jsonrepair.LooksLikeJSON(content) {
		return content, false
	}

	repaired, ok, _ := jsonrepair.Repair(ctx, content, func(ctx context.Context, malformed string) (string, error) {
		resp, err := entry.Provider.Chat(ctx, llm.ChatRequest{
			Model:  entry.Info.Name,
			System: "Return only valid, repaired JSON. No commentary, no markdown fences.",
			User:   malformed,
		})
		if err != nil {
			return "", err
		}
		return resp.Content, nil
	})
	if !ok {
		return content, false
	}
	return repaired, true
}

func isJSONTask(t types.TaskType) bool {
	switch t {
	case types.TaskJSONExtraction, types.TaskKeywordExtraction, types.TaskEntityExtraction,
		types.TaskIntentClassify, types.TaskDMQRGeneration, types.TaskGapAnalysis,
		types.TaskKGTranslation:
		return true
	default:
		return false
	}
}

func (r *Router) record(modelName string, success bool, elapsed time.Duration) {
	r.mu.Lock()
	s, ok := r.stats[modelName]
	if !ok {
		s = &types.ModelStats{}
		r.stats[modelName] = s
	}
	s.Record(success, elapsed)
	metrics := r.metrics
	r.mu.Unlock()
	metrics.RecordModelCall(modelName, success, elapsed)
}

// Stats returns a snapshot of the rolling per-model statistics.
func (r *Router) Stats() map[string]types.ModelStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]types.ModelStats, len(r.stats))
	for k, v := range r.stats {
		out[k] = *v
	}
	return out
}

func allTaskTypes() map[types.TaskType]struct{} {
	list := []types.TaskType{
		types.TaskJSONExtraction, types.TaskKeywordExtraction, types.TaskIntentClassify,
		types.TaskEntityExtraction, types.TaskRelevanceCheck, types.TaskSummarization,
		types.TaskTitleGeneration, types.TaskSimpleQA,
		types.TaskCodeExplanation, types.TaskQueryRewrite, types.TaskDMQRGeneration,
		types.TaskGapAnalysis, types.TaskExpansionSuggest, types.TaskAIFiltering,
		types.TaskReflection, types.TaskCorrectiveSearch,
		types.TaskAnswerSynthesis, types.TaskVerification, types.TaskCodeGeneration,
		types.TaskArchitectural, types.TaskDebugging, types.TaskRefactorPlan,
		types.TaskSecurityReview, types.TaskDeepReasoning,
		types.TaskEmbedding, types.TaskSemanticSearch, types.TaskKGTranslation, types.TaskRerank,
	}
	out := make(map[types.TaskType]struct{}, len(list))
	for _, t := range list {
		out[t] = struct{}{}
	}
	return out
}
