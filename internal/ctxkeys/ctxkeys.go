package ctxkeys

import "context"

// contextKey is the unexported key type for every value this package
// stores in a context.Context, so keys never collide with another
// package's.
type contextKey string

const (
	traceIDKey             contextKey = "trace_id"
	runIDKey               contextKey = "run_id"
	promptBundleVersionKey contextKey = "prompt_bundle_version"
	llmModelKey            contextKey = "llm_model"
)

// WithTraceID attaches a trace ID to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID returns the trace ID attached to ctx, if any.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithRunID attaches a run ID — one iterative controller session — to ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID returns the run ID attached to ctx, if any.
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithPromptBundleVersion attaches the prompt template bundle version used
// to render every prompt built while handling ctx's request.
func WithPromptBundleVersion(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, promptBundleVersionKey, version)
}

// PromptBundleVersion returns the prompt bundle version attached to ctx,
// if any.
func PromptBundleVersion(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(promptBundleVersionKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithLLMModel attaches a model-name override to ctx, taking precedence
// over the router's normal candidate selection for calls made with it.
func WithLLMModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, llmModelKey, model)
}

// LLMModel returns the model override attached to ctx, if any.
func LLMModel(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(llmModelKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
