package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-123")
	v, ok := TraceID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "trace-123", v)
}

func TestTraceID_AbsentOnBareContext(t *testing.T) {
	v, ok := TraceID(context.Background())
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestRunID_RoundTrip(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-456")
	v, ok := RunID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "run-456", v)
}

func TestPromptBundleVersion_RoundTrip(t *testing.T) {
	ctx := WithPromptBundleVersion(context.Background(), "v2024-07-01")
	v, ok := PromptBundleVersion(ctx)
	assert.True(t, ok)
	assert.Equal(t, "v2024-07-01", v)
}

func TestLLMModel_RoundTrip(t *testing.T) {
	ctx := WithLLMModel(context.Background(), "gemini-pro")
	v, ok := LLMModel(ctx)
	assert.True(t, ok)
	assert.Equal(t, "gemini-pro", v)
}

func TestLLMModel_EmptyOverrideNotObservable(t *testing.T) {
	ctx := WithLLMModel(context.Background(), "")
	v, ok := LLMModel(ctx)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestKeys_DoNotCollideAcrossDistinctValues(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithRunID(ctx, "run-1")
	ctx = WithPromptBundleVersion(ctx, "v1")
	ctx = WithLLMModel(ctx, "mistral-large")

	trace, _ := TraceID(ctx)
	run, _ := RunID(ctx)
	bundle, _ := PromptBundleVersion(ctx)
	model, _ := LLMModel(ctx)

	assert.Equal(t, "trace-1", trace)
	assert.Equal(t, "run-1", run)
	assert.Equal(t, "v1", bundle)
	assert.Equal(t, "mistral-large", model)
}
